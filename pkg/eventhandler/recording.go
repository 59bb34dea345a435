package eventhandler

import (
	"context"
	"sync"

	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

// Recording keeps every event it is sent, whatever its state.
type Recording struct {
	mu     sync.Mutex
	events []events.Event
	calls  map[string]int
}

func NewRecording() *Recording {
	return &Recording{calls: make(map[string]int)}
}

func (r *Recording) count(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls[op]++

	return nil
}

func (r *Recording) Init(context.Context) error  { return r.count("init") }
func (r *Recording) Start(context.Context) error { return r.count("start") }
func (r *Recording) Stop(context.Context) error  { return r.count("stop") }
func (r *Recording) Close(context.Context) error { return r.count("close") }

func (r *Recording) Send(_ context.Context, event events.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return nil
}

// Events returns everything sent so far, oldest first.
func (r *Recording) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]events.Event(nil), r.events...)
}

// OfType returns the sent events of the given type.
func (r *Recording) OfType(eventType events.EventType) []events.Event {
	var out []events.Event

	for _, e := range r.Events() {
		if e.GetType() == eventType {
			out = append(out, e)
		}
	}

	return out
}

// Calls returns how many times a lifecycle operation ran.
func (r *Recording) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls[op]
}

var _ protocol.EventHandler = (*Recording)(nil)
