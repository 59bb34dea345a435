// Package connection provides the transports shared by trigger and workflow
// consumers and producers.
package connection

import (
	"context"
	"errors"
	"sync"

	"github.com/dukex/operion-triggered/pkg/lifecycle"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

var ErrNotConnected = errors.New("connection is not started")

// Shared keeps track of the consumers and producers registered on a
// connection and of the connection state. It carries no transport of its
// own and is embedded by the concrete connections.
type Shared struct {
	mu        sync.RWMutex
	consumers []protocol.Consumer
	producers []protocol.Producer

	tracker *lifecycle.Tracker
}

func NewShared() *Shared {
	return &Shared{tracker: lifecycle.NewTracker()}
}

func (s *Shared) AddConsumer(consumer protocol.Consumer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.consumers {
		if c == consumer {
			return
		}
	}

	s.consumers = append(s.consumers, consumer)
}

func (s *Shared) AddProducer(producer protocol.Producer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.producers {
		if p == producer {
			return
		}
	}

	s.producers = append(s.producers, producer)
}

func (s *Shared) Consumers() []protocol.Consumer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]protocol.Consumer(nil), s.consumers...)
}

func (s *Shared) Producers() []protocol.Producer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]protocol.Producer(nil), s.producers...)
}

func (s *Shared) State() models.State {
	return s.tracker.State()
}

func (s *Shared) Init(context.Context) error {
	if s.tracker.ToInit() {
		s.tracker.Set(models.StateInitialised)
	}

	return nil
}

func (s *Shared) Start(context.Context) error {
	ok, err := s.tracker.ToStart()
	if err != nil {
		return err
	}

	if ok {
		s.tracker.Set(models.StateStarted)
	}

	return nil
}

func (s *Shared) Stop(context.Context) error {
	if s.tracker.ToStop() {
		s.tracker.Set(models.StateStopped)
	}

	return nil
}

func (s *Shared) Close(context.Context) error {
	if s.tracker.ToClose() {
		s.tracker.Set(models.StateClosed)
	}

	return nil
}

var _ protocol.Connection = (*Shared)(nil)
