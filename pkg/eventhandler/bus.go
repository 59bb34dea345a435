// Package eventhandler provides protocol.EventHandler implementations.
package eventhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/operion-triggered/pkg/eventbus"
	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/lifecycle"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

var (
	ErrNotStarted = errors.New("event handler is not started")
	ErrNoEventBus = errors.New("event bus is required")
	ErrNilEvent   = errors.New("event is nil")
)

// Bus publishes events on an event bus. It only accepts events while
// started. The bus itself is shared and is never closed by the handler.
type Bus struct {
	bus     eventbus.EventPublisher
	logger  *slog.Logger
	tracker *lifecycle.Tracker
}

func NewBus(bus eventbus.EventPublisher, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bus{
		bus:     bus,
		logger:  logger.With("module", "bus_event_handler"),
		tracker: lifecycle.NewTracker(),
	}
}

func (h *Bus) State() models.State {
	return h.tracker.State()
}

func (h *Bus) Init(context.Context) error {
	if h.bus == nil {
		return protocol.NewConfigurationError("bus event handler", "bus", ErrNoEventBus)
	}

	if h.tracker.ToInit() {
		h.tracker.Set(models.StateInitialised)
	}

	return nil
}

func (h *Bus) Start(context.Context) error {
	ok, err := h.tracker.ToStart()
	if ok {
		h.tracker.Set(models.StateStarted)
	}

	return err
}

func (h *Bus) Stop(context.Context) error {
	if h.tracker.ToStop() {
		h.tracker.Set(models.StateStopped)
	}

	return nil
}

func (h *Bus) Close(context.Context) error {
	h.tracker.Set(models.StateClosed)

	return nil
}

func (h *Bus) Send(ctx context.Context, event events.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	if h.tracker.State() != models.StateStarted {
		return fmt.Errorf("%w: %s dropped", ErrNotStarted, event.GetType())
	}

	if err := h.bus.Publish(ctx, events.Key(event), event); err != nil {
		h.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)

		return fmt.Errorf("publish %s: %w", event.GetType(), err)
	}

	h.logger.DebugContext(ctx, "Event published", "event_type", event.GetType())

	return nil
}

var _ protocol.EventHandler = (*Bus)(nil)
