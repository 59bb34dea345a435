// Package workflow provides the workflow run by each worker of a triggered
// channel: consume, apply services, produce.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/lifecycle"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/null"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

var ErrIDRequired = errors.New("workflow id is required")

type Config struct {
	ID       string
	Consumer protocol.Consumer
	Services []protocol.Service
	Producer protocol.Producer
	Logger   *slog.Logger
}

// Standard hands every consumed message through its services to its
// producer. Failed messages go to the attached error handler, which may
// resubmit them to the workflow.
type Standard struct {
	id       string
	consumer protocol.Consumer
	services []protocol.Service
	producer protocol.Producer
	base     *slog.Logger
	tracker  *lifecycle.Tracker

	mu           sync.RWMutex
	channelID    string
	errorHandler protocol.ErrorHandler
	eventHandler protocol.EventHandler
	logger       *slog.Logger
}

func New(cfg Config) *Standard {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	consumer := cfg.Consumer
	if consumer == nil {
		consumer = null.NewConsumer()
	}

	producer := cfg.Producer
	if producer == nil {
		producer = null.NewProducer()
	}

	w := &Standard{
		id:       cfg.ID,
		consumer: consumer,
		services: cfg.Services,
		producer: producer,
		base:     logger,
		tracker:  lifecycle.NewTracker(),
	}
	w.logger = w.newLogger()

	return w
}

func (w *Standard) newLogger() *slog.Logger {
	return w.base.With("module", "workflow", "workflow_id", w.FriendlyName())
}

func (w *Standard) ID() string {
	return w.id
}

// FriendlyName is "id@channel" once attached to a channel.
func (w *Standard) FriendlyName() string {
	if w.channelID == "" {
		return w.id
	}

	return w.id + "@" + w.channelID
}

func (w *Standard) State() models.State {
	return w.tracker.State()
}

func (w *Standard) Consumer() protocol.Consumer { return w.consumer }
func (w *Standard) Producer() protocol.Producer { return w.producer }

// Attach binds the workflow to its channel. It must be called before Init.
func (w *Standard) Attach(channelID string, errorHandler protocol.ErrorHandler, eventHandler protocol.EventHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.channelID = channelID
	w.errorHandler = errorHandler
	w.eventHandler = eventHandler
	w.logger = w.newLogger()
}

func (w *Standard) Init(ctx context.Context) error {
	if !w.tracker.ToInit() {
		return nil
	}

	if w.id == "" {
		return protocol.NewConfigurationError("workflow", "id", ErrIDRequired)
	}

	w.consumer.RegisterListener(w)

	if pc, ok := w.consumer.(protocol.PollingConsumer); ok && !pc.Poller().Bounded() {
		w.log().WarnContext(ctx, "Workflow polls on its own schedule and will not finish a triggered cycle")
	}

	if err := lifecycle.Init(ctx, w.producer, w.consumer); err != nil {
		return fmt.Errorf("init workflow %s: %w", w.FriendlyName(), err)
	}

	w.tracker.Set(models.StateInitialised)

	return nil
}

func (w *Standard) Start(ctx context.Context) error {
	ok, err := w.tracker.ToStart()
	if err != nil || !ok {
		return err
	}

	if err := lifecycle.Start(ctx, w.producer, w.consumer); err != nil {
		return fmt.Errorf("start workflow %s: %w", w.FriendlyName(), err)
	}

	w.tracker.Set(models.StateStarted)

	return nil
}

func (w *Standard) Stop(ctx context.Context) error {
	if !w.tracker.ToStop() {
		return nil
	}

	lifecycle.Stop(ctx, w.log(), w.consumer, w.producer)
	w.tracker.Set(models.StateStopped)

	return nil
}

func (w *Standard) Close(ctx context.Context) error {
	if err := w.Stop(ctx); err != nil {
		return err
	}

	if !w.tracker.ToClose() {
		return nil
	}

	lifecycle.Close(ctx, w.log(), w.consumer, w.producer)
	w.tracker.Set(models.StateClosed)

	return nil
}

// Poll runs the consumer's scan when the consumer is pulled by a bounded
// poller, and returns once the scan is done.
func (w *Standard) Poll(ctx context.Context) error {
	pc, ok := w.consumer.(protocol.PollingConsumer)
	if !ok || !pc.Poller().Bounded() {
		return nil
	}

	count, err := pc.Poll(ctx)
	w.log().DebugContext(ctx, "Poll finished", "processed", count)

	return err
}

// OnMessage processes msg. Failures are handed to the error handler when
// one is attached and are not returned.
func (w *Standard) OnMessage(ctx context.Context, msg *models.Message) error {
	w.mu.RLock()
	errorHandler, eventHandler, logger := w.errorHandler, w.eventHandler, w.logger
	w.mu.RUnlock()

	logger = logger.With("message_id", msg.ID)
	msg.SetHeader(models.MetadataWorkflowID, w.FriendlyName())

	if err := w.process(ctx, msg); err != nil {
		if errorHandler == nil {
			return err
		}

		logger.WarnContext(ctx, "Message failed, passing to error handler", "error", err)

		if herr := errorHandler.HandleFailure(ctx, msg, err, w); herr != nil {
			logger.ErrorContext(ctx, "Error handler failed", "error", herr)
		}

		return nil
	}

	logger.DebugContext(ctx, "Message processed")

	if eventHandler != nil {
		event := events.MessageLifecycle{
			BaseEvent:  events.NewBaseEvent(events.MessageLifecycleEvent, w.channelID),
			WorkflowID: w.FriendlyName(),
			MessageID:  msg.ID,
			Success:    true,
		}

		if err := eventHandler.Send(ctx, event); err != nil {
			logger.WarnContext(ctx, "Failed to send message lifecycle event", "error", err)
		}
	}

	return nil
}

func (w *Standard) process(ctx context.Context, msg *models.Message) error {
	for i, service := range w.services {
		if err := service.Apply(ctx, msg); err != nil {
			return fmt.Errorf("service %d: %w", i, err)
		}
	}

	if err := w.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("produce: %w", err)
	}

	return nil
}

func (w *Standard) log() *slog.Logger {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.logger
}

var (
	_ protocol.PolledWorkflow  = (*Standard)(nil)
	_ protocol.MessageListener = (*Standard)(nil)
	_ protocol.Attachable      = (*Standard)(nil)
)
