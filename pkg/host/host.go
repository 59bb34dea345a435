// Package host assembles triggered channels from a configuration file and
// owns the process-wide pieces they share: the management registry, the
// event bus, the cycle history and the metrics sink.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/eventbus"
	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/lifecycle"
	"github.com/dukex/operion-triggered/pkg/management"
	"github.com/dukex/operion-triggered/pkg/metrics"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/persistence"
	"github.com/dukex/operion-triggered/pkg/registry"
	"github.com/dukex/operion-triggered/pkg/transport"
	"github.com/dukex/operion-triggered/pkg/triggered"
)

var ErrChannelNotFound = errors.New("channel not found")

type Options struct {
	// Registry resolves component types. Defaults to registry.NewDefault.
	Registry *registry.Registry

	// Management defaults to a fresh registry.
	Management *management.Registry

	// History overrides the persistence url of the configuration.
	History persistence.Persistence

	MessageFactory models.MessageFactory

	Logger  *slog.Logger
	Metrics metrics.Sink
	Tracer  trace.Tracer
}

type Host struct {
	cfg        *config.File
	registry   *registry.Registry
	management *management.Registry
	local      *gochannel.GoChannel
	bus        eventbus.EventBus
	history    persistence.Persistence
	ownHistory bool
	logger     *slog.Logger
	metrics    metrics.Sink
	tracer     trace.Tracer
	factory    models.MessageFactory

	channels []*triggered.Channel
	byID     map[string]*triggered.Channel

	mu        sync.Mutex
	tracker   *lifecycle.Tracker
	closeOnce sync.Once
}

// New builds every channel of cfg. Nothing is initialised or started.
func New(ctx context.Context, cfg *config.File, opts Options) (*Host, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Host{
		cfg:        cfg,
		registry:   opts.Registry,
		management: opts.Management,
		history:    opts.History,
		logger:     logger.With("module", "host"),
		metrics:    metrics.OrNoop(opts.Metrics),
		tracer:     opts.Tracer,
		factory:    models.FactoryOrDefault(opts.MessageFactory),
		byID:       make(map[string]*triggered.Channel),
		tracker:    lifecycle.NewTracker(),
	}

	if h.registry == nil {
		h.registry = registry.NewDefault(logger)
	}

	if h.management == nil {
		h.management = management.NewRegistry(logger)
	}

	if cfg.PluginsPath != "" {
		if err := h.registry.LoadPlugins(cfg.PluginsPath); err != nil {
			return nil, fmt.Errorf("failed to load plugins: %w", err)
		}
	}

	h.local = transport.NewGoChannel(watermill.NewSlogLogger(logger))

	bus, err := NewEventBus(cfg.EventBus, h.local, h.local, logger)
	if err != nil {
		_ = h.local.Close()

		return nil, err
	}

	h.bus = bus

	if h.history == nil {
		history, err := NewPersistence(ctx, logger, cfg.Persistence.URL)
		if err != nil {
			_ = h.closeShared()

			return nil, fmt.Errorf("failed to open cycle history: %w", err)
		}

		h.history = history
		h.ownHistory = history != nil
	}

	for _, chCfg := range cfg.Channels {
		ch, err := h.buildChannel(chCfg)
		if err != nil {
			if h.ownHistory {
				_ = h.history.Close(ctx)
			}

			_ = h.closeShared()

			return nil, fmt.Errorf("channel %s: %w", chCfg.ID, err)
		}

		h.channels = append(h.channels, ch)
		h.byID[ch.ID()] = ch
	}

	return h, nil
}

func (h *Host) Registry() *registry.Registry     { return h.registry }
func (h *Host) Management() *management.Registry { return h.management }
func (h *Host) EventBus() eventbus.EventBus      { return h.bus }

// History returns the cycle history, or nil when none is configured.
func (h *Host) History() persistence.Persistence { return h.history }

func (h *Host) Channels() []*triggered.Channel {
	return append([]*triggered.Channel(nil), h.channels...)
}

func (h *Host) Channel(id string) (*triggered.Channel, bool) {
	ch, ok := h.byID[id]

	return ch, ok
}

// Statuses reports every channel in configuration order.
func (h *Host) Statuses() []triggered.Status {
	statuses := make([]triggered.Status, 0, len(h.channels))
	for _, ch := range h.channels {
		statuses = append(statuses, ch.Status())
	}

	return statuses
}

// Trigger runs one cycle of channel id directly, without its trigger
// consumer.
func (h *Host) Trigger(ctx context.Context, id string) error {
	ch, ok := h.Channel(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, id)
	}

	return ch.Fire(ctx)
}

// Init subscribes to the event bus and initialises every channel.
func (h *Host) Init(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.tracker.ToInit() {
		return nil
	}

	if err := h.observe(); err != nil {
		return err
	}

	if err := h.bus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to event bus: %w", err)
	}

	for _, ch := range h.channels {
		if err := ch.Init(ctx); err != nil {
			return fmt.Errorf("channel %s: %w", ch.ID(), err)
		}
	}

	h.tracker.Set(models.StateInitialised)

	return nil
}

func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ok, err := h.tracker.ToStart()
	if err != nil || !ok {
		return err
	}

	for _, ch := range h.channels {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("channel %s: %w", ch.ID(), err)
		}
	}

	h.tracker.Set(models.StateStarted)
	h.logger.InfoContext(ctx, "Host started", "channels", len(h.channels))

	return nil
}

// Stop stops every channel; running cycles finish on their own.
func (h *Host) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.tracker.ToStop() {
		return nil
	}

	var errs []error

	for _, ch := range h.channels {
		if err := ch.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", ch.ID(), err))
		}
	}

	h.tracker.Set(models.StateStopped)
	h.logger.InfoContext(ctx, "Host stopped")

	return errors.Join(errs...)
}

// Close closes every channel, waiting for running cycles, then the shared
// event bus and history. A host that was never initialised only releases the
// shared pieces.
func (h *Host) Close(ctx context.Context) error {
	if err := h.Stop(ctx); err != nil {
		h.logger.WarnContext(ctx, "Stop before close failed", "error", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error

	if h.tracker.ToClose() {
		for _, ch := range h.channels {
			if err := ch.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("channel %s: %w", ch.ID(), err))
			}
		}

		h.tracker.Set(models.StateClosed)
	}

	h.closeOnce.Do(func() {
		if h.ownHistory {
			if err := h.history.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close history: %w", err))
			}
		}

		errs = append(errs, h.closeShared())
		h.logger.InfoContext(ctx, "Host closed")
	})

	return errors.Join(errs...)
}

func (h *Host) closeShared() error {
	var errs []error

	if h.bus != nil {
		errs = append(errs, h.bus.Close())
	}

	errs = append(errs, h.local.Close())

	return errors.Join(errs...)
}

// observe logs the cycle events seen on the bus.
func (h *Host) observe() error {
	log := func(level slog.Level) eventbus.EventHandler {
		return func(ctx context.Context, event events.Event) error {
			h.logger.Log(ctx, level, "Channel event", "type", event.GetType(), "channel_id", events.Key(event))

			return nil
		}
	}

	levels := []struct {
		eventType events.EventType
		level     slog.Level
	}{
		{events.CycleStartedEvent, slog.LevelDebug},
		{events.CycleCompletedEvent, slog.LevelDebug},
		{events.CycleFailedEvent, slog.LevelWarn},
		{events.TriggerRejectedEvent, slog.LevelWarn},
	}

	for _, l := range levels {
		if err := h.bus.Handle(l.eventType, log(l.level)); err != nil {
			return fmt.Errorf("failed to handle %s events: %w", l.eventType, err)
		}
	}

	return nil
}
