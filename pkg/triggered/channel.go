// Package triggered implements the triggered channel: a channel that stays
// dormant until its trigger fires, then runs every workflow once, waits for
// outstanding retries, goes dormant again and emits the trigger message as
// its completion signal.
package triggered

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/operion-triggered/pkg/errorhandler"
	"github.com/dukex/operion-triggered/pkg/eventbus"
	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/lifecycle"
	"github.com/dukex/operion-triggered/pkg/metrics"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/null"
	"github.com/dukex/operion-triggered/pkg/otelhelper"
	"github.com/dukex/operion-triggered/pkg/persistence"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/dukex/operion-triggered/pkg/trigger"
)

const DefaultProbeBackoff = time.Second

type Config struct {
	ID        string
	Trigger   *trigger.Trigger
	Workflows []protocol.Workflow

	// ErrorHandler must implement protocol.CompletionProbe. Defaults to a
	// retry handler with the default limit and interval.
	ErrorHandler protocol.ErrorHandler

	// EventHandler receives workflow events. DefaultEventHandler is used
	// when it is nil.
	EventHandler        protocol.EventHandler
	DefaultEventHandler protocol.EventHandler

	// Connections shared by the workflows for the duration of a cycle.
	ProduceConnection protocol.Connection
	ConsumeConnection protocol.Connection

	MessageFactory models.MessageFactory

	// ProbeBackoff bounds the random wait between completion probe checks.
	ProbeBackoff time.Duration

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics metrics.Sink
	History persistence.Persistence

	// EventBus receives the cycle events. Optional.
	EventBus eventbus.EventPublisher
}

// Status is what outside observers see of a channel. State never reports
// the phases of a running cycle; Phase is dormant whenever no cycle runs.
type Status struct {
	ID            string       `json:"id"`
	State         models.State `json:"state"`
	Phase         models.Phase `json:"phase"`
	LastStartTime time.Time    `json:"last_start_time"`
	LastStopTime  time.Time    `json:"last_stop_time"`
	Cycles        int64        `json:"cycles"`
}

type Channel struct {
	id                string
	trigger           *trigger.Trigger
	workflows         []protocol.Workflow
	errorHandler      protocol.ErrorHandler
	eventHandler      protocol.EventHandler
	produceConnection protocol.Connection
	consumeConnection protocol.Connection
	messageFactory    models.MessageFactory
	probeBackoff      time.Duration
	logger            *slog.Logger
	tracer            trace.Tracer
	metrics           metrics.Sink
	history           persistence.Persistence
	bus               eventbus.EventPublisher

	probe   protocol.CompletionProbe
	tracker *lifecycle.Tracker
	cycles  atomic.Int64

	// cycleMu admits one cycle at a time.
	cycleMu sync.Mutex

	mu            sync.RWMutex
	phase         models.Phase
	lastStartTime time.Time
	lastStopTime  time.Time
}

func New(cfg Config) *Channel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("module", "triggered_channel", "channel_id", cfg.ID)
	sink := metrics.OrNoop(cfg.Metrics)

	trig := cfg.Trigger
	if trig == nil {
		trig = trigger.New()
	}

	errorHandler := cfg.ErrorHandler
	if errorHandler == nil {
		errorHandler = errorhandler.NewRetry(errorhandler.RetryConfig{Logger: logger, Metrics: sink})
	}

	eventHandler := cfg.EventHandler
	if eventHandler == nil {
		eventHandler = cfg.DefaultEventHandler
	}

	if eventHandler == nil {
		eventHandler = null.NewEventHandler()
	}

	produceConnection := cfg.ProduceConnection
	if produceConnection == nil {
		produceConnection = null.NewConnection()
	}

	consumeConnection := cfg.ConsumeConnection
	if consumeConnection == nil {
		consumeConnection = null.NewConnection()
	}

	backoff := cfg.ProbeBackoff
	if backoff <= 0 {
		backoff = DefaultProbeBackoff
	}

	return &Channel{
		id:                cfg.ID,
		trigger:           trig,
		workflows:         cfg.Workflows,
		errorHandler:      errorHandler,
		eventHandler:      eventHandler,
		produceConnection: produceConnection,
		consumeConnection: consumeConnection,
		messageFactory:    models.FactoryOrDefault(cfg.MessageFactory),
		probeBackoff:      backoff,
		logger:            logger,
		tracer:            otelhelper.OrNoop(cfg.Tracer),
		metrics:           sink,
		history:           cfg.History,
		bus:               cfg.EventBus,
		tracker:           lifecycle.NewTracker(),
		phase:             models.PhaseDormant,
	}
}

func (c *Channel) ID() string { return c.id }

func (c *Channel) Trigger() *trigger.Trigger { return c.trigger }

func (c *Channel) ErrorHandler() protocol.ErrorHandler { return c.errorHandler }

func (c *Channel) Workflows() []protocol.Workflow {
	return append([]protocol.Workflow(nil), c.workflows...)
}

// MessageFactory creates the messages of the channel's trigger consumers.
func (c *Channel) MessageFactory() models.MessageFactory { return c.messageFactory }

// Init validates the configuration, wires the workflows to the channel and
// initialises the trigger. Workflows are initialised per cycle.
func (c *Channel) Init(ctx context.Context) error {
	if !c.tracker.ToInit() {
		return nil
	}

	if c.id == "" {
		return protocol.NewConfigurationError("triggered channel", "id", ErrIDRequired)
	}

	probe, ok := c.errorHandler.(protocol.CompletionProbe)
	if !ok {
		return protocol.NewConfigurationError("triggered channel "+c.id, "error_handler", ErrNotCompletionProbe)
	}

	c.probe = probe

	seen := make(map[string]struct{}, len(c.workflows))

	for i, wf := range c.workflows {
		if wf == nil {
			return protocol.NewConfigurationError("triggered channel "+c.id, "workflows", ErrNilWorkflow)
		}

		if _, dup := seen[wf.ID()]; dup {
			return protocol.NewConfigurationError("triggered channel "+c.id, "workflows", ErrDuplicateWorkflow)
		}

		seen[wf.ID()] = struct{}{}

		if attachable, ok := wf.(protocol.Attachable); ok {
			attachable.Attach(c.id, c.errorHandler, c.eventHandler)
		}

		c.registerOnConnections(wf)
		c.logger.DebugContext(ctx, "Workflow attached", "position", i, "workflow_id", wf.FriendlyName())
	}

	c.trigger.Consumer().RegisterListener(c)

	if err := c.trigger.Init(ctx); err != nil {
		return err
	}

	c.tracker.Set(models.StateInitialised)
	c.logger.InfoContext(ctx, "Triggered channel initialised", "workflows", len(c.workflows))

	return nil
}

func (c *Channel) registerOnConnections(wf protocol.Workflow) {
	if withConsumer, ok := wf.(interface{ Consumer() protocol.Consumer }); ok {
		c.consumeConnection.AddConsumer(withConsumer.Consumer())
	}

	if withProducer, ok := wf.(interface{ Producer() protocol.Producer }); ok {
		c.produceConnection.AddProducer(withProducer.Producer())
	}
}

func (c *Channel) Start(ctx context.Context) error {
	ok, err := c.tracker.ToStart()
	if err != nil || !ok {
		return err
	}

	if err := c.trigger.Start(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.lastStartTime = time.Now().UTC()
	c.mu.Unlock()

	c.tracker.Set(models.StateStarted)
	c.logger.InfoContext(ctx, "Triggered channel started")

	return nil
}

func (c *Channel) Stop(ctx context.Context) error {
	if !c.tracker.ToStop() {
		return nil
	}

	c.mu.Lock()
	c.lastStopTime = time.Now().UTC()
	c.mu.Unlock()

	err := c.trigger.Stop(ctx)
	c.tracker.Set(models.StateStopped)
	c.logger.InfoContext(ctx, "Triggered channel stopped")

	return err
}

// Close waits for a running cycle, closes the trigger and shuts the error
// handler down.
func (c *Channel) Close(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		c.logger.WarnContext(ctx, "Stop before close failed", "error", err)
	}

	if !c.tracker.ToClose() {
		return nil
	}

	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	err := c.trigger.Close(ctx)
	lifecycle.StopAndClose(ctx, c.logger, c.errorHandler)

	c.setPhase(models.PhaseClosed)
	c.tracker.Set(models.StateClosed)
	c.logger.InfoContext(ctx, "Triggered channel closed")

	return err
}

// Status reports the steady state of the channel.
func (c *Channel) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Status{
		ID:            c.id,
		State:         c.tracker.State(),
		Phase:         c.phase,
		LastStartTime: c.lastStartTime,
		LastStopTime:  c.lastStopTime,
		Cycles:        c.cycles.Load(),
	}
}

// Phase is where the channel is within a cycle.
func (c *Channel) Phase() models.Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.phase
}

func (c *Channel) setPhase(phase models.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phase = phase
}

// Fire creates a fresh message and runs a cycle with it.
func (c *Channel) Fire(ctx context.Context) error {
	msg := c.messageFactory(nil)
	msg.SetHeader(models.MetadataTriggerSource, "direct")

	return c.OnMessage(ctx, msg)
}

// OnMessage runs one cycle for the trigger message msg and, once the
// channel is dormant again, produces msg on the trigger producer. A trigger
// that arrives while a cycle runs is rejected with ErrCycleInProgress.
func (c *Channel) OnMessage(ctx context.Context, msg *models.Message) error {
	if c.tracker.State() != models.StateStarted {
		return ErrNotStarted
	}

	if !c.cycleMu.TryLock() {
		c.reject(ctx, msg)

		return ErrCycleInProgress
	}
	defer c.cycleMu.Unlock()

	// Once triggered a cycle runs to completion.
	ctx = context.WithoutCancel(ctx)

	cycleID := uuid.New().String()
	msg.SetHeader(models.MetadataCycleID, cycleID)
	logger := c.logger.With("cycle_id", cycleID, "message_id", msg.ID)

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "triggered.cycle",
		attribute.String(otelhelper.ChannelIDKey, c.id),
		attribute.String(otelhelper.CycleIDKey, cycleID),
		attribute.String(otelhelper.MessageIDKey, msg.ID),
	)
	defer span.End()

	record := &models.CycleRecord{
		ID:        cycleID,
		ChannelID: c.id,
		MessageID: msg.ID,
		StartedAt: time.Now().UTC(),
		Workers:   len(c.workflows),
	}

	c.cycles.Add(1)
	c.metrics.CycleStarted(c.id)
	c.publish(ctx, events.CycleStarted{
		BaseEvent: events.NewBaseEvent(events.CycleStartedEvent, c.id),
		CycleID:   cycleID,
		MessageID: msg.ID,
		Workflows: c.workflowNames(),
	})
	logger.InfoContext(ctx, "Trigger cycle started", "workflows", len(c.workflows))

	err := c.runCycle(ctx, logger, record)
	if err == nil {
		c.mu.Lock()
		c.lastStartTime = record.StartedAt
		c.lastStopTime = time.Now().UTC()
		c.mu.Unlock()

		if perr := c.trigger.Producer().Produce(ctx, msg); perr != nil {
			err = &CycleError{ChannelID: c.id, CycleID: cycleID, Stage: StageProduce, Err: perr}
		}
	}

	record.FinishedAt = time.Now().UTC()
	c.finish(ctx, logger, span, record, err)

	return err
}

// runCycle brings the cycle's subsystems up, runs the workers, waits for
// both join conditions and always tears down what it started.
func (c *Channel) runCycle(ctx context.Context, logger *slog.Logger, record *models.CycleRecord) error {
	c.setPhase(models.PhaseInitializing)
	defer c.teardown(ctx, logger)

	if err := c.startup(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start cycle", "error", err)

		c.setPhase(models.PhaseDraining)
		c.awaitQuiescence(ctx)

		return &CycleError{ChannelID: c.id, CycleID: record.ID, Stage: StageStartup, Err: err}
	}

	c.setPhase(models.PhaseRunning)

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)

	for _, wf := range c.workflows {
		w := newWorker(c.id, wf, logger, c.metrics)

		wg.Add(1)

		go func() {
			defer wg.Done()

			if !w.run(ctx) {
				failed.Add(1)
			}
		}()
	}

	wg.Wait()
	record.FailedWorkers = int(failed.Load())

	c.setPhase(models.PhaseDraining)
	logger.DebugContext(ctx, "Workers joined, waiting for retries", "failed_workers", record.FailedWorkers)
	c.awaitQuiescence(ctx)

	return nil
}

func (c *Channel) startup(ctx context.Context) error {
	if err := lifecycle.InitAndStart(ctx, c.errorHandler, c.eventHandler); err != nil {
		return err
	}

	if err := lifecycle.Init(ctx, c.produceConnection, c.consumeConnection); err != nil {
		return err
	}

	for _, wf := range c.workflows {
		if err := wf.Init(ctx); err != nil {
			return err
		}
	}

	return lifecycle.Start(ctx, c.produceConnection, c.consumeConnection)
}

func (c *Channel) teardown(ctx context.Context, logger *slog.Logger) {
	for _, wf := range c.workflows {
		lifecycle.StopAndClose(ctx, logger, wf)
	}

	lifecycle.StopAndClose(ctx, logger, c.consumeConnection, c.produceConnection, c.eventHandler)
	c.setPhase(models.PhaseDormant)
}

// awaitQuiescence polls the completion probe with a random wait below the
// probe backoff between checks. A notifying probe cuts the wait short.
func (c *Channel) awaitQuiescence(ctx context.Context) {
	notifier, _ := c.errorHandler.(protocol.CompletionNotifier)

	for {
		var changed <-chan struct{}
		if notifier != nil {
			changed = notifier.Changed()
		}

		if c.probe.ProcessingCompleted() {
			return
		}

		timer := time.NewTimer(rand.N(c.probeBackoff))

		select {
		case <-changed:
		case <-timer.C:
		}

		timer.Stop()
		c.logger.DebugContext(ctx, "Waiting for error handler to complete")
	}
}

func (c *Channel) finish(ctx context.Context, logger *slog.Logger, span trace.Span, record *models.CycleRecord, err error) {
	duration := record.Duration()

	if err != nil {
		record.Outcome = models.CycleOutcomeFailed
		record.Error = err.Error()

		stage := StageStartup
		if cycleErr, ok := IsCycleError(err); ok {
			stage = cycleErr.Stage
		}

		otelhelper.SetError(span, err, attribute.String(otelhelper.StageKey, stage))
		c.metrics.CycleFinished(c.id, metrics.OutcomeFailed, duration)
		c.publish(ctx, events.CycleFailed{
			BaseEvent: events.NewBaseEvent(events.CycleFailedEvent, c.id),
			CycleID:   record.ID,
			MessageID: record.MessageID,
			Stage:     stage,
			Error:     err.Error(),
			Duration:  duration,
		})
		logger.ErrorContext(ctx, "Trigger cycle failed", "stage", stage, "error", err, "duration", duration)
	} else {
		record.Outcome = models.CycleOutcomeCompleted

		otelhelper.SetOK(span)
		c.metrics.CycleFinished(c.id, metrics.OutcomeCompleted, duration)
		c.publish(ctx, events.CycleCompleted{
			BaseEvent:     events.NewBaseEvent(events.CycleCompletedEvent, c.id),
			CycleID:       record.ID,
			MessageID:     record.MessageID,
			Duration:      duration,
			FailedWorkers: record.FailedWorkers,
		})
		logger.InfoContext(ctx, "Trigger cycle completed", "duration", duration, "failed_workers", record.FailedWorkers)
	}

	c.save(ctx, record)
}

func (c *Channel) reject(ctx context.Context, msg *models.Message) {
	c.logger.WarnContext(ctx, "Trigger rejected, cycle in progress", "message_id", msg.ID)
	c.metrics.TriggerRejected(c.id)
	c.publish(ctx, events.TriggerRejected{
		BaseEvent: events.NewBaseEvent(events.TriggerRejectedEvent, c.id),
		MessageID: msg.ID,
	})

	now := time.Now().UTC()
	c.save(ctx, &models.CycleRecord{
		ID:         uuid.New().String(),
		ChannelID:  c.id,
		MessageID:  msg.ID,
		StartedAt:  now,
		FinishedAt: now,
		Outcome:    models.CycleOutcomeRejected,
		Error:      ErrCycleInProgress.Error(),
	})
}

func (c *Channel) publish(ctx context.Context, event events.Event) {
	if c.bus == nil {
		return
	}

	if err := c.bus.Publish(ctx, c.id, event); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish cycle event", "event_type", event.GetType(), "error", err)
	}
}

func (c *Channel) save(ctx context.Context, record *models.CycleRecord) {
	if c.history == nil {
		return
	}

	if err := c.history.SaveCycle(ctx, record); err != nil {
		c.logger.WarnContext(ctx, "Failed to save cycle record", "cycle_id", record.ID, "error", err)
	}
}

func (c *Channel) workflowNames() []string {
	names := make([]string, 0, len(c.workflows))
	for _, wf := range c.workflows {
		names = append(names, wf.FriendlyName())
	}

	return names
}

var (
	_ protocol.Component       = (*Channel)(nil)
	_ protocol.MessageListener = (*Channel)(nil)
)
