// Package errorhandler provides error handlers that can be attached to a
// triggered channel. Every handler here also reports completion so the
// channel knows when a cycle may end.
package errorhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dukex/operion-triggered/pkg/lifecycle"
	"github.com/dukex/operion-triggered/pkg/metrics"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

const (
	// DefaultRetryLimit of zero retries forever.
	DefaultRetryLimit    = 0
	DefaultRetryInterval = 30 * time.Second

	// MetadataLastError carries the cause of the most recent failure.
	MetadataLastError = "last_error"
)

var (
	ErrNotRunning      = errors.New("retry handler is not running")
	ErrRetryExhausted  = errors.New("retry limit exceeded")
	ErrInvalidInterval = errors.New("retry interval must not be negative")
)

// RetryConfig configures a Retry handler. Zero values select the defaults.
type RetryConfig struct {
	RetryLimit    int
	RetryInterval time.Duration

	// FailureProducer receives messages that exhausted their retries or were
	// still waiting when the handler stopped. Optional.
	FailureProducer protocol.Producer

	Logger  *slog.Logger
	Metrics metrics.Sink
}

type retryEntry struct {
	msg      *models.Message
	resubmit protocol.MessageListener
	timer    *time.Timer
}

// Retry resubmits failed messages to their workflow after a fixed interval.
// It is idle once nothing is scheduled and nothing is being retried, or once
// it has been stopped.
type Retry struct {
	limit    int
	interval time.Duration
	failure  protocol.Producer
	logger   *slog.Logger
	metrics  metrics.Sink
	tracker  *lifecycle.Tracker

	mu         sync.Mutex
	running    bool
	ctx        context.Context
	cancel     context.CancelFunc
	retryList  map[string]*retryEntry
	inProgress map[string]*retryEntry
	changed    chan struct{}
	wg         sync.WaitGroup
}

func NewRetry(cfg RetryConfig) *Retry {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.RetryInterval
	if interval == 0 {
		interval = DefaultRetryInterval
	}

	return &Retry{
		limit:      cfg.RetryLimit,
		interval:   interval,
		failure:    cfg.FailureProducer,
		logger:     logger.With("module", "retry_error_handler"),
		metrics:    metrics.OrNoop(cfg.Metrics),
		tracker:    lifecycle.NewTracker(),
		retryList:  make(map[string]*retryEntry),
		inProgress: make(map[string]*retryEntry),
		changed:    make(chan struct{}),
	}
}

func (h *Retry) RetryLimit() int              { return h.limit }
func (h *Retry) RetryInterval() time.Duration { return h.interval }

func (h *Retry) Init(ctx context.Context) error {
	if !h.tracker.ToInit() {
		return nil
	}

	if h.interval < 0 {
		return protocol.NewConfigurationError("retry error handler", "retry_interval", ErrInvalidInterval)
	}

	if err := lifecycle.Init(ctx, h.failure); err != nil {
		return fmt.Errorf("init failure producer: %w", err)
	}

	h.tracker.Set(models.StateInitialised)

	return nil
}

func (h *Retry) Start(ctx context.Context) error {
	ok, err := h.tracker.ToStart()
	if err != nil || !ok {
		return err
	}

	if err := lifecycle.Start(ctx, h.failure); err != nil {
		return fmt.Errorf("start failure producer: %w", err)
	}

	h.mu.Lock()
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.running = true
	h.mu.Unlock()

	h.tracker.Set(models.StateStarted)
	h.logger.DebugContext(ctx, "Retry handler started", "retry_limit", h.limit, "retry_interval", h.interval)

	return nil
}

// Stop shuts the handler down. Scheduled retries are cancelled and their
// messages are handed to the failure producer.
func (h *Retry) Stop(ctx context.Context) error {
	if !h.tracker.ToStop() {
		return nil
	}

	h.mu.Lock()
	h.running = false
	h.cancel()
	dropped := make([]*retryEntry, 0, len(h.retryList))
	for id, entry := range h.retryList {
		entry.timer.Stop()
		dropped = append(dropped, entry)
		delete(h.retryList, id)
	}
	h.notifyLocked()
	h.mu.Unlock()

	for _, entry := range dropped {
		h.logger.WarnContext(ctx, "Dropping scheduled retry", "message_id", entry.msg.ID)
		h.fail(ctx, entry.msg)
	}

	h.wg.Wait()
	h.metrics.RetriesPending(h.Pending())

	lifecycle.Stop(ctx, h.logger, h.failure)
	h.tracker.Set(models.StateStopped)

	return nil
}

func (h *Retry) Close(ctx context.Context) error {
	if err := h.Stop(ctx); err != nil {
		return err
	}

	if !h.tracker.ToClose() {
		return nil
	}

	lifecycle.Close(ctx, h.logger, h.failure)
	h.tracker.Set(models.StateClosed)

	return nil
}

// HandleFailure schedules msg for redelivery to resubmit. A message that has
// already been retried RetryLimit times goes to the failure producer instead.
func (h *Retry) HandleFailure(ctx context.Context, msg *models.Message, cause error, resubmit protocol.MessageListener) error {
	attempts := retryCount(msg)
	if cause != nil {
		msg.SetHeader(MetadataLastError, cause.Error())
	}

	logger := h.logger.With("message_id", msg.ID, "attempt", attempts)

	if h.limit > 0 && attempts >= h.limit {
		logger.WarnContext(ctx, "Retry limit exceeded", "error", cause)
		h.metrics.RetryExhausted()

		if err := h.fail(ctx, msg); err != nil {
			return err
		}

		return fmt.Errorf("%w: message %s after %d attempts", ErrRetryExhausted, msg.ID, attempts)
	}

	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		logger.WarnContext(ctx, "Retry handler not running, message not scheduled", "error", cause)

		if err := h.fail(ctx, msg); err != nil {
			return err
		}

		return ErrNotRunning
	}

	msg.SetHeader(models.MetadataRetryCount, strconv.Itoa(attempts+1))
	entry := &retryEntry{msg: msg, resubmit: resubmit}
	entry.timer = time.AfterFunc(h.interval, func() { h.retry(entry) })
	h.retryList[msg.ID] = entry
	pending := len(h.retryList) + len(h.inProgress)
	h.notifyLocked()
	h.mu.Unlock()

	logger.InfoContext(ctx, "Message scheduled for retry", "interval", h.interval, "error", cause)
	h.metrics.RetryScheduled()
	h.metrics.RetriesPending(pending)

	return nil
}

func (h *Retry) retry(entry *retryEntry) {
	h.mu.Lock()
	if !h.running || h.retryList[entry.msg.ID] != entry {
		h.mu.Unlock()
		return
	}

	delete(h.retryList, entry.msg.ID)
	h.inProgress[entry.msg.ID] = entry
	h.wg.Add(1)
	ctx := h.ctx
	h.mu.Unlock()

	defer h.wg.Done()

	h.logger.DebugContext(ctx, "Resubmitting message", "message_id", entry.msg.ID)

	if err := entry.resubmit.OnMessage(ctx, entry.msg); err != nil {
		// The listener did not route the failure itself.
		if herr := h.HandleFailure(ctx, entry.msg, err, entry.resubmit); herr != nil {
			h.logger.ErrorContext(ctx, "Retry failed", "message_id", entry.msg.ID, "error", herr)
		}
	}

	h.mu.Lock()
	if h.inProgress[entry.msg.ID] == entry {
		delete(h.inProgress, entry.msg.ID)
	}
	pending := len(h.retryList) + len(h.inProgress)
	h.notifyLocked()
	h.mu.Unlock()

	h.metrics.RetriesPending(pending)
}

func (h *Retry) fail(ctx context.Context, msg *models.Message) error {
	if h.failure == nil {
		return nil
	}

	if err := h.failure.Produce(ctx, msg); err != nil {
		h.logger.ErrorContext(ctx, "Failure producer rejected message", "message_id", msg.ID, "error", err)

		return fmt.Errorf("produce to failure producer: %w", err)
	}

	return nil
}

// ProcessingCompleted is true when no retry is scheduled or running, or when
// the handler is not running.
func (h *Retry) ProcessingCompleted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return true
	}

	return len(h.retryList) == 0 && len(h.inProgress) == 0
}

// Changed returns a channel closed on the next change to the retry queues.
func (h *Retry) Changed() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.changed
}

// Pending returns the number of scheduled plus in-flight retries.
func (h *Retry) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.retryList) + len(h.inProgress)
}

func (h *Retry) notifyLocked() {
	close(h.changed)
	h.changed = make(chan struct{})
}

func retryCount(msg *models.Message) int {
	n, err := strconv.Atoi(msg.Header(models.MetadataRetryCount))
	if err != nil || n < 0 {
		return 0
	}

	return n
}

var (
	_ protocol.ErrorHandler       = (*Retry)(nil)
	_ protocol.CompletionProbe    = (*Retry)(nil)
	_ protocol.CompletionNotifier = (*Retry)(nil)
)
