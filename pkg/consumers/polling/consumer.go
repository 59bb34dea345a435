// Package polling provides a workflow consumer that pulls its input from a
// message provider whenever its poller says so.
package polling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/operion-triggered/pkg/protocol"
)

var (
	ErrPollerRequired   = errors.New("polling consumer poller is required")
	ErrProviderRequired = errors.New("polling consumer provider is required")
)

type Consumer struct {
	poller   protocol.Poller
	provider protocol.MessageProvider
	logger   *slog.Logger

	mu       sync.RWMutex
	listener protocol.MessageListener
}

func New(poller protocol.Poller, provider protocol.MessageProvider, logger *slog.Logger) (*Consumer, error) {
	if poller == nil {
		return nil, ErrPollerRequired
	}

	if provider == nil {
		return nil, ErrProviderRequired
	}

	c := &Consumer{
		poller:   poller,
		provider: provider,
		logger:   logger.With("module", "polling_consumer", "bounded", poller.Bounded()),
	}

	poller.Register(c)

	return c, nil
}

func (c *Consumer) Poller() protocol.Poller {
	return c.poller
}

func (c *Consumer) RegisterListener(listener protocol.MessageListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listener = listener
}

func (c *Consumer) Init(ctx context.Context) error {
	return c.poller.Init(ctx)
}

func (c *Consumer) Start(ctx context.Context) error {
	return c.poller.Start(ctx)
}

func (c *Consumer) Stop(ctx context.Context) error {
	return c.poller.Stop(ctx)
}

func (c *Consumer) Close(ctx context.Context) error {
	return c.poller.Close(ctx)
}

// Poll asks a bounded poller for its scan. Unbounded pollers scan on their
// own schedule, so Poll returns immediately for them.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	bounded, ok := c.poller.(protocol.BoundedPoller)
	if !ok {
		return 0, nil
	}

	return bounded.Poll(ctx)
}

// ProcessMessages takes one batch from the provider and hands each message
// to the listener. Listener errors do not stop the batch.
func (c *Consumer) ProcessMessages(ctx context.Context) (int, error) {
	c.mu.RLock()
	listener := c.listener
	c.mu.RUnlock()

	if listener == nil {
		return 0, nil
	}

	messages, err := c.provider.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch messages: %w", err)
	}

	var errs []error

	for _, msg := range messages {
		if err := listener.OnMessage(ctx, msg); err != nil {
			c.logger.ErrorContext(ctx, "Failed to process polled message", "error", err, "message_id", msg.ID)
			errs = append(errs, err)
		}
	}

	return len(messages), errors.Join(errs...)
}

var (
	_ protocol.PollingConsumer = (*Consumer)(nil)
	_ protocol.Scanner         = (*Consumer)(nil)
)
