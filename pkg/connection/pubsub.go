package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

// PubSubFactory builds the publisher and subscriber for a PubSub connection.
type PubSubFactory func() (message.Publisher, message.Subscriber, error)

// PubSub owns a watermill publisher and subscriber. They are built by the
// factory on Start and closed on Close. A PubSub created with NewSharedPubSub
// borrows them instead and never closes them.
type PubSub struct {
	*Shared

	factory  PubSubFactory
	borrowed bool

	mu         sync.RWMutex
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewPubSub(factory PubSubFactory, logger *slog.Logger) *PubSub {
	return &PubSub{
		Shared:  NewShared(),
		factory: factory,
		logger:  logger.With("module", "pubsub_connection"),
	}
}

// NewSharedPubSub wraps a publisher and subscriber owned by someone else.
func NewSharedPubSub(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *PubSub {
	return &PubSub{
		Shared:     NewShared(),
		borrowed:   true,
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With("module", "pubsub_connection", "shared", true),
	}
}

func (p *PubSub) Start(ctx context.Context) error {
	ok, err := p.tracker.ToStart()
	if err != nil || !ok {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.borrowed && p.publisher == nil {
		pub, sub, err := p.factory()
		if err != nil {
			return fmt.Errorf("failed to create pub/sub: %w", err)
		}

		p.publisher = pub
		p.subscriber = sub
	}

	return p.Shared.Start(ctx)
}

func (p *PubSub) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.borrowed {
		if p.subscriber != nil {
			if err := p.subscriber.Close(); err != nil {
				p.logger.ErrorContext(ctx, "Failed to close subscriber", "error", err)
			}
		}

		if p.publisher != nil {
			if err := p.publisher.Close(); err != nil {
				p.logger.ErrorContext(ctx, "Failed to close publisher", "error", err)
			}
		}

		p.publisher = nil
		p.subscriber = nil
	}

	return p.Shared.Close(ctx)
}

func (p *PubSub) Publisher() (message.Publisher, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.publisher == nil {
		return nil, ErrNotConnected
	}

	return p.publisher, nil
}

func (p *PubSub) Subscriber() (message.Subscriber, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.subscriber == nil {
		return nil, ErrNotConnected
	}

	return p.subscriber, nil
}

var _ protocol.Connection = (*PubSub)(nil)
