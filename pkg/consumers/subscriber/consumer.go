// Package subscriber provides a consumer fed by a watermill subscription.
package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

var (
	ErrTopicRequired      = errors.New("subscriber consumer topic is required")
	ErrConnectionRequired = errors.New("subscriber consumer requires a pub/sub connection")
)

// SubscriberSource hands out a watermill subscriber. connection.PubSub
// satisfies it.
type SubscriberSource interface {
	Subscriber() (message.Subscriber, error)
}

// Consumer acks a message once the listener accepted it and nacks it
// otherwise, so the transport may redeliver.
type Consumer struct {
	Topic string

	source SubscriberSource
	logger *slog.Logger

	mu       sync.Mutex
	listener protocol.MessageListener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(source SubscriberSource, topic string, logger *slog.Logger) (*Consumer, error) {
	if topic == "" {
		return nil, ErrTopicRequired
	}

	if source == nil {
		return nil, ErrConnectionRequired
	}

	return &Consumer{
		Topic:  topic,
		source: source,
		logger: logger.With("module", "subscriber_consumer", "topic", topic),
	}, nil
}

func (c *Consumer) RegisterListener(listener protocol.MessageListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listener = listener
}

func (c *Consumer) Init(context.Context) error {
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return nil
	}

	sub, err := c.source.Subscriber()
	if err != nil {
		return fmt.Errorf("failed to start subscriber consumer: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	messages, err := sub.Subscribe(subCtx, c.Topic)
	if err != nil {
		cancel()

		return fmt.Errorf("failed to subscribe to %s: %w", c.Topic, err)
	}

	c.cancel = cancel
	c.wg.Add(1)

	go c.consume(subCtx, messages)

	c.logger.InfoContext(ctx, "Subscribed")

	return nil
}

func (c *Consumer) consume(ctx context.Context, messages <-chan *message.Message) {
	defer c.wg.Done()

	for msg := range messages {
		c.mu.Lock()
		listener := c.listener
		c.mu.Unlock()

		if listener == nil {
			msg.Nack()

			continue
		}

		m := FromWatermill(msg)

		// Acked even when the cycle failed; triggers are never redelivered.
		if err := listener.OnMessage(ctx, m); err != nil {
			c.logger.ErrorContext(ctx, "Error handling subscribed trigger", "error", err, "message_id", m.ID)
		}

		msg.Ack()
	}
}

// Stop ends the subscription and waits for the message in flight.
func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	c.wg.Wait()
	c.logger.InfoContext(ctx, "Unsubscribed")

	return nil
}

func (c *Consumer) Close(context.Context) error {
	return nil
}

// FromWatermill converts a transport message, keeping its UUID and metadata.
func FromWatermill(msg *message.Message) *models.Message {
	m := models.NewMessage(append([]byte(nil), msg.Payload...))
	m.ID = msg.UUID

	for k, v := range msg.Metadata {
		m.SetHeader(k, v)
	}

	return m
}

var _ protocol.Consumer = (*Consumer)(nil)
