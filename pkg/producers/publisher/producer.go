// Package publisher provides a producer that publishes to a watermill topic.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

var (
	ErrTopicRequired      = errors.New("publisher producer topic is required")
	ErrConnectionRequired = errors.New("publisher producer requires a pub/sub connection")
)

// PublisherSource hands out a watermill publisher. connection.PubSub
// satisfies it.
type PublisherSource interface {
	Publisher() (message.Publisher, error)
}

// Producer publishes the message payload with its metadata. The message ID
// becomes the watermill UUID and the "key" metadata used for partitioning.
type Producer struct {
	Topic string

	source PublisherSource
	logger *slog.Logger
}

func New(source PublisherSource, topic string, logger *slog.Logger) (*Producer, error) {
	if topic == "" {
		return nil, ErrTopicRequired
	}

	if source == nil {
		return nil, ErrConnectionRequired
	}

	return &Producer{
		Topic:  topic,
		source: source,
		logger: logger.With("module", "publisher_producer", "topic", topic),
	}, nil
}

func (p *Producer) Init(context.Context) error  { return nil }
func (p *Producer) Start(context.Context) error { return nil }
func (p *Producer) Stop(context.Context) error  { return nil }
func (p *Producer) Close(context.Context) error { return nil }

func (p *Producer) Produce(ctx context.Context, msg *models.Message) error {
	pub, err := p.source.Publisher()
	if err != nil {
		return err
	}

	out := ToWatermill(msg)
	out.SetContext(ctx)

	if err := pub.Publish(p.Topic, out); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.Topic, err)
	}

	p.logger.DebugContext(ctx, "Published message", "message_id", msg.ID)

	return nil
}

// ToWatermill converts a message for publishing.
func ToWatermill(msg *models.Message) *message.Message {
	out := message.NewMessage(msg.ID, append([]byte(nil), msg.Payload...))

	for k, v := range msg.Metadata {
		out.Metadata.Set(k, v)
	}

	out.Metadata.Set("key", msg.ID)

	return out
}

var _ protocol.Producer = (*Producer)(nil)
