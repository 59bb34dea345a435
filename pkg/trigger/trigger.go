// Package trigger bundles the consumer, producer and connection that let a
// triggered channel receive its activation signal and emit its completion
// signal.
package trigger

import (
	"context"
	"fmt"

	"github.com/dukex/operion-triggered/pkg/null"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

// Trigger is managed independently of the channel that owns it: it is
// initialised and started before the channel accepts triggers and closed
// after. Parts that are not configured default to inert implementations.
type Trigger struct {
	consumer   protocol.Consumer
	producer   protocol.Producer
	connection protocol.Connection
}

type Option func(*Trigger)

func WithConsumer(consumer protocol.Consumer) Option {
	return func(t *Trigger) {
		if consumer != nil {
			t.consumer = consumer
		}
	}
}

func WithProducer(producer protocol.Producer) Option {
	return func(t *Trigger) {
		if producer != nil {
			t.producer = producer
		}
	}
}

func WithConnection(connection protocol.Connection) Option {
	return func(t *Trigger) {
		if connection != nil {
			t.connection = connection
		}
	}
}

func New(opts ...Option) *Trigger {
	t := &Trigger{
		consumer:   null.NewConsumer(),
		producer:   null.NewProducer(),
		connection: null.NewConnection(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Trigger) Consumer() protocol.Consumer {
	return t.consumer
}

func (t *Trigger) Producer() protocol.Producer {
	return t.producer
}

func (t *Trigger) Connection() protocol.Connection {
	return t.connection
}

// Init registers the consumer and producer on the connection before any of
// them is initialised, then initialises connection, producer and consumer.
func (t *Trigger) Init(ctx context.Context) error {
	t.connection.AddProducer(t.producer)
	t.connection.AddConsumer(t.consumer)

	if err := t.connection.Init(ctx); err != nil {
		return fmt.Errorf("init trigger connection: %w", err)
	}

	if err := t.producer.Init(ctx); err != nil {
		return fmt.Errorf("init trigger producer: %w", err)
	}

	if err := t.consumer.Init(ctx); err != nil {
		return fmt.Errorf("init trigger consumer: %w", err)
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context) error {
	if err := t.connection.Start(ctx); err != nil {
		return fmt.Errorf("start trigger connection: %w", err)
	}

	if err := t.producer.Start(ctx); err != nil {
		return fmt.Errorf("start trigger producer: %w", err)
	}

	if err := t.consumer.Start(ctx); err != nil {
		return fmt.Errorf("start trigger consumer: %w", err)
	}

	return nil
}

// Stop stops consumer, producer and connection in that order. Every part is
// stopped even if an earlier one fails; the first error is returned.
func (t *Trigger) Stop(ctx context.Context) error {
	return firstError(
		wrap("stop trigger consumer", t.consumer.Stop(ctx)),
		wrap("stop trigger producer", t.producer.Stop(ctx)),
		wrap("stop trigger connection", t.connection.Stop(ctx)),
	)
}

// Close closes consumer, producer and connection in that order.
func (t *Trigger) Close(ctx context.Context) error {
	return firstError(
		wrap("close trigger consumer", t.consumer.Close(ctx)),
		wrap("close trigger producer", t.producer.Close(ctx)),
		wrap("close trigger connection", t.connection.Close(ctx)),
	)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", op, err)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

var _ protocol.Component = (*Trigger)(nil)
