// Package protocol defines the interfaces and contracts shared by triggered
// channels and the pluggable components attached to them.
package protocol

import (
	"context"

	"github.com/dukex/operion-triggered/pkg/models"
)

// Component is anything with a managed lifecycle. Implementations are
// initialised, started, stopped and closed in that order, and may be cycled
// through init/start/stop/close more than once.
type Component interface {
	Init(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Close(ctx context.Context) error
}

// MessageListener receives messages from a consumer.
type MessageListener interface {
	OnMessage(ctx context.Context, msg *models.Message) error
}

// MessageListenerFunc adapts a function to a MessageListener.
type MessageListenerFunc func(ctx context.Context, msg *models.Message) error

func (f MessageListenerFunc) OnMessage(ctx context.Context, msg *models.Message) error {
	return f(ctx, msg)
}

// Consumer delivers inbound messages to its registered listener.
type Consumer interface {
	Component

	// RegisterListener sets the listener that receives consumed messages.
	// It is called before Init.
	RegisterListener(listener MessageListener)
}

// Producer emits messages to a destination.
type Producer interface {
	Component

	Produce(ctx context.Context, msg *models.Message) error
}

// Connection is the transport shared by the consumers and producers
// registered on it.
type Connection interface {
	Component

	AddConsumer(consumer Consumer)
	AddProducer(producer Producer)
}

// Service transforms or inspects a message inside a workflow.
type Service interface {
	Apply(ctx context.Context, msg *models.Message) error
}
