// Package null provides inert components used wherever a part is optional.
package null

import (
	"context"

	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

type component struct{}

func (component) Init(context.Context) error  { return nil }
func (component) Start(context.Context) error { return nil }
func (component) Stop(context.Context) error  { return nil }
func (component) Close(context.Context) error { return nil }

// Consumer never delivers anything.
type Consumer struct {
	component

	listener protocol.MessageListener
}

func NewConsumer() *Consumer {
	return &Consumer{}
}

func (c *Consumer) RegisterListener(listener protocol.MessageListener) {
	c.listener = listener
}

// Producer discards every message.
type Producer struct {
	component
}

func NewProducer() *Producer {
	return &Producer{}
}

func (*Producer) Produce(context.Context, *models.Message) error {
	return nil
}

// Connection accepts registrations and holds no transport.
type Connection struct {
	component
}

func NewConnection() *Connection {
	return &Connection{}
}

func (*Connection) AddConsumer(protocol.Consumer) {}
func (*Connection) AddProducer(protocol.Producer) {}

// EventHandler discards every event.
type EventHandler struct {
	component
}

func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

func (*EventHandler) Send(context.Context, events.Event) error {
	return nil
}

var (
	_ protocol.Consumer     = (*Consumer)(nil)
	_ protocol.Producer     = (*Producer)(nil)
	_ protocol.Connection   = (*Connection)(nil)
	_ protocol.EventHandler = (*EventHandler)(nil)
)
