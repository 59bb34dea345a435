// Package testutil provides fake components and builders for testing
// triggered channels.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

// CallLog records lifecycle calls across several fake components so tests
// can assert on ordering.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) Add(call string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, call)
}

func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.calls...)
}

// Component is a fake protocol.Component. Failures maps an operation name
// ("init", "start", "stop", "close") to the error it should return.
type Component struct {
	Name     string
	Log      *CallLog
	Failures map[string]error

	mu     sync.Mutex
	counts map[string]int
}

func (c *Component) call(op string) error {
	c.mu.Lock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[op]++
	err := c.Failures[op]
	c.mu.Unlock()

	c.Log.Add(c.Name + "." + op)

	return err
}

// Count returns how many times op was called.
func (c *Component) Count(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[op]
}

// Fail sets or clears the error returned for op.
func (c *Component) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Failures == nil {
		c.Failures = make(map[string]error)
	}

	if err == nil {
		delete(c.Failures, op)

		return
	}

	c.Failures[op] = err
}

func (c *Component) Init(context.Context) error  { return c.call("init") }
func (c *Component) Start(context.Context) error { return c.call("start") }
func (c *Component) Stop(context.Context) error  { return c.call("stop") }
func (c *Component) Close(context.Context) error { return c.call("close") }

// MockConsumer hands submitted messages to its listener, standing in for a
// real inbound transport.
type MockConsumer struct {
	Component

	mu       sync.RWMutex
	listener protocol.MessageListener
}

func NewMockConsumer(name string, log *CallLog) *MockConsumer {
	return &MockConsumer{Component: Component{Name: name, Log: log}}
}

func (c *MockConsumer) RegisterListener(listener protocol.MessageListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listener = listener
}

// Submit delivers msg to the registered listener.
func (c *MockConsumer) Submit(ctx context.Context, msg *models.Message) error {
	c.mu.RLock()
	listener := c.listener
	c.mu.RUnlock()

	if listener == nil {
		return fmt.Errorf("%s: no listener registered", c.Name)
	}

	return listener.OnMessage(ctx, msg)
}

// CaptureProducer keeps every message it is given. The first FailFirst
// calls to Produce fail with ErrProduce.
type CaptureProducer struct {
	Component

	FailFirst int

	mu       sync.Mutex
	attempts int
	messages []*models.Message
	produced chan *models.Message
}

var ErrProduce = errors.New("capture producer: forced failure")

func NewCaptureProducer(name string, log *CallLog) *CaptureProducer {
	return &CaptureProducer{
		Component: Component{Name: name, Log: log},
		produced:  make(chan *models.Message, 100),
	}
}

func (p *CaptureProducer) Produce(_ context.Context, msg *models.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempts++
	if p.attempts <= p.FailFirst {
		return ErrProduce
	}

	p.messages = append(p.messages, msg)

	select {
	case p.produced <- msg:
	default:
	}

	return nil
}

func (p *CaptureProducer) Messages() []*models.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*models.Message(nil), p.messages...)
}

func (p *CaptureProducer) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.attempts
}

// Produced receives every successfully captured message.
func (p *CaptureProducer) Produced() <-chan *models.Message {
	return p.produced
}

// FakeConnection is a protocol.Connection that records registrations.
type FakeConnection struct {
	Component

	mu        sync.Mutex
	consumers []protocol.Consumer
	producers []protocol.Producer
}

func NewFakeConnection(name string, log *CallLog) *FakeConnection {
	return &FakeConnection{Component: Component{Name: name, Log: log}}
}

func (c *FakeConnection) AddConsumer(consumer protocol.Consumer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Log.Add(c.Name + ".add_consumer")
	c.consumers = append(c.consumers, consumer)
}

func (c *FakeConnection) AddProducer(producer protocol.Producer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Log.Add(c.Name + ".add_producer")
	c.producers = append(c.producers, producer)
}

func (c *FakeConnection) Consumers() []protocol.Consumer {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]protocol.Consumer(nil), c.consumers...)
}

func (c *FakeConnection) Producers() []protocol.Producer {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]protocol.Producer(nil), c.producers...)
}

var (
	_ protocol.Consumer   = (*MockConsumer)(nil)
	_ protocol.Producer   = (*CaptureProducer)(nil)
	_ protocol.Connection = (*FakeConnection)(nil)
)
