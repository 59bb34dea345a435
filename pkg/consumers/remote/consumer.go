// Package remote provides a consumer triggered through the management
// registry. Each invocation of its "trigger" operation delivers one fresh
// message to the listener.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/operion-triggered/pkg/lifecycle"
	"github.com/dukex/operion-triggered/pkg/management"
	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/protocol"
)

const (
	// ObjectNamePrefix scopes every remote trigger in the management registry.
	ObjectNamePrefix = "operion:type=TriggeredChannel,uid="

	TriggerOperation = "trigger"

	source = "management"
)

var (
	ErrUniqueIDRequired = errors.New("unique id is required")
	ErrRegistryRequired = errors.New("management registry is required")
	ErrNoListener       = errors.New("no listener registered")
)

type Consumer struct {
	UniqueID string

	registry *management.Registry
	factory  models.MessageFactory
	tracker  *lifecycle.Tracker
	logger   *slog.Logger

	mu       sync.RWMutex
	listener protocol.MessageListener
}

func New(uniqueID string, registry *management.Registry, factory models.MessageFactory, logger *slog.Logger) *Consumer {
	return &Consumer{
		UniqueID: uniqueID,
		registry: registry,
		factory:  models.FactoryOrDefault(factory),
		tracker:  lifecycle.NewTracker(),
		logger:   logger.With("module", "remote_consumer", "unique_id", uniqueID),
	}
}

// ObjectName is the name the consumer registers under.
func ObjectName(uniqueID string) string {
	return ObjectNamePrefix + uniqueID
}

func (c *Consumer) ObjectName() string {
	return ObjectName(c.UniqueID)
}

func (c *Consumer) RegisterListener(listener protocol.MessageListener) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listener = listener
}

func (c *Consumer) Init(context.Context) error {
	if c.UniqueID == "" {
		return protocol.NewConfigurationError("remote consumer", "unique_id", ErrUniqueIDRequired)
	}

	if c.registry == nil {
		return protocol.NewConfigurationError("remote consumer", "registry", ErrRegistryRequired)
	}

	if c.tracker.ToInit() {
		c.tracker.Set(models.StateInitialised)
	}

	return nil
}

// Start makes the trigger operation reachable.
func (c *Consumer) Start(ctx context.Context) error {
	ok, err := c.tracker.ToStart()
	if err != nil || !ok {
		return err
	}

	err = c.registry.Register(c.ObjectName(), management.Operations{
		TriggerOperation: c.Trigger,
	})
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", c.ObjectName(), err)
	}

	c.tracker.Set(models.StateStarted)
	c.logger.InfoContext(ctx, "Registered remote trigger", "name", c.ObjectName())

	return nil
}

// Stop removes the trigger operation; later invocations fail with
// management.ErrInstanceNotFound.
func (c *Consumer) Stop(ctx context.Context) error {
	if !c.tracker.ToStop() {
		return nil
	}

	if err := c.registry.Unregister(c.ObjectName()); err != nil && !errors.Is(err, management.ErrInstanceNotFound) {
		return err
	}

	c.tracker.Set(models.StateStopped)
	c.logger.InfoContext(ctx, "Unregistered remote trigger", "name", c.ObjectName())

	return nil
}

func (c *Consumer) Close(ctx context.Context) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}

	c.tracker.Set(models.StateClosed)

	return nil
}

func (c *Consumer) State() models.State {
	return c.tracker.State()
}

// Trigger delivers a new message to the listener and returns its result.
func (c *Consumer) Trigger(ctx context.Context) error {
	c.mu.RLock()
	listener := c.listener
	c.mu.RUnlock()

	if listener == nil {
		return ErrNoListener
	}

	msg := c.factory(nil)
	msg.SetHeader(models.MetadataTriggerSource, source)

	c.logger.InfoContext(ctx, "Remote trigger invoked", "message_id", msg.ID)

	return listener.OnMessage(ctx, msg)
}

var _ protocol.Consumer = (*Consumer)(nil)
