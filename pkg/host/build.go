package host

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/connection"
	"github.com/dukex/operion-triggered/pkg/errorhandler"
	"github.com/dukex/operion-triggered/pkg/eventhandler"
	"github.com/dukex/operion-triggered/pkg/null"
	"github.com/dukex/operion-triggered/pkg/protocol"
	"github.com/dukex/operion-triggered/pkg/registry"
	"github.com/dukex/operion-triggered/pkg/trigger"
	"github.com/dukex/operion-triggered/pkg/triggered"
	"github.com/dukex/operion-triggered/pkg/workflow"
)

// EventHandlerNone drops workflow events.
const EventHandlerNone = "none"

func (h *Host) buildChannel(cfg config.Channel) (*triggered.Channel, error) {
	logger := h.logger.With("channel_id", cfg.ID)

	triggerConn, err := h.newConnection(cfg.Trigger.Connection)
	if err != nil {
		return nil, err
	}

	produceConn, err := h.newConnection(cfg.ProduceConnection)
	if err != nil {
		return nil, err
	}

	consumeConn, err := h.newConnection(cfg.ConsumeConnection)
	if err != nil {
		return nil, err
	}

	deps := protocol.Dependencies{
		Logger:         logger,
		Management:     h.management,
		MessageFactory: h.factory,
		Providers:      h.registry.ProviderBuilder(),
	}

	triggerDeps := deps
	triggerDeps.Connection = triggerConn

	opts := []trigger.Option{trigger.WithConnection(triggerConn)}

	consumer, err := h.registry.CreateConsumer(cfg.Trigger.Consumer.Type, cfg.Trigger.Consumer.Settings, triggerDeps)
	if err != nil {
		return nil, fmt.Errorf("trigger consumer: %w", err)
	}

	opts = append(opts, trigger.WithConsumer(consumer))

	if cfg.Trigger.Producer != nil {
		producer, err := h.registry.CreateProducer(cfg.Trigger.Producer.Type, cfg.Trigger.Producer.Settings, triggerDeps)
		if err != nil {
			return nil, fmt.Errorf("trigger producer: %w", err)
		}

		opts = append(opts, trigger.WithProducer(producer))
	}

	errorHandler, err := h.buildErrorHandler(cfg.ErrorHandler, triggerDeps)
	if err != nil {
		return nil, err
	}

	workflows := make([]protocol.Workflow, 0, len(cfg.Workflows))

	for _, wfCfg := range cfg.Workflows {
		wf, err := h.buildWorkflow(wfCfg, deps, consumeConn, produceConn)
		if err != nil {
			return nil, fmt.Errorf("workflow %s: %w", wfCfg.ID, err)
		}

		workflows = append(workflows, wf)
	}

	var eventHandler protocol.EventHandler
	if cfg.EventHandler.Type == EventHandlerNone {
		eventHandler = null.NewEventHandler()
	}

	return triggered.New(triggered.Config{
		ID:                  cfg.ID,
		Trigger:             trigger.New(opts...),
		Workflows:           workflows,
		ErrorHandler:        errorHandler,
		EventHandler:        eventHandler,
		DefaultEventHandler: eventhandler.NewBus(h.bus, logger),
		ProduceConnection:   produceConn,
		ConsumeConnection:   consumeConn,
		MessageFactory:      h.factory,
		ProbeBackoff:        cfg.ProbeBackoff,
		Logger:              h.logger,
		Tracer:              h.tracer,
		Metrics:             h.metrics,
		History:             h.history,
		EventBus:            h.bus,
	}), nil
}

// buildErrorHandler creates the retry handler of a channel. Its failure
// producer runs on the trigger connection, which lives as long as the
// channel.
func (h *Host) buildErrorHandler(cfg config.ErrorHandler, deps protocol.Dependencies) (*errorhandler.Retry, error) {
	var failure protocol.Producer

	if cfg.FailureProducer != nil {
		p, err := h.registry.CreateProducer(cfg.FailureProducer.Type, cfg.FailureProducer.Settings, deps)
		if err != nil {
			return nil, fmt.Errorf("failure producer: %w", err)
		}

		failure = p
	}

	return errorhandler.NewRetry(errorhandler.RetryConfig{
		RetryLimit:      cfg.RetryLimit,
		RetryInterval:   cfg.RetryInterval,
		FailureProducer: failure,
		Logger:          deps.Logger,
		Metrics:         h.metrics,
	}), nil
}

func (h *Host) buildWorkflow(cfg config.Workflow, deps protocol.Dependencies, consumeConn, produceConn protocol.Connection) (*workflow.Standard, error) {
	consumerDeps := deps
	consumerDeps.Connection = consumeConn

	consumer, err := h.registry.CreateConsumer(cfg.Consumer.Type, cfg.Consumer.Settings, consumerDeps)
	if err != nil {
		return nil, fmt.Errorf("consumer: %w", err)
	}

	services := make([]protocol.Service, 0, len(cfg.Services))

	for i, svcCfg := range cfg.Services {
		svc, err := h.registry.CreateService(svcCfg.Type, svcCfg.Settings, deps)
		if err != nil {
			return nil, fmt.Errorf("service %d: %w", i, err)
		}

		services = append(services, svc)
	}

	producerDeps := deps
	producerDeps.Connection = produceConn

	producer, err := h.registry.CreateProducer(cfg.Producer.Type, cfg.Producer.Settings, producerDeps)
	if err != nil {
		return nil, fmt.Errorf("producer: %w", err)
	}

	return workflow.New(workflow.Config{
		ID:       cfg.ID,
		Consumer: consumer,
		Services: services,
		Producer: producer,
		Logger:   deps.Logger,
	}), nil
}

// newConnection creates a fresh instance of the named connection, or a null
// connection when name is empty.
func (h *Host) newConnection(name string) (protocol.Connection, error) {
	if name == "" {
		return null.NewConnection(), nil
	}

	cfg, ok := h.cfg.Connections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownConnection, name)
	}

	logger := h.logger.With("connection", name)

	switch cfg.Type {
	case config.ConnectionRedis:
		return connection.NewRedis(cfg.Addr, cfg.Password, cfg.DB, logger), nil
	case config.ConnectionPubSub:
		if cfg.Transport.Type == config.TransportKafka {
			return connection.NewPubSub(func() (message.Publisher, message.Subscriber, error) {
				return NewPubSub(cfg.Transport, nil, nil, logger)
			}, logger), nil
		}

		return connection.NewSharedPubSub(h.local, h.local, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s has type %q", registry.ErrUnknownType, name, cfg.Type)
	}
}
