package protocol

import (
	"log/slog"

	"github.com/dukex/operion-triggered/pkg/management"
	"github.com/dukex/operion-triggered/pkg/models"
)

// ProviderBuilder resolves a message provider by type id.
type ProviderBuilder func(providerType string, config map[string]any, deps Dependencies) (MessageProvider, error)

// Dependencies are handed to factories when they create a component.
type Dependencies struct {
	Logger *slog.Logger

	// Management is the process-wide registry of remotely invokable instances.
	Management *management.Registry

	// Connection is the connection the created component is registered on.
	Connection Connection

	MessageFactory models.MessageFactory

	Providers ProviderBuilder
}

// Descriptor is the metadata every factory exposes.
type Descriptor interface {
	// ID returns the unique identifier for this component type
	ID() string

	// Name returns the human-readable name for this component type
	Name() string

	// Description returns a description of what this component does
	Description() string

	// Schema returns the JSON schema for configuring this component
	Schema() map[string]any
}

type ConsumerFactory interface {
	Descriptor

	Create(config map[string]any, deps Dependencies) (Consumer, error)
}

type ProducerFactory interface {
	Descriptor

	Create(config map[string]any, deps Dependencies) (Producer, error)
}

type ServiceFactory interface {
	Descriptor

	Create(config map[string]any, deps Dependencies) (Service, error)
}

type ProviderFactory interface {
	Descriptor

	Create(config map[string]any, deps Dependencies) (MessageProvider, error)
}
