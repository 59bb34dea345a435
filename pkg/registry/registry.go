// Package registry resolves component type ids from configuration to the
// factories that build them.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/operion-triggered/pkg/protocol"
)

// Component kinds.
const (
	KindConsumer = "consumer"
	KindProducer = "producer"
	KindService  = "service"
	KindProvider = "provider"
)

var (
	ErrUnknownType   = errors.New("component type not registered")
	ErrInvalidConfig = errors.New("component configuration does not match its schema")
)

// ComponentInfo describes a registered factory.
type ComponentInfo struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	consumers map[string]protocol.ConsumerFactory
	producers map[string]protocol.ProducerFactory
	services  map[string]protocol.ServiceFactory
	providers map[string]protocol.ProviderFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		consumers: make(map[string]protocol.ConsumerFactory),
		producers: make(map[string]protocol.ProducerFactory),
		services:  make(map[string]protocol.ServiceFactory),
		providers: make(map[string]protocol.ProviderFactory),
	}
}

func (r *Registry) RegisterConsumer(factory protocol.ConsumerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.consumers[factory.ID()] = factory
}

func (r *Registry) RegisterProducer(factory protocol.ProducerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.producers[factory.ID()] = factory
}

func (r *Registry) RegisterService(factory protocol.ServiceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.services[factory.ID()] = factory
}

func (r *Registry) RegisterProvider(factory protocol.ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[factory.ID()] = factory
}

func (r *Registry) CreateConsumer(consumerType string, config map[string]any, deps protocol.Dependencies) (protocol.Consumer, error) {
	factory, err := lookup(r, r.consumers, KindConsumer, consumerType, config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config, r.withDefaults(deps, KindConsumer, consumerType))
}

func (r *Registry) CreateProducer(producerType string, config map[string]any, deps protocol.Dependencies) (protocol.Producer, error) {
	factory, err := lookup(r, r.producers, KindProducer, producerType, config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config, r.withDefaults(deps, KindProducer, producerType))
}

func (r *Registry) CreateService(serviceType string, config map[string]any, deps protocol.Dependencies) (protocol.Service, error) {
	factory, err := lookup(r, r.services, KindService, serviceType, config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config, r.withDefaults(deps, KindService, serviceType))
}

func (r *Registry) CreateProvider(providerType string, config map[string]any, deps protocol.Dependencies) (protocol.MessageProvider, error) {
	factory, err := lookup(r, r.providers, KindProvider, providerType, config)
	if err != nil {
		return nil, err
	}

	return factory.Create(config, r.withDefaults(deps, KindProvider, providerType))
}

// Validate checks config against the schema of the named factory.
func (r *Registry) Validate(kind, componentType string, config map[string]any) error {
	var (
		descriptor protocol.Descriptor
		err        error
	)

	switch kind {
	case KindConsumer:
		descriptor, err = find(r, r.consumers, kind, componentType)
	case KindProducer:
		descriptor, err = find(r, r.producers, kind, componentType)
	case KindService:
		descriptor, err = find(r, r.services, kind, componentType)
	case KindProvider:
		descriptor, err = find(r, r.providers, kind, componentType)
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrUnknownType, kind)
	}

	if err != nil {
		return err
	}

	return validateSchema(descriptor, config)
}

// Components lists every registered factory ordered by kind and id.
func (r *Registry) Components() []ComponentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ComponentInfo

	out = appendInfo(out, KindConsumer, r.consumers)
	out = appendInfo(out, KindProducer, r.producers)
	out = appendInfo(out, KindService, r.services)
	out = appendInfo(out, KindProvider, r.providers)

	return out
}

// ProviderBuilder exposes CreateProvider to factories of polling consumers.
func (r *Registry) ProviderBuilder() protocol.ProviderBuilder {
	return r.CreateProvider
}

func (r *Registry) withDefaults(deps protocol.Dependencies, kind, componentType string) protocol.Dependencies {
	if deps.Logger == nil {
		deps.Logger = r.logger
	}

	deps.Logger = deps.Logger.With("component", kind+"/"+componentType)

	if deps.Providers == nil {
		deps.Providers = r.CreateProvider
	}

	return deps
}

func find[F protocol.Descriptor](r *Registry, factories map[string]F, kind, componentType string) (F, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := factories[componentType]
	if !ok {
		var zero F

		return zero, fmt.Errorf("%w: %s type %q", ErrUnknownType, kind, componentType)
	}

	return factory, nil
}

func lookup[F protocol.Descriptor](r *Registry, factories map[string]F, kind, componentType string, config map[string]any) (F, error) {
	factory, err := find(r, factories, kind, componentType)
	if err != nil {
		return factory, err
	}

	return factory, validateSchema(factory, config)
}

func validateSchema(descriptor protocol.Descriptor, config map[string]any) error {
	schema := descriptor.Schema()
	if len(schema) == 0 {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", descriptor.ID(), err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}

	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, descriptor.ID(), strings.Join(details, "; "))
}

func appendInfo[F protocol.Descriptor](out []ComponentInfo, kind string, factories map[string]F) []ComponentInfo {
	for _, id := range slices.Sorted(maps.Keys(factories)) {
		f := factories[id]
		out = append(out, ComponentInfo{Kind: kind, ID: id, Name: f.Name(), Description: f.Description()})
	}

	return out
}
