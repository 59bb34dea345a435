// Package management exposes named, remotely invokable operations. A
// Registry is the process-wide table of registered instances; Server makes
// it reachable over HTTP and Client calls it.
package management

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	ErrInstanceNotFound  = errors.New("management instance not found")
	ErrOperationNotFound = errors.New("management operation not found")
	ErrAlreadyRegistered = errors.New("management instance already registered")
	ErrInvalidName       = errors.New("management instance name is required")
)

// Operation is a remotely invokable action.
type Operation func(ctx context.Context) error

// Operations maps operation names to their implementation.
type Operations map[string]Operation

// Instance describes a registered name and the operations it exposes.
type Instance struct {
	Name       string   `json:"name"`
	Operations []string `json:"operations"`
}

type Registry struct {
	mu        sync.RWMutex
	instances map[string]Operations
	logger    *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		instances: make(map[string]Operations),
		logger:    logger.With("module", "management_registry"),
	}
}

func (r *Registry) Register(name string, operations Operations) error {
	if name == "" {
		return ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	r.instances[name] = operations
	r.logger.Info("Registered management instance", "name", name)

	return nil
}

func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; !exists {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, name)
	}

	delete(r.instances, name)
	r.logger.Info("Unregistered management instance", "name", name)

	return nil
}

// Invoke runs operation on the instance registered as name. The registry
// lock is not held while the operation runs.
func (r *Registry) Invoke(ctx context.Context, name, operation string) error {
	r.mu.RLock()
	operations, exists := r.instances[name]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, name)
	}

	op, exists := operations[operation]
	if !exists {
		return fmt.Errorf("%w: %s on %s", ErrOperationNotFound, operation, name)
	}

	r.logger.DebugContext(ctx, "Invoking management operation", "name", name, "operation", operation)

	return op(ctx)
}

func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.instances[name]

	return exists
}

// Instances lists registered instances sorted by name.
func (r *Registry) Instances() []Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := make([]Instance, 0, len(r.instances))
	for name, operations := range r.instances {
		instances = append(instances, Instance{Name: name, Operations: operationNames(operations)})
	}

	slices.SortFunc(instances, func(a, b Instance) int {
		return strings.Compare(a.Name, b.Name)
	})

	return instances
}

func (r *Registry) Instance(name string) (Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	operations, exists := r.instances[name]
	if !exists {
		return Instance{}, fmt.Errorf("%w: %s", ErrInstanceNotFound, name)
	}

	return Instance{Name: name, Operations: operationNames(operations)}, nil
}

func operationNames(operations Operations) []string {
	return slices.Sorted(maps.Keys(operations))
}
