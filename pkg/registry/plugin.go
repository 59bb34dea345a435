package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"

	"github.com/dukex/operion-triggered/pkg/protocol"
)

// Exported symbol names looked up in plugin shared objects.
const (
	ConsumerSymbol = "Consumer"
	ProducerSymbol = "Producer"
	ServiceSymbol  = "Service"
	ProviderSymbol = "Provider"
)

var ErrPluginSymbol = errors.New("plugin symbol has an unexpected type")

// LoadPlugins registers every factory found under pluginsPath. Shared objects
// are looked up in one subdirectory per kind: consumers, producers, services
// and providers. A missing subdirectory is not an error.
func (r *Registry) LoadPlugins(pluginsPath string) error {
	consumers, err := loadPlugin[protocol.ConsumerFactory](r.logger, pluginsPath, ConsumerSymbol)
	if err != nil {
		return err
	}

	producers, err := loadPlugin[protocol.ProducerFactory](r.logger, pluginsPath, ProducerSymbol)
	if err != nil {
		return err
	}

	services, err := loadPlugin[protocol.ServiceFactory](r.logger, pluginsPath, ServiceSymbol)
	if err != nil {
		return err
	}

	providers, err := loadPlugin[protocol.ProviderFactory](r.logger, pluginsPath, ProviderSymbol)
	if err != nil {
		return err
	}

	for _, f := range consumers {
		r.RegisterConsumer(f)
	}

	for _, f := range producers {
		r.RegisterProducer(f)
	}

	for _, f := range services {
		r.RegisterService(f)
	}

	for _, f := range providers {
		r.RegisterProvider(f)
	}

	return nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := filepath.Join(pluginsPath, kindDir(symbolName))

	if _, err := os.Stat(rootPath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*/*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins", "count", len(pluginPathList))

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(filepath.Join(rootPath, p))
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s in plugin %s: %w", symbolName, p, err)
		}

		castV, ok := castSymbol[T](v)
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s is %T", ErrPluginSymbol, symbolName, p, v)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}

// castSymbol accepts both an exported value and a pointer to it, since
// Lookup returns a pointer for package-level variables.
func castSymbol[T any](v plugin.Symbol) (T, bool) {
	if castV, ok := v.(T); ok {
		return castV, true
	}

	if ptr, ok := v.(*T); ok && ptr != nil {
		return *ptr, true
	}

	var zero T

	return zero, false
}

func kindDir(symbolName string) string {
	switch symbolName {
	case ConsumerSymbol:
		return "consumers"
	case ProducerSymbol:
		return "producers"
	case ServiceSymbol:
		return "services"
	default:
		return "providers"
	}
}
