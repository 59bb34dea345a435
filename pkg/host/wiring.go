package host

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dukex/operion-triggered/pkg/config"
	"github.com/dukex/operion-triggered/pkg/eventbus"
	"github.com/dukex/operion-triggered/pkg/persistence"
	"github.com/dukex/operion-triggered/pkg/persistence/file"
	"github.com/dukex/operion-triggered/pkg/persistence/postgresql"
	"github.com/dukex/operion-triggered/pkg/transport"
)

// DefaultKafkaGroup is the consumer group suffix used when none is set.
const DefaultKafkaGroup = "operion-triggered"

// NewPubSub builds the watermill publisher and subscriber for t. Gochannel
// transports share the given in-process instance.
func NewPubSub(t config.Transport, local message.Publisher, localSub message.Subscriber, logger *slog.Logger) (message.Publisher, message.Subscriber, error) {
	switch t.Type {
	case config.TransportKafka:
		group := t.Group
		if group == "" {
			group = DefaultKafkaGroup
		}

		pub, sub, err := transport.NewKafka(t.Brokers, group, watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create kafka pub/sub: %w", err)
		}

		return pub, sub, nil
	case "", config.TransportGoChannel:
		return local, localSub, nil
	default:
		return nil, nil, fmt.Errorf("unsupported transport %q", t.Type)
	}
}

// NewEventBus returns the event bus carrying cycle and message events.
func NewEventBus(t config.Transport, local message.Publisher, localSub message.Subscriber, logger *slog.Logger) (*eventbus.WatermillEventBus, error) {
	pub, sub, err := NewPubSub(t, local, localSub, logger)
	if err != nil {
		return nil, err
	}

	return eventbus.NewWatermillEventBus(pub, sub), nil
}

// NewPersistence opens the cycle history named by databaseURL. Postgres urls
// select the postgresql store; file:// urls and plain paths the file store.
// An empty url disables the history and returns nil.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, rest, found := strings.Cut(databaseURL, "://")

	switch {
	case databaseURL == "":
		return nil, nil
	case found && (provider == "postgres" || provider == "postgresql"):
		db, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return db, nil
	case found && provider == "file":
		return file.NewPersistence(rest), nil
	case found:
		return nil, fmt.Errorf("unsupported persistence provider %q", provider)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}
