package protocol

import (
	"context"

	"github.com/dukex/operion-triggered/pkg/models"
)

// Workflow moves messages from its consumer through services to its producer.
type Workflow interface {
	Component

	ID() string

	// FriendlyName identifies the workflow in logs and worker names.
	FriendlyName() string

	State() models.State
}

// PolledWorkflow is a workflow whose input is pulled rather than pushed.
// Poll performs the scan for the current activation and returns when it is done.
type PolledWorkflow interface {
	Workflow

	Poll(ctx context.Context) error
}

// Scanner is the work a poller drives: one pass over an input source.
type Scanner interface {
	ProcessMessages(ctx context.Context) (int, error)
}

// Poller decides when a Scanner runs.
type Poller interface {
	Component

	Register(scanner Scanner)

	// Bounded reports whether the poller stops on its own after one pass.
	Bounded() bool
}

// BoundedPoller runs its scanner on demand, at most once per activation.
type BoundedPoller interface {
	Poller

	Poll(ctx context.Context) (int, error)
}

// PollingConsumer is a consumer whose input is driven by a Poller.
type PollingConsumer interface {
	Consumer

	Poller() Poller
	Poll(ctx context.Context) (int, error)
}

// MessageProvider returns the next batch of messages available from a
// pull-based source. An empty batch means the source is drained.
type MessageProvider interface {
	Next(ctx context.Context) ([]*models.Message, error)
}
