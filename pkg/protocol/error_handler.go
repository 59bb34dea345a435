package protocol

import (
	"context"

	"github.com/dukex/operion-triggered/pkg/events"
	"github.com/dukex/operion-triggered/pkg/models"
)

// ErrorHandler takes ownership of messages a workflow failed to process.
type ErrorHandler interface {
	Component

	// HandleFailure is called with the failed message and its cause. The
	// handler may later redeliver the message to resubmit.
	HandleFailure(ctx context.Context, msg *models.Message, cause error, resubmit MessageListener) error
}

// CompletionProbe reports whether an error handler has no outstanding work.
// An error handler attached to a triggered channel must implement it.
type CompletionProbe interface {
	// ProcessingCompleted is true when nothing is queued for retry and
	// nothing is being retried, or when the handler no longer accepts work.
	ProcessingCompleted() bool
}

// CompletionNotifier is an optional companion to CompletionProbe. The
// returned channel is closed whenever the probe result may have changed.
// Callers must fetch a fresh channel after each wakeup.
type CompletionNotifier interface {
	Changed() <-chan struct{}
}

// EventHandler reports lifecycle events to an outside observer.
type EventHandler interface {
	Component

	Send(ctx context.Context, event events.Event) error
}

// Attachable is implemented by workflows that need the channel's error
// and event handlers before Init.
type Attachable interface {
	Attach(channelID string, errorHandler ErrorHandler, eventHandler EventHandler)
}
