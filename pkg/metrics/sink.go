// Package metrics records controller activity.
package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations must not block or propagate errors.
type Sink interface {
	// Controller metrics
	CycleStarted(channelID string)
	CycleFinished(channelID, outcome string, duration time.Duration)
	TriggerRejected(channelID string)
	WorkerFailed(channelID, workflowID string)

	// Retry handler metrics
	RetryScheduled()
	RetryExhausted()
	RetriesPending(count int)
}

// Outcome constants for CycleFinished.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)
