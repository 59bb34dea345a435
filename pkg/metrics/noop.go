package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

// OrNoop returns s, or a NoopSink when s is nil.
func OrNoop(s Sink) Sink {
	if s == nil {
		return NewNoopSink()
	}
	return s
}

func (n *NoopSink) CycleStarted(channelID string)                                   {}
func (n *NoopSink) CycleFinished(channelID, outcome string, duration time.Duration) {}
func (n *NoopSink) TriggerRejected(channelID string)                                {}
func (n *NoopSink) WorkerFailed(channelID, workflowID string)                       {}
func (n *NoopSink) RetryScheduled()                                                 {}
func (n *NoopSink) RetryExhausted()                                                 {}
func (n *NoopSink) RetriesPending(count int)                                        {}
