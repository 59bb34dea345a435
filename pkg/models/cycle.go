package models

import "time"

type CycleOutcome string

const (
	CycleOutcomeCompleted CycleOutcome = "completed"
	CycleOutcomeFailed    CycleOutcome = "failed"
	CycleOutcomeRejected  CycleOutcome = "rejected"
)

// CycleRecord is the history entry written for every trigger a channel receives.
type CycleRecord struct {
	ID            string       `json:"id"`
	ChannelID     string       `json:"channel_id"`
	MessageID     string       `json:"message_id"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`
	Outcome       CycleOutcome `json:"outcome"`
	Error         string       `json:"error,omitempty"`
	Workers       int          `json:"workers"`
	FailedWorkers int          `json:"failed_workers"`
}

func (r *CycleRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}
