package triggered

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCompletionProbe means the configured error handler cannot report
	// when its retries are done, so a cycle could never safely end.
	ErrNotCompletionProbe = errors.New("error handler does not implement protocol.CompletionProbe")

	ErrIDRequired        = errors.New("channel id is required")
	ErrDuplicateWorkflow = errors.New("duplicate workflow id")
	ErrNilWorkflow       = errors.New("workflow is nil")

	// ErrCycleInProgress rejects a trigger received while a cycle is running.
	ErrCycleInProgress = errors.New("trigger cycle already in progress")

	ErrNotStarted = errors.New("channel is not started")
)

// Cycle stages reported by CycleError.
const (
	StageStartup = "startup"
	StageProduce = "produce"
)

// CycleError reports a cycle that could not complete. Stage tells whether
// the subsystems failed to start or the completion signal could not be produced.
type CycleError struct {
	ChannelID string
	CycleID   string
	Stage     string
	Err       error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("channel %s cycle %s failed during %s: %v", e.ChannelID, e.CycleID, e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// IsCycleInProgress reports whether err rejected an overlapping trigger.
func IsCycleInProgress(err error) bool {
	return errors.Is(err, ErrCycleInProgress)
}

// IsCycleError reports whether err is a *CycleError and returns it.
func IsCycleError(err error) (*CycleError, bool) {
	var cycleErr *CycleError
	ok := errors.As(err, &cycleErr)

	return cycleErr, ok
}
