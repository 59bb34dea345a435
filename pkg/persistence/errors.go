// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrCycleNotFound indicates a cycle record was not found by the given identifier.
	ErrCycleNotFound = errors.New("cycle not found")

	// ErrInvalidCycle indicates a cycle record without an id or channel id.
	ErrInvalidCycle = errors.New("invalid cycle record")
)

// RecordError wraps cycle record errors with additional context.
type RecordError struct {
	Op      string // Operation being performed (e.g., "CycleByID", "Save")
	CycleID string // Cycle ID if applicable
	Err     error  // Underlying error
}

func (e *RecordError) Error() string {
	if e.CycleID == "" {
		return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("%s operation failed for cycle %s: %v", e.Op, e.CycleID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRecordError creates a new record error with context.
func NewRecordError(op, cycleID string, err error) *RecordError {
	return &RecordError{
		Op:      op,
		CycleID: cycleID,
		Err:     err,
	}
}

// IsCycleNotFound checks if an error indicates a cycle record was not found.
func IsCycleNotFound(err error) bool {
	return errors.Is(err, ErrCycleNotFound)
}
