package lifecycle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dukex/operion-triggered/pkg/models"
)

var ErrIllegalTransition = errors.New("illegal state transition")

// Tracker records the state of a component and decides whether a
// lifecycle call should run. Repeated calls for the current state are
// reported as no-ops rather than errors.
type Tracker struct {
	mu    sync.RWMutex
	state models.State
}

func NewTracker() *Tracker {
	return &Tracker{state: models.StateClosed}
}

func (t *Tracker) State() models.State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.state
}

func (t *Tracker) Set(state models.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = state
}

// ToInit reports whether Init should run. Init is only meaningful from closed.
func (t *Tracker) ToInit() bool {
	return t.State() == models.StateClosed
}

// ToStart reports whether Start should run. Starting a closed component is
// an error.
func (t *Tracker) ToStart() (bool, error) {
	switch state := t.State(); state {
	case models.StateInitialised, models.StateStopped:
		return true, nil
	case models.StateStarted:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, state, models.StateStarted)
	}
}

// ToStop reports whether Stop should run.
func (t *Tracker) ToStop() bool {
	return t.State() == models.StateStarted
}

// ToClose reports whether Close should run.
func (t *Tracker) ToClose() bool {
	return t.State() != models.StateClosed
}
