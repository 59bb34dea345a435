package models

// State is the externally observable lifecycle state of a component.
type State string

const (
	StateClosed      State = "closed"
	StateInitialised State = "initialised"
	StateStarted     State = "started"
	StateStopped     State = "stopped"
)

func (s State) String() string {
	return string(s)
}

// Phase is the internal position of a triggered channel within a cycle.
// Phases are never reported as the channel State.
type Phase string

const (
	PhaseDormant      Phase = "dormant"
	PhaseInitializing Phase = "initializing"
	PhaseRunning      Phase = "running"
	PhaseDraining     Phase = "draining"
	PhaseClosed       Phase = "closed"
)

func (p Phase) String() string {
	return string(p)
}
