package svcctl

import "fmt"

// State is the raw service state reported by the service control manager.
type State uint32

const (
	StateStopped         State = 1
	StateStartPending    State = 2
	StateStopPending     State = 3
	StateRunning         State = 4
	StateContinuePending State = 5
	StatePausePending    State = 6
	StatePaused          State = 7
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStartPending:
		return "start pending"
	case StateStopPending:
		return "stop pending"
	case StateRunning:
		return "running"
	case StateContinuePending:
		return "continue pending"
	case StatePausePending:
		return "pause pending"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("unknown (%d)", uint32(s))
	}
}

// RunState is the three-way projection used by callers.
type RunState int

const (
	RunStopped RunState = iota
	RunRunning
	RunTransitioning
)

func (r RunState) String() string {
	switch r {
	case RunStopped:
		return "stopped"
	case RunRunning:
		return "running"
	default:
		return "transitioning"
	}
}

// Run projects s onto RunState. Paused counts as transitioning.
func (s State) Run() RunState {
	switch s {
	case StateStopped:
		return RunStopped
	case StateRunning:
		return RunRunning
	default:
		return RunTransitioning
	}
}
