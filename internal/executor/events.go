package executor

// State is the phase of a workflow run.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateCycleDetected
	StateSorted
	StateSynthesizing
	StateLaunching
	StateRunning
	StateCompletedSuccess
	StateCompletedFailure
	StateLaunchError
)

// Terminal reports whether a run in this state has finished.
func (s State) Terminal() bool {
	switch s {
	case StateCycleDetected, StateCompletedSuccess, StateCompletedFailure, StateLaunchError:
		return true
	}
	return false
}

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateCycleDetected:
		return "cycle_detected"
	case StateSorted:
		return "sorted"
	case StateSynthesizing:
		return "synthesizing"
	case StateLaunching:
		return "launching"
	case StateRunning:
		return "running"
	case StateCompletedSuccess:
		return "completed_success"
	case StateCompletedFailure:
		return "completed_failure"
	case StateLaunchError:
		return "launch_error"
	}
	return "unknown"
}

// Event is one progress notification from a run. Events are delivered in
// the order produced; terminal events appear exactly once, last.
type Event interface {
	isEvent()
}

// StatusEvent reports a phase change.
type StatusEvent struct {
	State   State
	Message string
}

// OutputEvent carries one plain line from the child's combined
// stdout/stderr stream.
type OutputEvent struct {
	Line string
}

// ActiveNodeEvent reports that the child is about to invoke the named
// instance; subsequent output lines belong to it.
type ActiveNodeEvent struct {
	InstanceID string
}

// FinishedEvent is the single terminal event of a run.
type FinishedEvent struct {
	State   State
	Success bool
	Message string
}

func (StatusEvent) isEvent()     {}
func (OutputEvent) isEvent()     {}
func (ActiveNodeEvent) isEvent() {}
func (FinishedEvent) isEvent()   {}
