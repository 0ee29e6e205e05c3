package pipeline

// State is the lifecycle state of a pipeline.
type State int

const (
	// StateIdle means Start has not been called.
	StateIdle State = iota

	// StateRunning means the stream is active.
	StateRunning

	// StateCompleted means the trigger source closed and all work drained.
	StateCompleted

	// StateFailed means a fetch error terminated the stream.
	StateFailed

	// StateCancelled means the pipeline was stopped or its context ended.
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}
