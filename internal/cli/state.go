package cli

// State is a step of the send workflow. A run moves strictly forward through
// Idle, Resolving, Validating, Sending and ends in Done or Failed.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateValidating
	StateSending
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateValidating:
		return "validating"
	case StateSending:
		return "sending"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
