package backend

// State represents the backend playback state machine.
type State int

const (
	Idle State = iota // media loaded, playback not started
	Playing
	Paused
	Buffering
	Ended
	Stopped
	Error
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Buffering:
		return "Buffering"
	case Ended:
		return "Ended"
	case Stopped:
		return "Stopped"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether playback can no longer progress from s.
func (s State) IsTerminal() bool {
	return s == Ended || s == Stopped || s == Error
}
