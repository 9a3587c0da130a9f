package engine

// PlaybackState represents the engine's session state machine.
//
// Valid transitions:
//   - Stopped → Playing (via Play)
//   - Playing → Paused  (via Pause)
//   - Playing → Stopped (via Stop, or the monitor observing a terminal backend)
//   - Paused  → Playing (via Resume)
//   - Paused  → Stopped (via Stop)
//
// A segment transition is not a separate state: it is a stop+play pair
// performed atomically under the session lock.
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
)

// String returns the state name.
func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if playback is active (playing or paused).
func (s PlaybackState) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}
