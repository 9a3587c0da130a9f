// Package backend wraps the native audio playback capability behind a
// narrow interface so the engine logic stays unit-testable against a fake.
package backend

import "time"

// Interface defines the media backend contract for dependency injection
// and testing. Callers serialize access; implementations only need to
// protect state mutated from their own internal goroutines.
type Interface interface {
	// Load opens and decodes the media at path, replacing any loaded media.
	Load(path string) error
	// Play starts playback of loaded media, or resumes when paused.
	Play() bool
	// Pause pauses playback.
	Pause() bool
	// Stop halts playback but keeps the backend usable for another Load.
	Stop() bool
	// SetPosition seeks within the loaded media.
	SetPosition(offset time.Duration) bool
	// Position returns the current media offset. ok is false when no
	// media is loaded or the position cannot be read.
	Position() (offset time.Duration, ok bool)
	// Duration returns the loaded media's duration, or 0 when none.
	Duration() time.Duration
	State() State
	// SetRate sets the playback speed multiplier (1.0 = realtime).
	SetRate(rate float64) bool
	// SetVolume sets output gain as a percentage (100 = unity).
	SetVolume(pct int) bool
	// Release tears the backend down; the instance is unusable afterwards.
	Release()
}

// Verify implementations satisfy Interface at compile time.
var (
	_ Interface = (*Backend)(nil)
	_ Interface = (*Mock)(nil)
)
