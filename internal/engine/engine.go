// Package engine drives continuous playback of a channel's segments along
// an absolute timeline: seek to any instant, play across segment boundaries,
// and report the absolute position for synchronization with external views.
package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jvaillant/retrace/internal/backend"
	"github.com/jvaillant/retrace/internal/timeline"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultEndEpsilon   = 200 * time.Millisecond
	defaultJoinTimeout  = 500 * time.Millisecond

	// advanceStep is added to a finished segment's end when computing the
	// next play instant, so re-resolution lands inside the next segment
	// rather than on the boundary of the finished one.
	advanceStep = 10 * time.Millisecond
)

// PositionFunc receives the absolute playback position, once per monitor
// cycle while playing.
type PositionFunc func(at time.Time)

// Engine owns the media backend and the mutable playback session. All
// session and backend mutation is serialized by a single mutex; the channel
// data is read-only and needs no locking.
type Engine struct {
	mu  sync.Mutex
	log zerolog.Logger

	backend  backend.Interface
	channels map[string]*timeline.Channel
	released bool

	// session, guarded by mu
	active        *timeline.Channel
	current       *timeline.Segment
	segmentStart  time.Time
	rate          float64
	amplification int
	state         PlaybackState
	onPosition    PositionFunc
	resumeTarget  *time.Time

	// seq increments on every session transition. A monitor-driven advance
	// carries the seq it observed and aborts when the session has moved on,
	// so a stale advance can never restart playback after a Stop.
	seq uint64

	mon *monitor

	// tunables, fixed after construction except in tests
	pollInterval time.Duration
	endEpsilon   time.Duration
	joinTimeout  time.Duration
}

// New creates an engine over the given backend and channels. The first
// channel becomes active. A nil backend yields a disabled engine: every
// command returns false and every query reports nothing, so a missing audio
// device degrades the whole surface instead of crashing it.
func New(b backend.Interface, channels []*timeline.Channel, log zerolog.Logger) *Engine {
	e := &Engine{
		log:          log,
		backend:      b,
		channels:     make(map[string]*timeline.Channel, len(channels)),
		rate:         1.0,
		state:        StateStopped,
		pollInterval: defaultPollInterval,
		endEpsilon:   defaultEndEpsilon,
		joinTimeout:  defaultJoinTimeout,
	}
	for _, c := range channels {
		e.channels[c.Name()] = c
	}
	if len(channels) > 0 {
		e.active = channels[0]
	}
	if b == nil {
		log.Warn().Msg("engine: no media backend available, playback disabled")
	}
	return e
}

// Play starts playback of the active channel at the given absolute instant.
// A nil instant plays from a pending seek target if one was recorded while
// idle, otherwise from the channel start. A non-nil onPosition replaces the
// registered position callback; nil keeps the current one.
//
// Any current playback is stopped first (monitor signalled and joined with a
// bounded timeout). Returns false when the engine is disabled, no channel is
// active, the instant cannot be resolved, or any backend command fails; a
// backend failure reverts the session to Stopped.
func (e *Engine) Play(at *time.Time, onPosition PositionFunc) bool {
	return e.play(at, onPosition, nil, 0)
}

// play is the shared entry for caller-issued and monitor-issued playback.
// from is the monitor driving an automatic advance (nil for callers) and
// fromSeq the session generation it observed when deciding to advance.
func (e *Engine) play(at *time.Time, onPosition PositionFunc, from *monitor, fromSeq uint64) bool {
	e.mu.Lock()
	if e.backend == nil || e.released {
		e.mu.Unlock()
		return false
	}
	// An advance from a monitor that is no longer attached, or whose view
	// of the session is stale, lost the race against a foreground command
	// and must not restart playback.
	if from != nil && (e.mon != from || e.seq != fromSeq) {
		e.mu.Unlock()
		e.log.Debug().Msg("engine: superseded monitor advance ignored")
		return false
	}
	prev := e.detachMonitorLocked()
	e.mu.Unlock()

	if prev != nil && prev != from {
		e.joinMonitor(prev)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if from != nil && e.seq != fromSeq {
		e.log.Debug().Msg("engine: superseded monitor advance ignored")
		return false
	}
	return e.playLocked(at, onPosition)
}

// playLocked performs resolve → load → play → position under the lock and
// starts exactly one fresh monitor on success.
func (e *Engine) playLocked(at *time.Time, onPosition PositionFunc) bool {
	// Another command may have slipped in while the previous monitor was
	// being joined; make sure no monitor survives into the new session.
	e.detachMonitorLocked()

	if e.active == nil {
		e.log.Warn().Msg("engine: play with no active channel")
		return false
	}
	if at == nil && e.resumeTarget != nil {
		at = e.resumeTarget
	}
	e.resumeTarget = nil

	seg, offset, err := e.active.Locate(at)
	if err != nil {
		e.log.Warn().Err(err).Str("channel", e.active.Name()).Msg("engine: cannot resolve play instant")
		return false
	}

	if err := e.backend.Load(seg.Path); err != nil {
		e.log.Error().Err(err).Str("segment", seg.Path).Msg("engine: load failed")
		e.revertLocked()
		return false
	}
	if !e.backend.Play() {
		e.log.Error().Str("segment", seg.Path).Msg("engine: backend play failed")
		e.revertLocked()
		return false
	}
	if !e.backend.SetPosition(offset) {
		e.log.Error().Str("segment", seg.Path).Dur("offset", offset).Msg("engine: backend seek failed")
		e.revertLocked()
		return false
	}
	// Some backends report their previous state for a short while after a
	// play command; that lag is tolerated, the monitor sorts it out.
	if st := e.backend.State(); st != backend.Playing {
		e.log.Debug().Stringer("backend_state", st).Msg("engine: backend state lagging after play")
	}

	e.current = &seg
	e.segmentStart = seg.Start
	e.state = StatePlaying
	e.seq++
	if onPosition != nil {
		e.onPosition = onPosition
	}
	e.startMonitorLocked()

	e.log.Debug().
		Str("channel", e.active.Name()).
		Str("segment", seg.Path).
		Dur("offset", offset).
		Msg("engine: playing")
	return true
}

// revertLocked puts the session back into a clean Stopped state after a
// backend command failure.
func (e *Engine) revertLocked() {
	e.backend.Stop()
	e.current = nil
	e.state = StateStopped
	e.seq++
}

// Pause pauses playback. Effective only when both the session and the
// backend agree playback is running.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil || e.released {
		return false
	}
	if e.state != StatePlaying || e.backend.State() != backend.Playing {
		return false
	}
	if !e.backend.Pause() {
		return false
	}
	e.state = StatePaused
	e.seq++
	return true
}

// Resume resumes paused playback. Effective only when both the session and
// the backend agree playback is paused.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil || e.released {
		return false
	}
	if e.state != StatePaused || e.backend.State() != backend.Paused {
		return false
	}
	if !e.backend.Play() {
		return false
	}
	e.state = StatePlaying
	e.seq++
	return true
}

// Stop halts playback, joins the monitor (best effort, bounded timeout) and
// clears the current segment. Returns false when already stopped.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	if e.backend == nil || e.released || e.state == StateStopped {
		e.mu.Unlock()
		return false
	}
	m := e.detachMonitorLocked()
	e.mu.Unlock()

	e.joinMonitor(m)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateStopped {
		// The monitor observed a terminal backend while we were joining.
		return false
	}
	e.backend.Stop()
	e.current = nil
	e.state = StateStopped
	e.seq++
	return true
}

// SeekToTime repositions playback to the given absolute instant. When the
// instant resolves into the currently loaded segment the backend is merely
// repositioned (no reload, no new monitor); otherwise this is a full Play.
func (e *Engine) SeekToTime(at time.Time) bool {
	e.mu.Lock()
	if e.backend == nil || e.released || e.active == nil {
		e.mu.Unlock()
		return false
	}
	seg, offset, err := e.active.Locate(&at)
	if err != nil {
		e.mu.Unlock()
		e.log.Warn().Err(err).Msg("engine: cannot resolve seek instant")
		return false
	}

	if e.current != nil && e.state != StateStopped && sameSegment(*e.current, seg) {
		ok := e.backend.SetPosition(offset)
		// The session can say Playing while the backend has drifted into a
		// paused or ended state (e.g. a missed end-of-media); re-issue play.
		if ok && e.state == StatePlaying && e.backend.State() != backend.Playing {
			e.backend.Play()
		}
		e.mu.Unlock()
		return ok
	}
	e.mu.Unlock()

	return e.play(&at, nil, nil, 0)
}

func sameSegment(a, b timeline.Segment) bool {
	return a.Path == b.Path && a.Start.Equal(b.Start)
}

// SetResumeTarget records an instant to start from the next time Play is
// called without an explicit timestamp. Used for seeks arriving while idle.
func (e *Engine) SetResumeTarget(at time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil || e.released {
		return false
	}
	t := at
	e.resumeTarget = &t
	return true
}

// CurrentPosition returns the absolute playback position: the current
// segment's start plus the backend's media offset. ok is false when nothing
// is loaded or the backend cannot report a position.
func (e *Engine) CurrentPosition() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil || e.released || e.current == nil {
		return time.Time{}, false
	}
	pos, ok := e.backend.Position()
	if !ok {
		return time.Time{}, false
	}
	return e.segmentStart.Add(pos), true
}

// SetActiveChannel switches the engine to the named channel, stopping any
// current playback. Switching to the already-active channel is a no-op.
func (e *Engine) SetActiveChannel(name string) bool {
	e.mu.Lock()
	if e.backend == nil || e.released {
		e.mu.Unlock()
		return false
	}
	if e.active != nil && e.active.Name() == name {
		e.mu.Unlock()
		return true
	}
	c, ok := e.channels[name]
	if !ok {
		e.mu.Unlock()
		e.log.Warn().Str("channel", name).Msg("engine: unknown channel")
		return false
	}
	m := e.detachMonitorLocked()
	e.mu.Unlock()

	e.joinMonitor(m)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return false
	}
	// A Play that slipped in while the monitor was being joined belongs to
	// the old channel; halt it before the swap so the session never plays
	// one channel's segment while another channel is active. The freshly
	// detached monitor self-terminates on its next flag check.
	e.detachMonitorLocked()
	if e.state != StateStopped {
		e.backend.Stop()
		e.current = nil
		e.state = StateStopped
	}
	e.active = c
	e.resumeTarget = nil
	e.seq++
	return true
}

// ActiveChannel returns the active channel name, or "" when none.
func (e *Engine) ActiveChannel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == nil {
		return ""
	}
	return e.active.Name()
}

// Channels returns the names of all known channels.
func (e *Engine) Channels() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.channels))
	for name := range e.channels {
		names = append(names, name)
	}
	return names
}

// SetPlaybackRate sets the playback speed multiplier. Must be positive.
func (e *Engine) SetPlaybackRate(rate float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil || e.released || rate <= 0 {
		return false
	}
	if !e.backend.SetRate(rate) {
		return false
	}
	e.rate = rate
	return true
}

// SetAmplification sets the gain level in decibels. Only 0, 20 and 40 are
// accepted, mapped to 100/200/400% backend volume.
func (e *Engine) SetAmplification(db int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil || e.released {
		return false
	}
	var pct int
	switch db {
	case 0:
		pct = 100
	case 20:
		pct = 200
	case 40:
		pct = 400
	default:
		return false
	}
	if !e.backend.SetVolume(pct) {
		return false
	}
	e.amplification = db
	return true
}

// SetPollInterval adjusts the monitor poll cadence. Takes effect for the
// next monitor started; call before playback begins.
func (e *Engine) SetPollInterval(d time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d <= 0 {
		return false
	}
	e.pollInterval = d
	return true
}

// IsPlaying reports whether the session is in the Playing state.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StatePlaying
}

// State returns the session state.
func (e *Engine) State() PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsTerminal reports whether the backend can no longer progress: it reports
// Ended, Stopped or Error, or there is no backend at all.
func (e *Engine) IsTerminal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil || e.released {
		return true
	}
	return e.backend.State().IsTerminal()
}

// Release stops playback and releases the backend. Safe to call more than
// once; the engine is disabled afterwards.
func (e *Engine) Release() {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return
	}
	m := e.detachMonitorLocked()
	e.mu.Unlock()

	e.joinMonitor(m)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.released {
		return
	}
	if e.backend != nil {
		e.backend.Stop()
		e.backend.Release()
	}
	e.current = nil
	e.onPosition = nil
	e.state = StateStopped
	e.seq++
	e.released = true
}
