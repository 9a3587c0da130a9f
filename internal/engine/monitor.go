package engine

import (
	"time"
)

// monitor is the background loop that watches the backend while playing,
// drives automatic segment advance near a segment's end, detects terminal
// backend states, and delivers position callbacks.
//
// At most one monitor is attached to an engine at a time. A new one is never
// started before the previous one has been signalled and (best effort)
// joined; a detached monitor that missed the signal exits on its next cycle
// when it finds it is no longer the attached instance.
type monitor struct {
	engine *Engine
	stop   chan struct{}
	done   chan struct{}
}

// cycleAction tells the monitor loop what to do after one inspection of the
// engine and backend.
type cycleAction int

const (
	cycleSleep cycleAction = iota
	cycleExit
	cycleAdvance
	cycleReport
)

// cycleResult carries the monitor's decision out of the locked inspection.
type cycleResult struct {
	action cycleAction
	next   time.Time // advance target, for cycleAdvance
	pos    time.Time // absolute position, for cycleReport
	seq    uint64    // session generation observed, for cycleAdvance
}

// startMonitorLocked attaches and starts a fresh monitor. Caller holds e.mu
// and has already detached any previous monitor.
func (e *Engine) startMonitorLocked() {
	m := &monitor{
		engine: e,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.mon = m
	go m.run(e.pollInterval)
}

// detachMonitorLocked removes the attached monitor and raises its stop
// signal. Caller holds e.mu. Returns the detached monitor, or nil.
func (e *Engine) detachMonitorLocked() *monitor {
	m := e.mon
	if m == nil {
		return nil
	}
	e.mon = nil
	close(m.stop)
	return m
}

// joinMonitor waits for a detached monitor to finish, bounded by the join
// timeout. A timeout is non-fatal: the loop re-checks its stop signal every
// cycle and terminates on its own.
func (e *Engine) joinMonitor(m *monitor) {
	if m == nil {
		return
	}
	select {
	case <-m.done:
	case <-time.After(e.joinTimeout):
		e.log.Warn().Msg("engine: monitor join timed out, loop will self-terminate")
	}
}

func (m *monitor) stopRequested() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

func (m *monitor) run(interval time.Duration) {
	defer close(m.done)

	for {
		if m.stopRequested() {
			return
		}

		res := m.engine.monitorCycle(m)
		switch res.action {
		case cycleExit:
			return
		case cycleAdvance:
			// A successful advance spawns the next monitor itself; either
			// way this loop is finished.
			if !m.engine.play(&res.next, nil, m, res.seq) {
				m.engine.log.Debug().Time("next", res.next).Msg("engine: auto-advance lost to a concurrent command")
			}
			return
		case cycleReport:
			m.engine.reportPosition(res.pos)
		case cycleSleep:
		}

		select {
		case <-m.stop:
			return
		case <-time.After(interval):
		}
	}
}

// monitorCycle inspects the session and backend under the lock and decides
// the monitor's next action.
func (e *Engine) monitorCycle(m *monitor) cycleResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Superseded: another monitor owns the session now.
	if e.mon != m {
		return cycleResult{action: cycleExit}
	}

	if st := e.backend.State(); st.IsTerminal() {
		e.log.Debug().Stringer("backend_state", st).Msg("engine: terminal backend state, stopping")
		e.current = nil
		e.state = StateStopped
		e.seq++
		e.mon = nil
		return cycleResult{action: cycleExit}
	}

	// Paused sessions idle along; nothing to advance or report.
	if e.state != StatePlaying || e.current == nil {
		return cycleResult{action: cycleSleep}
	}

	offset, ok := e.backend.Position()
	if !ok {
		return cycleResult{action: cycleSleep}
	}

	if offset >= e.current.Duration-e.endEpsilon {
		return cycleResult{
			action: cycleAdvance,
			next:   e.current.End().Add(advanceStep),
			seq:    e.seq,
		}
	}

	if e.onPosition == nil {
		return cycleResult{action: cycleSleep}
	}
	return cycleResult{action: cycleReport, pos: e.segmentStart.Add(offset)}
}

// reportPosition delivers the absolute position to the registered callback.
// A panicking callback is logged and deregistered; it never aborts the loop.
func (e *Engine) reportPosition(at time.Time) {
	e.mu.Lock()
	cb := e.onPosition
	e.mu.Unlock()
	if cb == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().Interface("panic", r).Msg("engine: position callback failed, deregistering")
			e.mu.Lock()
			e.onPosition = nil
			e.mu.Unlock()
		}
	}()
	cb(at)
}
