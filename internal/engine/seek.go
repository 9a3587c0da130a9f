package engine

import (
	"sync"
	"time"
)

const defaultDebounce = 50 * time.Millisecond

// SeekProcessor decouples high-frequency seek intents (a dragged chart
// cursor, scroll events) from the engine. Submissions arriving faster than
// the debounce interval are dropped; accepted ones go through the engine's
// fast/slow seek path, or are merely recorded when the engine is idle.
type SeekProcessor struct {
	mu       sync.Mutex
	engine   *Engine
	debounce time.Duration
	now      func() time.Time // injectable clock for tests
	last     time.Time        // last accepted submission
}

// NewSeekProcessor creates a processor for the given engine. A non-positive
// debounce selects the 50 ms default.
func NewSeekProcessor(e *Engine, debounce time.Duration) *SeekProcessor {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &SeekProcessor{
		engine:   e,
		debounce: debounce,
		now:      time.Now,
	}
}

// Submit routes a seek intent to the engine. Returns false when the intent
// was debounced away or the engine rejected it.
//
// While the engine is idle (stopped or paused) the target is only recorded;
// playback is not forced to start. The recorded target is applied by the
// next Play call that carries no explicit timestamp.
func (p *SeekProcessor) Submit(at time.Time) bool {
	p.mu.Lock()
	now := p.now()
	if !p.last.IsZero() && now.Sub(p.last) < p.debounce {
		p.mu.Unlock()
		return false
	}
	p.last = now
	p.mu.Unlock()

	if !p.engine.IsPlaying() {
		return p.engine.SetResumeTarget(at)
	}
	return p.engine.SeekToTime(at)
}
