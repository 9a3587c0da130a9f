package backend

import (
	"sync"
	"time"
)

// Mock is a test double for the media backend.
type Mock struct {
	mu sync.Mutex

	state     State
	position  time.Duration
	posOK     bool
	duration  time.Duration
	loaded    string
	rate      float64
	volumePct int
	released  bool

	loadErr error
	playOK  bool
	seekOK  bool

	loadCalls        []string
	playCalls        int
	pauseCalls       int
	stopCalls        int
	setPositionCalls []time.Duration
	setRateCalls     []float64
	setVolumeCalls   []int
}

// NewMock creates a mock backend in the Stopped state.
func NewMock() *Mock {
	return &Mock{
		state:     Stopped,
		posOK:     true,
		rate:      1.0,
		volumePct: 100,
		playOK:    true,
		seekOK:    true,
	}
}

func (m *Mock) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, path)
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded = path
	m.position = 0
	m.state = Idle
	return nil
}

func (m *Mock) Play() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls++
	if !m.playOK {
		return false
	}
	switch m.state {
	case Idle, Paused, Playing:
		m.state = Playing
		return true
	default:
		return false
	}
}

func (m *Mock) Pause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	if m.state != Playing {
		return false
	}
	m.state = Paused
	return true
}

func (m *Mock) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	if m.state == Stopped {
		return false
	}
	m.loaded = ""
	m.state = Stopped
	return true
}

func (m *Mock) SetPosition(offset time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setPositionCalls = append(m.setPositionCalls, offset)
	if m.loaded == "" || !m.seekOK {
		return false
	}
	m.position = offset
	return true
}

func (m *Mock) Position() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" || !m.posOK {
		return 0, false
	}
	return m.position, true
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) SetRate(rate float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setRateCalls = append(m.setRateCalls, rate)
	if rate <= 0 {
		return false
	}
	m.rate = rate
	return true
}

func (m *Mock) SetVolume(pct int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setVolumeCalls = append(m.setVolumeCalls, pct)
	if pct <= 0 {
		return false
	}
	m.volumePct = pct
	return true
}

func (m *Mock) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = ""
	m.state = Stopped
	m.released = true
}

// Test helpers

func (m *Mock) SetState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Mock) SetPositionValue(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

func (m *Mock) SetPositionAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posOK = ok
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *Mock) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

func (m *Mock) SetPlayOK(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playOK = ok
}

func (m *Mock) SetSeekOK(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekOK = ok
}

// SimulateEnded marks the loaded media as having played to completion.
func (m *Mock) SimulateEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Ended
}

func (m *Mock) Loaded() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

func (m *Mock) SetPositionCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.setPositionCalls...)
}

func (m *Mock) SetRateCalls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.setRateCalls...)
}

func (m *Mock) SetVolumeCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.setVolumeCalls...)
}

func (m *Mock) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}
