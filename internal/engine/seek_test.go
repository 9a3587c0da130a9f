package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock hands out a controllable sequence of instants.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSeekProcessor_DebouncesRapidSubmissions(t *testing.T) {
	e, m := newTestEngine(t, twoSegmentChannel(t))
	require.True(t, e.Play(nil, nil))

	clk := &fakeClock{now: t0}
	p := NewSeekProcessor(e, 50*time.Millisecond)
	p.now = clk.Now

	before := len(m.SetPositionCalls())

	assert.True(t, p.Submit(t0.Add(time.Hour)))

	// 10 ms later: inside the debounce window, dropped.
	clk.Advance(10 * time.Millisecond)
	assert.False(t, p.Submit(t0.Add(2*time.Hour)))
	assert.Len(t, m.SetPositionCalls(), before+1)

	// Past the window: applied again.
	clk.Advance(50 * time.Millisecond)
	assert.True(t, p.Submit(t0.Add(2*time.Hour)))
	assert.Len(t, m.SetPositionCalls(), before+2)
}

func TestSeekProcessor_OnlyFirstOfPairApplied(t *testing.T) {
	e, m := newTestEngine(t, twoSegmentChannel(t))
	require.True(t, e.Play(nil, nil))

	clk := &fakeClock{now: t0}
	p := NewSeekProcessor(e, 50*time.Millisecond)
	p.now = clk.Now

	require.True(t, p.Submit(t0.Add(time.Hour)))
	clk.Advance(10 * time.Millisecond)
	require.False(t, p.Submit(t0.Add(3*time.Hour)))

	calls := m.SetPositionCalls()
	assert.Equal(t, time.Hour, calls[len(calls)-1], "second seek must not land")
}

func TestSeekProcessor_IdleSeekRecordsTarget(t *testing.T) {
	e, m := newTestEngine(t, twoSegmentChannel(t))

	p := NewSeekProcessor(e, 0)

	target := t0.Add(13 * time.Hour)
	assert.True(t, p.Submit(target))

	// Playback was not forced to start.
	assert.False(t, e.IsPlaying())
	assert.Empty(t, m.LoadCalls())

	// The next Play without an explicit instant starts at the target.
	require.True(t, e.Play(nil, nil))
	assert.Equal(t, "/rec/s2.wav", m.Loaded())
	assert.Equal(t, []time.Duration{time.Hour}, m.SetPositionCalls())
}

func TestSeekProcessor_PausedSeekRecordsTarget(t *testing.T) {
	e, m := newTestEngine(t, twoSegmentChannel(t))

	require.True(t, e.Play(nil, nil))
	require.True(t, e.Pause())
	before := len(m.SetPositionCalls())

	p := NewSeekProcessor(e, 0)
	assert.True(t, p.Submit(t0.Add(2*time.Hour)))

	// Still paused, nothing repositioned.
	assert.Equal(t, StatePaused, e.State())
	assert.Len(t, m.SetPositionCalls(), before)
}

func TestSeekProcessor_ExplicitInstantOverridesRecordedTarget(t *testing.T) {
	e, m := newTestEngine(t, twoSegmentChannel(t))

	p := NewSeekProcessor(e, 0)
	require.True(t, p.Submit(t0.Add(13*time.Hour)))

	at := t0.Add(time.Hour)
	require.True(t, e.Play(&at, nil))
	assert.Equal(t, "/rec/s1.wav", m.Loaded())
}

func TestSeekProcessor_DefaultDebounce(t *testing.T) {
	e, _ := newTestEngine(t, twoSegmentChannel(t))

	p := NewSeekProcessor(e, 0)
	assert.Equal(t, defaultDebounce, p.debounce)

	p = NewSeekProcessor(e, 25*time.Millisecond)
	assert.Equal(t, 25*time.Millisecond, p.debounce)
}
