package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func testChannel(t *testing.T, segments ...Segment) *Channel {
	t.Helper()
	c, err := NewChannel("test", segments)
	require.NoError(t, err)
	return c
}

func at(t time.Time) *time.Time { return &t }

func TestNewChannel_SortsByStart(t *testing.T) {
	c := testChannel(t,
		Segment{Path: "/b.wav", Start: t0.Add(time.Hour), Duration: time.Hour},
		Segment{Path: "/a.wav", Start: t0, Duration: time.Hour},
	)

	segs := c.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "/a.wav", segs[0].Path)
	assert.Equal(t, "/b.wav", segs[1].Path)
}

func TestNewChannel_RejectsNonPositiveDuration(t *testing.T) {
	_, err := NewChannel("test", []Segment{{Path: "/a.wav", Start: t0, Duration: 0}})
	assert.Error(t, err)

	_, err = NewChannel("test", []Segment{{Path: "/a.wav", Start: t0, Duration: -time.Second}})
	assert.Error(t, err)
}

func TestLocate_EmptyChannel(t *testing.T) {
	c := testChannel(t)

	_, _, err := c.Locate(at(t0))
	assert.ErrorIs(t, err, ErrNoSegments)

	_, _, err = c.Locate(nil)
	assert.ErrorIs(t, err, ErrNoSegments)
}

func TestLocate_NilMeansPlayFromStart(t *testing.T) {
	c := testChannel(t,
		Segment{Path: "/a.wav", Start: t0, Duration: time.Hour},
		Segment{Path: "/b.wav", Start: t0.Add(time.Hour), Duration: time.Hour},
	)

	seg, off, err := c.Locate(nil)
	require.NoError(t, err)
	assert.Equal(t, "/a.wav", seg.Path)
	assert.Equal(t, time.Duration(0), off)
}

func TestLocate_WithinSegment(t *testing.T) {
	s1 := Segment{Path: "/s1.wav", Start: t0, Duration: 12 * time.Hour}
	s2 := Segment{Path: "/s2.wav", Start: t0.Add(12 * time.Hour), Duration: 12 * time.Hour}
	c := testChannel(t, s1, s2)

	tests := []struct {
		name    string
		at      time.Time
		wantSeg string
		wantOff time.Duration
	}{
		{"start of first", t0, "/s1.wav", 0},
		{"middle of first", t0.Add(5 * time.Hour), "/s1.wav", 5 * time.Hour},
		{"boundary belongs to second", t0.Add(12 * time.Hour), "/s2.wav", 0},
		{"middle of second", t0.Add(13 * time.Hour), "/s2.wav", time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, off, err := c.Locate(at(tt.at))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSeg, seg.Path)
			assert.Equal(t, tt.wantOff, off)
		})
	}
}

func TestLocate_BeforeFirstClampsForward(t *testing.T) {
	c := testChannel(t, Segment{Path: "/a.wav", Start: t0, Duration: time.Hour})

	seg, off, err := c.Locate(at(t0.Add(-time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, "/a.wav", seg.Path)
	assert.Equal(t, time.Duration(0), off)
}

func TestLocate_GapClampsBackward(t *testing.T) {
	s1 := Segment{Path: "/a.wav", Start: t0, Duration: time.Hour}
	s2 := Segment{Path: "/b.wav", Start: t0.Add(3 * time.Hour), Duration: time.Hour}
	c := testChannel(t, s1, s2)

	seg, off, err := c.Locate(at(t0.Add(2 * time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "/a.wav", seg.Path)
	assert.Equal(t, time.Hour, off)
}

func TestLocate_AtOrAfterEndClampsToLast(t *testing.T) {
	s1 := Segment{Path: "/a.wav", Start: t0, Duration: time.Hour}
	c := testChannel(t, s1)

	// Exactly at the end.
	seg, off, err := c.Locate(at(t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "/a.wav", seg.Path)
	assert.Equal(t, time.Hour, off)

	// Well past the end.
	seg, off, err = c.Locate(at(t0.Add(24 * time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "/a.wav", seg.Path)
	assert.Equal(t, time.Hour, off)
}

func TestSpan(t *testing.T) {
	c := testChannel(t,
		Segment{Path: "/a.wav", Start: t0, Duration: time.Hour},
		Segment{Path: "/b.wav", Start: t0.Add(2 * time.Hour), Duration: time.Hour},
	)

	start, end := c.Span()
	assert.Equal(t, t0, start)
	assert.Equal(t, t0.Add(3*time.Hour), end)

	empty := testChannel(t)
	start, end = empty.Span()
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())
}
