package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStaticSource(t *testing.T) {
	s := NewStaticSource()
	s.Add("b", SegmentInfo{Path: "/rec/b1.wav", Start: t0, Duration: time.Hour})
	s.Add("a", SegmentInfo{Path: "/rec/a1.wav", Start: t0, Duration: time.Hour})
	s.Add("b", SegmentInfo{Path: "/rec/b2.wav", Start: t0.Add(time.Hour), Duration: time.Hour})

	names, err := s.Channels()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names, "insertion order is kept")

	infos, err := s.Segments("b")
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	_, err = s.Segments("missing")
	assert.Error(t, err)
}

func TestLoadChannels(t *testing.T) {
	s := NewStaticSource()
	s.Add("a",
		SegmentInfo{Path: "/rec/a2.wav", Start: t0.Add(time.Hour), Duration: time.Hour},
		SegmentInfo{Path: "/rec/a1.wav", Start: t0, Duration: time.Hour},
	)

	channels, err := LoadChannels(s)
	require.NoError(t, err)
	require.Len(t, channels, 1)

	c := channels[0]
	assert.Equal(t, "a", c.Name())
	segs := c.Segments()
	require.Len(t, segs, 2)
	assert.Equal(t, "/rec/a1.wav", segs[0].Path, "segments are sorted by start")
	assert.Equal(t, "/rec/a2.wav", segs[1].Path)
}

func TestLoadChannels_RejectsBadDuration(t *testing.T) {
	s := NewStaticSource()
	s.Add("a", SegmentInfo{Path: "/rec/a1.wav", Start: t0, Duration: 0})

	_, err := LoadChannels(s)
	assert.Error(t, err)
}
