// Package timeline models channels of timestamped audio segments and
// resolves absolute instants to a playable (segment, offset) pair.
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrNoSegments is returned when a channel contains no segments.
var ErrNoSegments = errors.New("timeline: channel has no segments")

// Segment is a single playable file anchored to an absolute start time.
// Segments are immutable once the channel is built.
type Segment struct {
	Path     string
	Start    time.Time
	Duration time.Duration
}

// End returns the instant just past the last sample of the segment.
func (s Segment) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Contains reports whether t falls within [Start, End).
func (s Segment) Contains(t time.Time) bool {
	return !t.Before(s.Start) && t.Before(s.End())
}

// Channel is a named, ordered collection of segments forming one continuous
// logical recording stream. It is built once and read-only afterwards, so it
// can be shared across goroutines without locking.
type Channel struct {
	name     string
	segments []Segment
}

// NewChannel builds a channel from the given segments. The slice is copied
// and sorted ascending by start time. Segments with a non-positive duration
// are rejected.
func NewChannel(name string, segments []Segment) (*Channel, error) {
	for _, s := range segments {
		if s.Duration <= 0 {
			return nil, fmt.Errorf("timeline: segment %s has non-positive duration %v", s.Path, s.Duration)
		}
	}
	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return &Channel{name: name, segments: sorted}, nil
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Len returns the number of segments.
func (c *Channel) Len() int { return len(c.segments) }

// Segments returns a copy of the segment list.
func (c *Channel) Segments() []Segment {
	out := make([]Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

// Span returns the first segment's start and the last segment's end.
// Both are zero for an empty channel.
func (c *Channel) Span() (start, end time.Time) {
	if len(c.segments) == 0 {
		return time.Time{}, time.Time{}
	}
	return c.segments[0].Start, c.segments[len(c.segments)-1].End()
}

// Locate resolves an absolute instant to the segment covering it and the
// offset within that segment.
//
// A nil instant means "play from the start": (first segment, 0).
// Instants before the first segment clamp forward to (first, 0).
// Instants inside a gap between segments clamp backward to the end of the
// earlier segment. Instants at or past the channel's end clamp to
// (last, last.Duration). Only an empty channel yields ErrNoSegments.
func (c *Channel) Locate(at *time.Time) (Segment, time.Duration, error) {
	if len(c.segments) == 0 {
		return Segment{}, 0, ErrNoSegments
	}
	if at == nil {
		return c.segments[0], 0, nil
	}
	t := *at
	if t.Before(c.segments[0].Start) {
		return c.segments[0], 0, nil
	}
	for i, s := range c.segments {
		if s.Contains(t) {
			return s, t.Sub(s.Start), nil
		}
		// Past this segment but before the next: the instant fell in a
		// recording gap, snap to the end of the earlier segment.
		if i+1 < len(c.segments) && t.Before(c.segments[i+1].Start) {
			return s, s.Duration, nil
		}
	}
	last := c.segments[len(c.segments)-1]
	return last, last.Duration, nil
}
