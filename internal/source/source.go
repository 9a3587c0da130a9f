// Package source supplies channel definitions to the playback engine:
// which segments exist, where their media lives, and how they anchor to
// the absolute timeline.
package source

import (
	"fmt"
	"time"

	"github.com/jvaillant/retrace/internal/timeline"
)

// SegmentInfo describes one playable file of a channel.
type SegmentInfo struct {
	Path     string
	Start    time.Time
	Duration time.Duration
}

// Source enumerates channels and their segments. Implementations are
// consulted once, at engine construction.
type Source interface {
	Channels() ([]string, error)
	Segments(channel string) ([]SegmentInfo, error)
}

// LoadChannels materializes every channel of a source into the read-only
// form the engine consumes.
func LoadChannels(src Source) ([]*timeline.Channel, error) {
	names, err := src.Channels()
	if err != nil {
		return nil, err
	}
	channels := make([]*timeline.Channel, 0, len(names))
	for _, name := range names {
		infos, err := src.Segments(name)
		if err != nil {
			return nil, fmt.Errorf("source: channel %s: %w", name, err)
		}
		segments := make([]timeline.Segment, len(infos))
		for i, info := range infos {
			segments[i] = timeline.Segment{
				Path:     info.Path,
				Start:    info.Start,
				Duration: info.Duration,
			}
		}
		c, err := timeline.NewChannel(name, segments)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, nil
}

// StaticSource is an in-memory source for tests and programmatic assembly.
// Channels keep their insertion order.
type StaticSource struct {
	order    []string
	channels map[string][]SegmentInfo
}

var _ Source = (*StaticSource)(nil)

// NewStaticSource creates an empty static source.
func NewStaticSource() *StaticSource {
	return &StaticSource{channels: make(map[string][]SegmentInfo)}
}

// Add appends segments to the named channel, creating it if needed.
func (s *StaticSource) Add(channel string, segments ...SegmentInfo) {
	if _, ok := s.channels[channel]; !ok {
		s.order = append(s.order, channel)
	}
	s.channels[channel] = append(s.channels[channel], segments...)
}

func (s *StaticSource) Channels() ([]string, error) {
	return append([]string(nil), s.order...), nil
}

func (s *StaticSource) Segments(channel string) ([]SegmentInfo, error) {
	infos, ok := s.channels[channel]
	if !ok {
		return nil, fmt.Errorf("source: unknown channel %q", channel)
	}
	return append([]SegmentInfo(nil), infos...), nil
}
