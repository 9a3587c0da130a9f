package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const numWorkers = 8

// timestampLayouts are the accepted filename timestamp forms, tried in
// order against the end of the file's stem. All are interpreted as UTC.
var timestampLayouts = []string{
	"20060102T150405Z",
	"20060102_150405",
	"20060102-150405",
	"2006-01-02T15-04-05",
	"2006-01-02_15-04-05",
}

// DirSource exposes a recordings tree as channels: each subdirectory of the
// root is one channel, and every media file inside it whose name carries a
// UTC timestamp becomes a segment anchored at that instant. Durations come
// from the cache when the file is unchanged, otherwise from decoding.
type DirSource struct {
	root  string
	cache *DurationCache // nil: decode every file

	// ReadDuration learns a file's playable length. Defaults to
	// MediaDuration; tests substitute a fake to avoid real decoding.
	ReadDuration func(path string) (time.Duration, error)
}

var _ Source = (*DirSource)(nil)

// NewDirSource creates a source over the given recordings root. A nil cache
// disables caching.
func NewDirSource(root string, cache *DurationCache) *DirSource {
	return &DirSource{
		root:         root,
		cache:        cache,
		ReadDuration: MediaDuration,
	}
}

// Channels lists the channel subdirectories of the root, sorted by name.
func (s *DirSource) Channels() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("source: read root %s: %w", s.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// fileEntry is a discovered media file awaiting a duration.
type fileEntry struct {
	path  string
	start time.Time
	mtime int64
}

// Segments scans the named channel directory. Files without a parsable
// timestamp and files that fail to decode are skipped.
func (s *DirSource) Segments(channel string) ([]SegmentInfo, error) {
	dir := filepath.Join(s.root, channel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("source: read channel %s: %w", channel, err)
	}

	var files []fileEntry
	for _, e := range entries {
		if e.IsDir() || !IsMediaFile(e.Name()) {
			continue
		}
		start, ok := ParseStartTime(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileEntry{
			path:  filepath.Join(dir, e.Name()),
			start: start,
			mtime: info.ModTime().Unix(),
		})
	}

	segments := make([]SegmentInfo, 0, len(files))
	var toDecode []fileEntry
	for _, f := range files {
		if s.cache != nil {
			if d, ok, err := s.cache.Get(f.path, f.mtime); err == nil && ok {
				segments = append(segments, SegmentInfo{Path: f.path, Start: f.start, Duration: d})
				continue
			}
		}
		toDecode = append(toDecode, f)
	}

	segments = append(segments, s.decodeAll(toDecode)...)

	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Start.Before(segments[j].Start)
	})
	return segments, nil
}

// decodeAll reads durations for the given files on a bounded worker pool
// and feeds the cache with the results.
func (s *DirSource) decodeAll(files []fileEntry) []SegmentInfo {
	if len(files) == 0 {
		return nil
	}

	workCh := make(chan fileEntry, len(files))
	resultCh := make(chan SegmentInfo, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Go(func() {
			for f := range workCh {
				d, err := s.ReadDuration(f.path)
				if err != nil || d <= 0 {
					continue
				}
				if s.cache != nil {
					_ = s.cache.Put(f.path, f.mtime, d)
				}
				resultCh <- SegmentInfo{Path: f.path, Start: f.start, Duration: d}
			}
		})
	}

	for _, f := range files {
		workCh <- f
	}
	close(workCh)
	wg.Wait()
	close(resultCh)

	segments := make([]SegmentInfo, 0, len(files))
	for seg := range resultCh {
		segments = append(segments, seg)
	}
	return segments
}

// ParseStartTime extracts the UTC timestamp embedded in a media file name.
// The timestamp must terminate the stem, as in "ch1_20250101_120000.wav".
func ParseStartTime(name string) (time.Time, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, layout := range timestampLayouts {
		if len(stem) < len(layout) {
			continue
		}
		if t, err := time.ParseInLocation(layout, stem[len(stem)-len(layout):], time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
