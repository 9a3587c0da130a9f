package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

const (
	extWAV  = ".wav"
	extMP3  = ".mp3"
	extFLAC = ".flac"
)

// IsMediaFile reports whether path has a playable extension.
func IsMediaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case extWAV, extMP3, extFLAC:
		return true
	}
	return false
}

// MediaDuration decodes just enough of the file at path to learn its
// playable length.
func MediaDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case extWAV:
		streamer, format, err = wav.Decode(f)
	case extMP3:
		streamer, format, err = mp3.Decode(f)
	case extFLAC:
		streamer, format, err = flac.Decode(f)
	default:
		return 0, fmt.Errorf("source: unsupported format %q", ext)
	}
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}
