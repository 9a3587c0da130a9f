package backend

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

const resampleQuality = 4

var (
	speakerInitialized bool
	speakerRate        beep.SampleRate
)

// Backend plays audio files through the system speaker via beep.
type Backend struct {
	mu        sync.Mutex
	state     State
	file      *os.File
	streamer  beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	volume    *effects.Volume
	ctrl      *beep.Ctrl
	rate      float64
	volumePct int
	released  bool

	// done is closed by the end-of-stream callback; one channel per load,
	// so a stale callback from replaced media closes a channel nothing
	// reads anymore. State() observes the close.
	done chan struct{}
}

// New creates a speaker-backed media backend.
func New() *Backend {
	return &Backend{
		state:     Stopped,
		rate:      1.0,
		volumePct: 100,
	}
}

// Load opens and decodes the audio file at path, replacing any loaded media.
// Playback does not start until Play is called.
func (b *Backend) Load(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return fmt.Errorf("backend: released")
	}
	b.unloadLocked()

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		f.Close()
		return fmt.Errorf("backend: unsupported format %q", ext)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("backend: decode %s: %w", path, err)
	}

	if !speakerInitialized {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			f.Close()
			return fmt.Errorf("backend: speaker init: %w", err)
		}
		speakerInitialized = true
		speakerRate = format.SampleRate
	}

	b.file = f
	b.streamer = streamer
	b.format = format

	// The speaker runs at a fixed sample rate; resample everything to it.
	// The same resampler carries the playback-rate multiplier.
	b.resampler = beep.Resample(resampleQuality, format.SampleRate, speakerRate, streamer)
	b.applyRateLocked()
	b.volume = &effects.Volume{
		Streamer: b.resampler,
		Base:     2,
		Volume:   pctToVolume(b.volumePct),
	}
	b.ctrl = &beep.Ctrl{Streamer: b.volume}
	b.done = make(chan struct{})
	b.state = Idle
	return nil
}

// Play starts playback of loaded media, or resumes when paused.
func (b *Backend) Play() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Playing:
		return true
	case Paused:
		speaker.Lock()
		b.ctrl.Paused = false
		speaker.Unlock()
		b.state = Playing
		return true
	case Idle:
		done := b.done
		// The callback runs on the speaker goroutine with the speaker
		// mutex held; taking b.mu here would invert the lock order
		// against Position/Pause, which hold b.mu around speaker.Lock().
		speaker.Play(beep.Seq(b.ctrl, beep.Callback(func() {
			close(done)
		})))
		b.state = Playing
		return true
	default:
		return false
	}
}

// Pause pauses playback.
func (b *Backend) Pause() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Playing || b.ctrl == nil {
		return false
	}
	speaker.Lock()
	b.ctrl.Paused = true
	speaker.Unlock()
	b.state = Paused
	return true
}

// Stop halts playback and unloads the media. The backend stays usable.
func (b *Backend) Stop() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Stopped {
		return false
	}
	b.unloadLocked()
	return true
}

// unloadLocked clears the speaker and releases decode resources.
func (b *Backend) unloadLocked() {
	if b.streamer == nil && b.state == Stopped {
		return
	}
	if speakerInitialized {
		speaker.Clear()
	}
	if b.streamer != nil {
		b.streamer.Close()
		b.streamer = nil
	}
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
	b.ctrl = nil
	b.volume = nil
	b.resampler = nil
	b.done = nil
	b.state = Stopped
}

// SetPosition seeks within the loaded media, clamped to its length.
func (b *Backend) SetPosition(offset time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return false
	}
	n := b.format.SampleRate.N(offset)
	n = max(n, 0)
	n = min(n, b.streamer.Len())

	speaker.Lock()
	err := b.streamer.Seek(n)
	speaker.Unlock()
	return err == nil
}

// Position returns the current media offset.
func (b *Backend) Position() (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return 0, false
	}
	speaker.Lock()
	pos := b.streamer.Position()
	speaker.Unlock()
	return b.format.SampleRate.D(pos), true
}

// Duration returns the loaded media's duration, or 0 when none.
func (b *Backend) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return 0
	}
	return b.format.SampleRate.D(b.streamer.Len())
}

// State returns the backend state, promoting Playing to Ended once the
// end-of-stream callback has fired.
func (b *Backend) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Playing && b.done != nil {
		select {
		case <-b.done:
			b.state = Ended
		default:
		}
	}
	return b.state
}

// SetRate sets the playback speed multiplier. Applies to loaded media
// immediately and to subsequent loads.
func (b *Backend) SetRate(rate float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rate <= 0 {
		return false
	}
	b.rate = rate
	if b.resampler != nil {
		speaker.Lock()
		b.applyRateLocked()
		speaker.Unlock()
	}
	return true
}

func (b *Backend) applyRateLocked() {
	ratio := float64(b.format.SampleRate) / float64(speakerRate) * b.rate
	b.resampler.SetRatio(ratio)
}

// SetVolume sets output gain as a percentage. 100 is unity; 200 and 400
// add roughly 20 and 40 dB of amplification on beep's base-2 scale.
func (b *Backend) SetVolume(pct int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if pct <= 0 {
		return false
	}
	b.volumePct = pct
	if b.volume != nil {
		speaker.Lock()
		b.volume.Volume = pctToVolume(pct)
		speaker.Unlock()
	}
	return true
}

// pctToVolume converts a gain percentage to beep's logarithmic Volume value:
// 100% -> 0 (no change), 200% -> +1, 400% -> +2, 50% -> -1.
func pctToVolume(pct int) float64 {
	return math.Log2(float64(pct) / 100)
}

// Release tears the backend down. Safe to call more than once.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	b.unloadLocked()
	b.released = true
}
