// Package config loads the engine configuration from TOML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "retrace"

type Config struct {
	RecordingsRoot string `koanf:"recordings_root"` // root directory, one subdirectory per channel
	DefaultChannel string `koanf:"default_channel"` // channel to activate at startup (empty: first found)

	DebounceMs     int `koanf:"debounce_ms"`      // minimum interval between applied seeks
	PollIntervalMs int `koanf:"poll_interval_ms"` // monitor poll cadence

	AmplificationDb int     `koanf:"amplification_db"` // initial gain: 0, 20 or 40
	Rate            float64 `koanf:"rate"`             // initial playback speed multiplier
}

// Default returns the configuration used when no file overrides anything.
func Default() *Config {
	return &Config{
		DebounceMs:      50,
		PollIntervalMs:  100,
		AmplificationDb: 0,
		Rate:            1.0,
	}
}

// Load reads the configuration from the standard locations. Files later in
// the list win: $XDG_CONFIG_HOME/retrace/config.toml, then ./config.toml.
// Missing files are fine; an unreadable or malformed file is an error.
func Load() (*Config, error) {
	return loadPaths(configPaths())
}

func loadPaths(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.RecordingsRoot = expandPath(cfg.RecordingsRoot)
	cfg.normalize()
	return cfg, nil
}

// normalize clamps out-of-range values back to their defaults rather than
// failing startup over a typo.
func (c *Config) normalize() {
	if c.DebounceMs <= 0 {
		c.DebounceMs = 50
	}
	if c.PollIntervalMs <= 0 {
		c.PollIntervalMs = 100
	}
	switch c.AmplificationDb {
	case 0, 20, 40:
	default:
		c.AmplificationDb = 0
	}
	if c.Rate <= 0 {
		c.Rate = 1.0
	}
}

// Debounce returns the seek debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// PollInterval returns the monitor poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func configPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
