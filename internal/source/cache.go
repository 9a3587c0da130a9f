package source

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/jvaillant/retrace/internal/db"
)

const cacheFileName = "durations.db"

// DurationCache persists decoded media durations keyed by (path, mtime), so
// rescanning a recordings tree does not re-decode files that have not
// changed. It never stores playback state.
type DurationCache struct {
	db *sql.DB
}

// OpenCache opens (creating if needed) a duration cache at the given path.
func OpenCache(path string) (*DurationCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS media_durations (
			path TEXT PRIMARY KEY,
			mtime INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL
		);
	`); err != nil {
		d.Close()
		return nil, err
	}

	return &DurationCache{db: d}, nil
}

// OpenDefaultCache opens the cache at its XDG data location.
func OpenDefaultCache() (*DurationCache, error) {
	path, err := xdg.DataFile(filepath.Join("retrace", cacheFileName))
	if err != nil {
		return nil, err
	}
	return OpenCache(path)
}

// Get returns the cached duration for path, if the cached entry still
// matches the file's modification time.
func (c *DurationCache) Get(path string, mtime int64) (time.Duration, bool, error) {
	var (
		cachedMtime int64
		ns          int64
	)
	err := c.db.QueryRow(
		`SELECT mtime, duration_ns FROM media_durations WHERE path = ?`, path,
	).Scan(&cachedMtime, &ns)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if cachedMtime != mtime {
		return 0, false, nil
	}
	return time.Duration(ns), true, nil
}

// Put stores or replaces the duration for path.
func (c *DurationCache) Put(path string, mtime int64, d time.Duration) error {
	return db.WithTx(c.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO media_durations (path, mtime, duration_ns)
			VALUES (?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET mtime = excluded.mtime, duration_ns = excluded.duration_ns
		`, path, mtime, int64(d))
		return err
	})
}

// Prune removes entries for files that no longer exist on disk.
func (c *DurationCache) Prune(existing map[string]bool) error {
	rows, err := c.db.Query(`SELECT path FROM media_durations`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return err
		}
		if !existing[path] {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	if len(stale) == 0 {
		return nil
	}
	return db.WithTx(c.db, func(tx *sql.Tx) error {
		for _, path := range stale {
			if _, err := tx.Exec(`DELETE FROM media_durations WHERE path = ?`, path); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *DurationCache) Close() error {
	return c.db.Close()
}
