// Package cache provides the on-disk TLE catalog cache.
//
// The store holds a single blob (the raw catalog listing) plus a timestamp
// file recording when the blob was written. The blob is replaced atomically
// via a temp file and rename; the timestamp is written last, so a crash
// between the two leaves the cache invalid rather than fresh-but-truncated.
package cache

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	blobFile  = "tle_cache.txt"
	stampFile = "tle_cache_timestamp.txt"

	// DefaultMaxAge is the freshness bound for the cached catalog.
	DefaultMaxAge = 2 * time.Hour
)

// Store is a single-valued, timestamped blob cache on the local filesystem.
// Concurrent readers are fine; writes are serialized by a per-process mutex.
type Store struct {
	dir    string
	maxAge time.Duration
	logger *slog.Logger

	mu  sync.Mutex // serializes Write
	now func() time.Time
}

// NewStore creates a Store rooted at dir. A non-positive maxAge selects
// DefaultMaxAge.
func NewStore(dir string, maxAge time.Duration, logger *slog.Logger) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		dir:    dir,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// DefaultDir returns the platform cache directory for the planner.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(base, "overpass_planner"), nil
}

// IsValid reports whether both cache files exist, the timestamp parses as
// decimal seconds since the Unix epoch, and the blob is younger than the
// freshness bound.
func (s *Store) IsValid() bool {
	if _, err := os.Stat(filepath.Join(s.dir, blobFile)); err != nil {
		return false
	}

	ts, err := s.readStamp()
	if err != nil {
		s.logger.Debug("cache timestamp unreadable", "error", err)
		return false
	}

	return s.now().Sub(ts) < s.maxAge
}

// Age returns how long ago the cache was written. An error means the
// timestamp is absent or malformed.
func (s *Store) Age() (time.Duration, error) {
	ts, err := s.readStamp()
	if err != nil {
		return 0, err
	}
	return s.now().Sub(ts), nil
}

// Read returns the blob contents.
func (s *Store) Read() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, blobFile))
	if err != nil {
		return nil, fmt.Errorf("reading cache blob: %w", err)
	}
	return data, nil
}

// Write atomically replaces the blob, then records the write time. If the
// blob lands but the timestamp write fails, the next IsValid reports false.
func (s *Store) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, blobFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp blob: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp blob: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, blobFile)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing cache blob: %w", err)
	}

	stamp := strconv.FormatInt(s.now().Unix(), 10)
	if err := os.WriteFile(filepath.Join(s.dir, stampFile), []byte(stamp), 0o644); err != nil {
		return fmt.Errorf("writing cache timestamp: %w", err)
	}
	return nil
}

func (s *Store) readStamp() (time.Time, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, stampFile))
	if err != nil {
		return time.Time{}, fmt.Errorf("reading cache timestamp: %w", err)
	}
	unix, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed cache timestamp %q: %w", string(raw), err)
	}
	return time.Unix(unix, 0), nil
}
