// Package history persists the set of canonical links already notified to
// the user, so a posting is never dispatched twice across runs.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// fileFormat is the on-disk shape: a single JSON object with one array of
// canonical link strings. Order is not significant and does not round-trip.
type fileFormat struct {
	SentJobs []string `json:"sent_jobs"`
}

// Store is an in-memory set of canonical links backed by a JSON file.
// It grows monotonically within a run and is single-writer: only the
// post-scoring filter phase mutates it.
type Store struct {
	path   string
	lock   *flock.Flock
	links  map[string]struct{}
	logger *zap.Logger
}

// Load reads the history file at path. A missing or corrupt file yields an
// empty set, never an error: losing history means re-notifying at worst,
// while failing the run means notifying nothing.
func Load(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		links:  make(map[string]struct{}),
		logger: logger,
	}

	if err := s.lock.Lock(); err != nil {
		logger.Warn("history lock unavailable, reading without it",
			zap.String("path", path), zap.Error(err))
	} else {
		defer func() { _ = s.lock.Unlock() }()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("history file unreadable, starting empty",
				zap.String("path", path), zap.Error(err))
		}
		return s
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		logger.Warn("history file corrupt, starting empty",
			zap.String("path", path), zap.Error(err))
		return s
	}

	for _, link := range f.SentJobs {
		if link != "" {
			s.links[link] = struct{}{}
		}
	}
	return s
}

// Contains reports whether the canonical link was already notified.
func (s *Store) Contains(link string) bool {
	_, ok := s.links[link]
	return ok
}

// Add records a canonical link. Adding an existing link is a no-op.
func (s *Store) Add(link string) {
	if link == "" {
		return
	}
	s.links[link] = struct{}{}
}

// Len returns the number of recorded links.
func (s *Store) Len() int { return len(s.links) }

// Persist writes the full set to disk via a temp file and rename, so a
// failed write can never leave a partial file for the next Load to trip on.
// It blocks until the advisory file lock is held, serializing concurrent runs.
func (s *Store) Persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	links := make([]string, 0, len(s.links))
	for link := range s.links {
		links = append(links, link)
	}
	sort.Strings(links)

	data, err := json.MarshalIndent(fileFormat{SentJobs: links}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}
