package watcher

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"voyagelog/pkg/logbook"
)

type fileState struct {
	size    int64
	modTime time.Time
}

// Change lists the log files that differ from the previous check.
type Change struct {
	Added    []string
	Modified []string
	Removed  []string
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Modified) == 0 && len(c.Removed) == 0
}

// Service monitors a logbook directory for new, modified and removed daily files.
type Service struct {
	dir      string
	patterns []string

	mu   sync.Mutex
	seen map[string]fileState
}

// NewService creates a monitor for dir. Nothing has been seen yet, so the
// first check reports every existing file as added.
func NewService(dir string, patterns []string) *Service {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		slog.Warn("Watcher: Log directory does not exist", "path", dir)
	}
	return &Service{
		dir:      dir,
		patterns: patterns,
		seen:     make(map[string]fileState),
	}
}

func (s *Service) scan() (map[string]fileState, error) {
	files, err := logbook.Files(s.dir, s.patterns)
	if err != nil {
		return nil, err
	}
	current := make(map[string]fileState, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		current[filepath.Base(f)] = fileState{size: info.Size(), modTime: info.ModTime()}
	}
	return current, nil
}

// Changed compares the directory against the last check and remembers the new state.
// An unreadable directory reports no change.
func (s *Service) Changed() (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.scan()
	if err != nil {
		slog.Debug("Watcher: scan failed", "dir", s.dir, "error", err)
		return Change{}, false
	}

	var c Change
	for name, st := range current {
		prev, ok := s.seen[name]
		switch {
		case !ok:
			c.Added = append(c.Added, name)
		case prev.size != st.size || !prev.modTime.Equal(st.modTime):
			c.Modified = append(c.Modified, name)
		}
	}
	for name := range s.seen {
		if _, ok := current[name]; !ok {
			c.Removed = append(c.Removed, name)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Modified)
	sort.Strings(c.Removed)

	s.seen = current
	if c.Empty() {
		return c, false
	}
	slog.Info("Watcher: Log files changed", "dir", s.dir, "added", len(c.Added), "modified", len(c.Modified), "removed", len(c.Removed))
	return c, true
}

// Fingerprint hashes the names, sizes and modification times of the log files
// currently in the directory. It does not update the change state.
func (s *Service) Fingerprint() (string, error) {
	current, err := s.scan()
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(current))
	for n := range current {
		names = append(names, n)
	}
	sort.Strings(names)

	h := sha1.New()
	for _, n := range names {
		st := current[n]
		fmt.Fprintf(h, "%s|%d|%d\n", n, st.size, st.modTime.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
