// Package logbook reads daily log files into chronologically ordered entries.
package logbook

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"voyagelog/pkg/model"
)

// ErrNotList is returned when a log file's root is not a YAML sequence.
var ErrNotList = errors.New("log file root must be a list of entries")

// DefaultPatterns match the daily log files.
var DefaultPatterns = []string{"*.yml", "*.yaml"}

// Options controls how a log directory is read.
type Options struct {
	Patterns           []string
	MergeCourseChanges bool
}

// Result is the outcome of loading a directory.
type Result struct {
	Entries []model.LogEntry
	Files   []string // files read successfully
	Failed  []string // files skipped because they could not be decoded
}

// Files lists the log files in dir matching the patterns, sorted by name. Not recursive.
func Files(dir string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat log directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	seen := make(map[string]struct{})
	var files []string
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load reads every log file in dir and returns the entries sorted by timestamp.
// Undecodable files are logged and skipped; only a missing or unreadable
// directory is an error.
func Load(dir string, opts Options) (*Result, error) {
	files, err := Files(dir, opts.Patterns)
	if err != nil {
		return nil, err
	}

	res := &Result{Entries: make([]model.LogEntry, 0)}
	for _, f := range files {
		entries, err := ReadFile(f)
		if err != nil {
			slog.Warn("Logbook: skipping log file", "file", f, "error", err)
			res.Failed = append(res.Failed, f)
			continue
		}
		if opts.MergeCourseChanges {
			entries = MergeCourseChanges(entries)
		}
		res.Entries = append(res.Entries, entries...)
		res.Files = append(res.Files, f)
	}

	SortEntries(res.Entries)
	slog.Debug("Logbook: loaded", "dir", dir, "files", len(res.Files), "failed", len(res.Failed), "entries", len(res.Entries))
	return res, nil
}

// ReadFile decodes a single daily log file.
func ReadFile(path string) ([]model.LogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses a YAML sequence of entries. Items that are not mappings are
// dropped. A field with the wrong shape is left unknown and the entry is kept.
// An empty document yields no entries.
func Decode(data []byte) ([]model.LogEntry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return []model.LogEntry{}, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return []model.LogEntry{}, nil
	}
	if root.Kind != yaml.SequenceNode {
		return nil, ErrNotList
	}

	entries := make([]model.LogEntry, 0, len(root.Content))
	for i, item := range root.Content {
		e, ok := decodeItem(item)
		if !ok {
			slog.Debug("Logbook: dropping item", "index", i, "line", item.Line)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// decodeItem decodes one sequence item. Fields with the wrong shape are left
// unknown; ok is false only when the item is not a usable mapping.
func decodeItem(item *yaml.Node) (model.LogEntry, bool) {
	var e model.LogEntry
	if item.Kind != yaml.MappingNode {
		return e, false
	}
	if err := item.Decode(&e); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			slog.Warn("Logbook: dropping malformed entry", "line", item.Line, "error", err)
			return model.LogEntry{}, false
		}
		slog.Debug("Logbook: ignoring malformed fields", "line", item.Line, "error", err)
	}
	return e, true
}

// SortEntries orders entries by timestamp, keeping file order for ties.
// An entry without a timestamp stays right after the entry that preceded it.
func SortEntries(entries []model.LogEntry) {
	keys := make([]time.Time, len(entries))
	var last time.Time
	for i := range entries {
		if t, ok := entries[i].Time(); ok {
			last = t
		}
		keys[i] = last
	}

	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].Before(keys[idx[b]])
	})

	sorted := make([]model.LogEntry, len(entries))
	for i, j := range idx {
		sorted[i] = entries[j]
	}
	copy(entries, sorted)
}
