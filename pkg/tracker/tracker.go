package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pipeline stages.
const (
	StageLoad   = "load"
	StageBuild  = "build"
	StagePolar  = "polar"
	StageExport = "export"
	StageStore  = "store"
)

// Tracker tracks run statistics per pipeline stage.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*StageStats
}

// StageStats holds metrics for a specific stage.
// Fields are accessed atomically.
type StageStats struct {
	Runs       int64 `json:"runs"`
	Failures   int64 `json:"failures"`
	Items      int64 `json:"items"` // items produced by the last successful run
	Skipped    int64 `json:"skipped"`
	LastMillis int64 `json:"lastMillis"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*StageStats),
	}
}

// getStats returns the stats object for a stage, creating it if needed.
func (t *Tracker) getStats(stage string) *StageStats {
	t.mu.RLock()
	s, ok := t.stats[stage]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[stage]; ok {
		return s
	}
	s = &StageStats{}
	t.stats[stage] = s
	return s
}

// TrackSuccess records a completed stage run and the number of items it produced.
func (t *Tracker) TrackSuccess(stage string, items int, took time.Duration) {
	s := t.getStats(stage)
	atomic.AddInt64(&s.Runs, 1)
	atomic.StoreInt64(&s.Items, int64(items))
	atomic.StoreInt64(&s.LastMillis, took.Milliseconds())
}

func (t *Tracker) TrackFailure(stage string) {
	s := t.getStats(stage)
	atomic.AddInt64(&s.Runs, 1)
	atomic.AddInt64(&s.Failures, 1)
}

// TrackSkipped counts inputs a stage had to drop, such as undecodable files.
func (t *Tracker) TrackSkipped(stage string, n int) {
	atomic.AddInt64(&t.getStats(stage).Skipped, int64(n))
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]StageStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]StageStats)
	for k, v := range t.stats {
		result[k] = StageStats{
			Runs:       atomic.LoadInt64(&v.Runs),
			Failures:   atomic.LoadInt64(&v.Failures),
			Items:      atomic.LoadInt64(&v.Items),
			Skipped:    atomic.LoadInt64(&v.Skipped),
			LastMillis: atomic.LoadInt64(&v.LastMillis),
		}
	}
	return result
}

// Reset clears all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*StageStats)
}
