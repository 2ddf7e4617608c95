package api

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"voyagelog/pkg/pipeline"
	"voyagelog/pkg/store"
	"voyagelog/pkg/tracker"
)

// RunSource reports pipeline activity.
type RunSource interface {
	Last() (pipeline.Result, bool)
	Tracker() *tracker.Tracker
}

// HistoryStore is where past runs and generation state are read from.
type HistoryStore interface {
	store.RunStore
	store.StateStore
}

type StatsHandler struct {
	runs    RunSource
	history HistoryStore
	started time.Time
}

// NewStatsHandler creates a StatsHandler. history may be nil.
func NewStatsHandler(runs RunSource, history HistoryStore) *StatsHandler {
	return &StatsHandler{
		runs:    runs,
		history: history,
		started: time.Now(),
	}
}

type Diagnostics struct {
	MemoryMB   uint64 `json:"memory_mb"`
	Goroutines int    `json:"goroutines"`
	UptimeSec  int64  `json:"uptime_sec"`
}

type StatsResponse struct {
	Stages        map[string]tracker.StageStats `json:"stages"`
	LastRun       *pipeline.Result              `json:"last_run"`
	RecentRuns    []store.Run                   `json:"recent_runs"`
	LastGenerated string                        `json:"last_generated,omitempty"`
	Diagnostics   Diagnostics                   `json:"diagnostics"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Stages:      h.runs.Tracker().Snapshot(),
		RecentRuns:  []store.Run{},
		Diagnostics: h.diagnostics(),
	}
	if last, ok := h.runs.Last(); ok {
		resp.LastRun = &last
	}

	if h.history != nil {
		ctx := r.Context()
		runs, err := h.history.ListRuns(ctx, 10)
		if err != nil {
			slog.Warn("API: failed to list runs", "error", err)
		} else {
			resp.RecentRuns = runs
		}
		resp.LastGenerated, _ = h.history.GetState(ctx, store.StateLastGenerated)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *StatsHandler) diagnostics() Diagnostics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Diagnostics{
		MemoryMB:   m.Alloc / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		UptimeSec:  int64(time.Since(h.started).Seconds()),
	}
}
