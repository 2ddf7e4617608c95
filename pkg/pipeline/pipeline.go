// Package pipeline regenerates every dataset from the logbook directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voyagelog/pkg/config"
	"voyagelog/pkg/export"
	"voyagelog/pkg/logbook"
	"voyagelog/pkg/logging"
	"voyagelog/pkg/model"
	"voyagelog/pkg/polar"
	"voyagelog/pkg/store"
	"voyagelog/pkg/tracker"
	"voyagelog/pkg/voyage"
)

// Store is the persistence the runner writes to.
type Store interface {
	store.VoyageStore
	store.PolarStore
	store.RunStore
	store.StateStore
}

// Result summarizes one run.
type Result struct {
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
	Files          int       `json:"files"`
	FilesFailed    int       `json:"filesFailed"`
	Entries        int       `json:"entries"`
	Voyages        int       `json:"voyages"`
	PolarPoints    int       `json:"polarPoints"`
	SailingSamples int       `json:"sailingSamples"`
	Outputs        []string  `json:"outputs"`
	Error          string    `json:"error,omitempty"`
}

// Runner executes the pipeline. Runs are serialized.
type Runner struct {
	cfg     config.Provider
	store   Store
	tracker *tracker.Tracker

	runMu sync.Mutex

	mu       sync.RWMutex
	last     *Result
	voyages  []model.Voyage
	dataset  model.PolarDataset
	handlers []func(Result)
}

// NewRunner creates a runner. st may be nil to skip persistence.
// Each run reads the effective configuration, so runtime overrides apply
// to the next run.
func NewRunner(cfg config.Provider, st Store, tr *tracker.Tracker) *Runner {
	if tr == nil {
		tr = tracker.New()
	}
	return &Runner{cfg: cfg, store: st, tracker: tr}
}

// Tracker returns the stage counters.
func (r *Runner) Tracker() *tracker.Tracker {
	return r.tracker
}

// OnRun registers a callback invoked after every run, failed or not.
func (r *Runner) OnRun(fn func(Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, fn)
}

// Last returns the result of the most recent run, if any.
func (r *Runner) Last() (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}

// Voyages returns the voyages of the last successful run.
func (r *Runner) Voyages() []model.Voyage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.voyages
}

// Polar returns the polar dataset of the last successful run.
func (r *Runner) Polar() model.PolarDataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dataset
}

// Run loads the logbook, builds voyages and polar data, writes the configured
// outputs and replaces the stored datasets.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	res := Result{StartedAt: time.Now(), Outputs: []string{}}
	voyages, ds, err := r.run(ctx, &res)
	res.FinishedAt = time.Now()
	if err != nil {
		res.Error = err.Error()
		slog.Error("Pipeline: run failed", "error", err)
	} else {
		slog.Info("Pipeline: run complete",
			"files", res.Files, "failed", res.FilesFailed, "entries", res.Entries,
			"voyages", res.Voyages, "polar_points", res.PolarPoints,
			"took", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
	}

	r.record(res)

	r.mu.Lock()
	r.last = &res
	if err == nil {
		r.voyages = voyages
		r.dataset = ds
	}
	handlers := append([]func(Result){}, r.handlers...)
	r.mu.Unlock()

	for _, h := range handlers {
		h(res)
	}
	return res, err
}

func (r *Runner) run(ctx context.Context, res *Result) ([]model.Voyage, model.PolarDataset, error) {
	var ds model.PolarDataset
	cfg := r.cfg.Effective(ctx)

	// 1. Load
	start := time.Now()
	loaded, err := logbook.Load(cfg.Logbook.Dir, logbook.Options{
		Patterns:           cfg.Logbook.Patterns,
		MergeCourseChanges: cfg.Logbook.MergeCourseChanges,
	})
	if err != nil {
		r.tracker.TrackFailure(tracker.StageLoad)
		return nil, ds, fmt.Errorf("failed to load logbook: %w", err)
	}
	res.Files = len(loaded.Files)
	res.FilesFailed = len(loaded.Failed)
	res.Entries = len(loaded.Entries)
	r.tracker.TrackSkipped(tracker.StageLoad, len(loaded.Failed))
	r.tracker.TrackSuccess(tracker.StageLoad, len(loaded.Entries), time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, ds, err
	}

	// 2. Voyages
	start = time.Now()
	voyages := voyage.Build(loaded.Entries, voyage.OptionsFromConfig(cfg))
	res.Voyages = len(voyages)
	r.tracker.TrackSuccess(tracker.StageBuild, len(voyages), time.Since(start))
	for i := range voyages {
		v := &voyages[i]
		logging.Trace("Pipeline: voyage", "id", v.ID, "start", v.StartTime.String(), "points", len(v.Points), "distance", v.Distance)
	}
	if err := ctx.Err(); err != nil {
		return nil, ds, err
	}

	// 3. Polar
	start = time.Now()
	popts := polar.OptionsFromConfig(cfg.Polar)
	ds = polar.BuildPoints(voyages, popts)
	curves := polar.Curves(voyages, popts)
	res.PolarPoints = len(ds.Points)
	res.SailingSamples = polar.SampleCount(curves)
	r.tracker.TrackSuccess(tracker.StagePolar, len(ds.Points), time.Since(start))

	// 4. Export
	start = time.Now()
	written, err := r.export(cfg, voyages, ds, curves)
	res.Outputs = written
	if err != nil {
		r.tracker.TrackFailure(tracker.StageExport)
		return nil, ds, err
	}
	r.tracker.TrackSuccess(tracker.StageExport, len(written), time.Since(start))

	// 5. Store
	if r.store != nil {
		start = time.Now()
		if err := r.persist(ctx, voyages, ds); err != nil {
			r.tracker.TrackFailure(tracker.StageStore)
			return nil, ds, err
		}
		r.tracker.TrackSuccess(tracker.StageStore, len(voyages), time.Since(start))
	}

	return voyages, ds, nil
}

func (r *Runner) export(cfg *config.Config, voyages []model.Voyage, ds model.PolarDataset, curves []polar.Curve) ([]string, error) {
	out := cfg.Output
	written := []string{}

	type output struct {
		path  string
		write func(string) error
	}
	outputs := []output{
		{out.Voyages, func(p string) error { return export.WriteVoyages(p, voyages) }},
		{out.Polar, func(p string) error { return export.WritePolar(p, ds) }},
		{out.GeoJSON, func(p string) error { return export.WriteGeoJSON(p, voyages) }},
		{out.PolarTable, func(p string) error { return export.WritePolarTable(p, curves) }},
		{out.PolarDiagram, func(p string) error { return export.WritePolarDiagram(p, curves, cfg.Polar.Percentile) }},
	}

	for _, o := range outputs {
		if o.path == "" {
			continue
		}
		err := o.write(o.path)
		if errors.Is(err, polar.ErrNoSamples) {
			slog.Warn("Pipeline: skipping polar diagram", "path", o.path, "error", err)
			continue
		}
		if err != nil {
			return written, fmt.Errorf("failed to write %s: %w", o.path, err)
		}
		written = append(written, o.path)
	}
	return written, nil
}

func (r *Runner) persist(ctx context.Context, voyages []model.Voyage, ds model.PolarDataset) error {
	if err := r.store.ReplaceVoyages(ctx, voyages); err != nil {
		return fmt.Errorf("failed to store voyages: %w", err)
	}
	if err := r.store.ReplacePolar(ctx, ds.Points); err != nil {
		return fmt.Errorf("failed to store polar points: %w", err)
	}
	if err := r.store.SetState(ctx, store.StateLastGenerated, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record generation time: %w", err)
	}
	return nil
}

// record writes the run history. It uses a fresh context so cancelled runs are still recorded.
func (r *Runner) record(res Result) {
	if r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := r.store.RecordRun(ctx, store.Run{
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
		Files:       res.Files,
		FilesFailed: res.FilesFailed,
		Entries:     res.Entries,
		Voyages:     res.Voyages,
		PolarPoints: res.PolarPoints,
		Error:       res.Error,
	})
	if err != nil {
		slog.Warn("Pipeline: failed to record run", "error", err)
	}
}
