// Package probe runs startup checks before the scheduler and server start.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const checkTimeout = 5 * time.Second

// CheckFunc returns nil when the check passes.
type CheckFunc func(ctx context.Context) error

// Probe is a single startup check. A failing Critical probe aborts startup.
type Probe struct {
	Name     string
	Check    CheckFunc
	Critical bool
}

// Result holds the outcome of a single probe.
type Result struct {
	Probe    Probe
	Error    error
	Duration time.Duration
}

// Run executes the probes in order, each bounded by its own timeout.
func Run(ctx context.Context, probes []Probe) []Result {
	results := make([]Result, 0, len(probes))
	for _, p := range probes {
		start := time.Now()
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := p.Check(checkCtx)
		cancel()
		results = append(results, Result{Probe: p, Error: err, Duration: time.Since(start)})
	}
	return results
}

// AnalyzeResults logs a summary and joins the errors of failed critical probes.
func AnalyzeResults(results []Result) error {
	var critical []error

	slog.Info("Startup checks", "count", len(results))
	for _, r := range results {
		took := r.Duration.Round(time.Millisecond)
		if r.Error == nil {
			slog.Info(fmt.Sprintf("[PASS] %-20s", r.Probe.Name), "took", took)
			continue
		}
		if r.Probe.Critical {
			slog.Error(fmt.Sprintf("[FAIL] %-20s", r.Probe.Name), "took", took, "error", r.Error)
			critical = append(critical, fmt.Errorf("%s: %w", r.Probe.Name, r.Error))
		} else {
			slog.Warn(fmt.Sprintf("[WARN] %-20s", r.Probe.Name), "took", took, "error", r.Error)
		}
	}
	return errors.Join(critical...)
}
