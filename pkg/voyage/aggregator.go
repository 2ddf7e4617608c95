// Package voyage groups chronologically sorted log entries into voyages.
package voyage

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"voyagelog/pkg/classifier"
	"voyagelog/pkg/config"
	"voyagelog/pkg/model"
)

// idNamespace seeds the deterministic voyage IDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("voyagelog:voyage"))

// Options controls grouping and finalization.
type Options struct {
	// MaxDayGap is the largest difference between the UTC calendar dates of
	// two consecutive timestamped entries that still keeps them in one voyage.
	MaxDayGap  time.Duration
	Thresholds classifier.Thresholds
	// Workers > 1 finalizes voyages concurrently, one accumulator per goroutine.
	Workers int
}

// DefaultOptions returns the options matching the default configuration.
func DefaultOptions() Options {
	return Options{
		MaxDayGap:  48 * time.Hour,
		Thresholds: classifier.DefaultThresholds(),
		Workers:    1,
	}
}

// OptionsFromConfig builds options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxDayGap:  cfg.Voyage.MaxDayGap.Std(),
		Thresholds: classifier.FromConfig(cfg.Classifier),
		Workers:    cfg.Voyage.Workers,
	}
}

// Aggregator splits an entry stream at voyage boundaries.
type Aggregator struct {
	opts     Options
	current  *Accumulator
	lastDate *time.Time
	closed   []*Accumulator
}

// NewAggregator returns an aggregator with the given options.
func NewAggregator(opts Options) *Aggregator {
	return &Aggregator{opts: opts}
}

// Add appends an entry to the current voyage, opening a new voyage when the
// calendar-date gap to the previous timestamped entry is negative or exceeds
// MaxDayGap. Entries without a timestamp always join the current voyage.
func (g *Aggregator) Add(e model.LogEntry) {
	date, ok := e.Datetime.Date()
	if g.current != nil && ok && g.lastDate != nil {
		diff := date.Sub(*g.lastDate)
		if diff < 0 || diff > g.opts.MaxDayGap {
			g.closed = append(g.closed, g.current)
			g.current = nil
		}
	}
	if g.current == nil {
		g.current = NewAccumulator()
	}
	if ok {
		g.lastDate = &date
	}
	g.current.Add(e)
}

// Accumulators closes the current voyage and returns all voyages collected so far.
func (g *Aggregator) Accumulators() []*Accumulator {
	if g.current != nil {
		g.closed = append(g.closed, g.current)
		g.current = nil
	}
	out := g.closed
	g.closed = nil
	g.lastDate = nil
	return out
}

// Build groups sorted entries into finalized voyages ordered by start time.
// An empty input yields an empty, non-nil slice.
func Build(entries []model.LogEntry, opts Options) []model.Voyage {
	g := NewAggregator(opts)
	for _, e := range entries {
		g.Add(e)
	}
	accs := g.Accumulators()

	voyages := make([]model.Voyage, len(accs))
	if opts.Workers > 1 && len(accs) > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, opts.Workers)
		for i, acc := range accs {
			wg.Add(1)
			go func(idx int, acc *Accumulator) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				voyages[idx] = acc.Finalize(opts.Thresholds)
			}(i, acc)
		}
		wg.Wait()
	} else {
		for i, acc := range accs {
			voyages[i] = acc.Finalize(opts.Thresholds)
		}
	}

	SortByStart(voyages)
	AssignIDs(voyages)

	slog.Debug("Voyages built", "entries", len(entries), "voyages", len(voyages))
	return voyages
}

// SortByStart orders voyages by start time. Voyages without a start time go last.
func SortByStart(voyages []model.Voyage) {
	sort.SliceStable(voyages, func(i, j int) bool {
		ti, okI := voyages[i].StartTime.Time()
		tj, okJ := voyages[j].StartTime.Time()
		switch {
		case okI && okJ:
			return ti.Before(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}

// AssignIDs derives each voyage ID from its start time, so regenerating the
// dataset from the same logs yields the same IDs.
func AssignIDs(voyages []model.Voyage) {
	for i := range voyages {
		name := voyages[i].StartTime.String()
		if name == "" {
			name = fmt.Sprintf("untimed-%d", i)
		}
		voyages[i].ID = uuid.NewSHA1(idNamespace, []byte(name)).String()
	}
}
