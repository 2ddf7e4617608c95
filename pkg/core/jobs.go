package core

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"voyagelog/pkg/watcher"
)

// Job defines a scheduled task.
type Job interface {
	Name() string
	ShouldFire(now time.Time) bool
	Run(ctx context.Context)
}

// BaseJob provides atomic running state to prevent re-entry.
type BaseJob struct {
	name    string
	running int32 // 1 if running, 0 otherwise
}

func NewBaseJob(name string) BaseJob {
	return BaseJob{name: name}
}

func (b *BaseJob) Name() string {
	return b.name
}

// TryLock attempts to set running to 1. Returns true if successful.
func (b *BaseJob) TryLock() bool {
	return atomic.CompareAndSwapInt32(&b.running, 0, 1)
}

func (b *BaseJob) Unlock() {
	atomic.StoreInt32(&b.running, 0)
}

// Running reports whether Run is in progress.
func (b *BaseJob) Running() bool {
	return atomic.LoadInt32(&b.running) == 1
}

// ChangeDetector reports whether the logbook changed since it was last asked.
type ChangeDetector interface {
	Changed() (watcher.Change, bool)
}

// RegenerateJob rebuilds the datasets when the log files change.
type RegenerateJob struct {
	BaseJob
	detector ChangeDetector
	action   func(context.Context) error
	pending  atomic.Bool
}

func NewRegenerateJob(detector ChangeDetector, action func(context.Context) error) *RegenerateJob {
	return &RegenerateJob{
		BaseJob:  NewBaseJob("Regenerate"),
		detector: detector,
		action:   action,
	}
}

// ShouldFire polls the detector. A change seen while a run is in progress
// is kept and fires once the run finishes.
func (j *RegenerateJob) ShouldFire(_ time.Time) bool {
	if _, changed := j.detector.Changed(); changed {
		j.pending.Store(true)
	}
	if j.Running() {
		return false
	}
	return j.pending.Load()
}

func (j *RegenerateJob) Run(ctx context.Context) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.pending.Store(false)
	if err := j.action(ctx); err != nil {
		slog.Error("RegenerateJob: run failed", "error", err)
	}
}

// TimeJob fires when time elapsed exceeds threshold.
type TimeJob struct {
	BaseJob
	lastTime  time.Time
	threshold time.Duration
	action    func(context.Context)
	firstRun  bool
}

// NewTimeJob creates a job that fires every threshold. When immediate is false
// the first run waits a full threshold.
func NewTimeJob(name string, threshold time.Duration, immediate bool, action func(context.Context)) *TimeJob {
	return &TimeJob{
		BaseJob:   NewBaseJob(name),
		threshold: threshold,
		action:    action,
		firstRun:  immediate,
		lastTime:  time.Now(),
	}
}

func (j *TimeJob) ShouldFire(now time.Time) bool {
	if j.Running() || j.threshold <= 0 {
		return false
	}

	if j.firstRun {
		return true
	}

	return now.Sub(j.lastTime) >= j.threshold
}

func (j *TimeJob) Run(ctx context.Context) {
	if !j.TryLock() {
		return
	}
	defer j.Unlock()

	j.lastTime = time.Now()
	j.firstRun = false

	j.action(ctx)
}
