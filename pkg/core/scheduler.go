// Package core drives periodic work: regenerating the datasets when the
// logbook changes and housekeeping on a timer.
package core

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler evaluates its jobs on every tick.
type Scheduler struct {
	interval time.Duration
	jobs     []Job
	wg       sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		interval: interval,
		jobs:     []Job{},
	}
}

// AddJob registers a job.
func (s *Scheduler) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start runs the main loop. It blocks until context is cancelled and the
// jobs it started have returned.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", s.interval, "jobs", len(s.jobs))

	// First evaluation happens right away so startup does not wait a full interval.
	s.tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			slog.Info("Scheduler stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	for _, job := range s.jobs {
		if job.ShouldFire(now) {
			slog.Debug("Job firing", "job", job.Name())
			s.wg.Add(1)
			go func(j Job) {
				defer s.wg.Done()
				j.Run(ctx)
			}(job)
		}
	}
}
