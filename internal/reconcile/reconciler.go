// Package reconcile periodically repairs quest aggregate counters.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StatsRecomputer recomputes the counters of every quest
type StatsRecomputer interface {
	RecomputeAllStats(ctx context.Context) (int, error)
}

// Reconciler recomputes quest stats on a fixed interval. Counters can go
// stale when a process dies between a submission insert and its stats
// update; each pass rebuilds them from the submissions.
type Reconciler struct {
	stats     StatsRecomputer
	interval  time.Duration
	scheduler gocron.Scheduler
}

// NewReconciler creates a new reconciler
func NewReconciler(stats StatsRecomputer, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &Reconciler{
		stats:    stats,
		interval: interval,
	}
}

// Start schedules the job, running the first pass immediately. Passes never
// overlap; a pass still running when the next is due delays it.
func (r *Reconciler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() { r.RunOnce(ctx) }),
		gocron.WithName("recompute-quest-stats"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to schedule reconcile job: %w", err)
	}

	scheduler.Start()
	r.scheduler = scheduler

	slog.Info("stats reconciler started", "interval", r.interval)
	return nil
}

// Stop shuts the scheduler down and waits for a running pass to finish
func (r *Reconciler) Stop() error {
	if r.scheduler == nil {
		return nil
	}
	if err := r.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	r.scheduler = nil
	slog.Info("stats reconciler stopped")
	return nil
}

// RunOnce performs a single reconcile pass
func (r *Reconciler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	updated, err := r.stats.RecomputeAllStats(ctx)
	if err != nil {
		slog.Error("stats reconcile failed", "error", err, "updated", updated)
		return
	}

	slog.Debug("stats reconcile finished",
		"updated", updated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
