// Package scheduler runs the background refresher that reconciles pending
// jobs with the remote API on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dandantas/tamarin/internal/config"
	"github.com/dandantas/tamarin/internal/datamonkey"
	"github.com/dandantas/tamarin/internal/model"
	"github.com/dandantas/tamarin/internal/service"
)

// Refresher periodically sweeps pending jobs and refreshes their status
// against the remote API
type Refresher struct {
	cfg       *config.Config
	tracker   *service.Tracker
	schedule  cron.Schedule
	nextSweep time.Time
	ticker    *time.Ticker
	stopChan  chan struct{}
	wg        sync.WaitGroup
	semaphore chan struct{} // Limits concurrent refreshes
}

// NewRefresher creates a refresher from the configured cron schedule
func NewRefresher(cfg *config.Config, tracker *service.Tracker) (*Refresher, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cfg.RefresherSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresher schedule %q: %w", cfg.RefresherSchedule, err)
	}

	return &Refresher{
		cfg:       cfg,
		tracker:   tracker,
		schedule:  schedule,
		stopChan:  make(chan struct{}),
		semaphore: make(chan struct{}, cfg.RefresherConcurrency),
	}, nil
}

// Start begins the refresher tick loop
func (r *Refresher) Start(ctx context.Context) {
	if !r.cfg.RefresherEnabled {
		slog.Info("Job refresher is disabled by configuration")
		return
	}

	slog.Info("Starting job refresher",
		"schedule", r.cfg.RefresherSchedule,
		"tick_interval", r.cfg.RefresherTickInterval,
		"min_job_age", r.cfg.RefresherMinJobAge,
		"concurrency", r.cfg.RefresherConcurrency,
	)

	// First sweep is due immediately
	r.nextSweep = time.Now().UTC()
	r.ticker = time.NewTicker(r.cfg.RefresherTickInterval)
	r.wg.Add(1)

	go r.run(ctx)
}

// Stop gracefully stops the refresher, waiting for in-flight refreshes
// until the context expires
func (r *Refresher) Stop(ctx context.Context) {
	if !r.cfg.RefresherEnabled {
		return
	}

	slog.Info("Stopping job refresher")

	close(r.stopChan)

	if r.ticker != nil {
		r.ticker.Stop()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("All job refreshes completed")
	case <-ctx.Done():
		slog.Warn("Timeout waiting for job refreshes to complete")
	}

	slog.Info("Job refresher stopped")
}

// run is the main refresher loop
func (r *Refresher) run(ctx context.Context) {
	defer r.wg.Done()

	// Run immediately on start
	r.tick(ctx)

	for {
		select {
		case <-r.ticker.C:
			r.tick(ctx)
		case <-r.stopChan:
			slog.Info("Job refresher loop stopped")
			return
		case <-ctx.Done():
			slog.Info("Job refresher context done")
			return
		}
	}
}

// tick processes one refresher tick. The cron schedule gates sweeps; ticks
// between scheduled times are no-ops.
func (r *Refresher) tick(ctx context.Context) {
	now := time.Now().UTC()
	if now.Before(r.nextSweep) {
		return
	}
	r.nextSweep = r.schedule.Next(now)

	jobs := r.tracker.StalePendingJobs(r.cfg.RefresherMinJobAge)
	if len(jobs) == 0 {
		slog.Debug("No pending jobs due for refresh", "next_sweep", r.nextSweep.Format(time.RFC3339))
		return
	}

	slog.Info("Refreshing pending jobs",
		"count", len(jobs),
		"next_sweep", r.nextSweep.Format(time.RFC3339),
	)

	for _, job := range jobs {
		r.wg.Add(1)
		go r.refreshJob(ctx, job)
	}
}

// refreshJob refreshes a single pending job with concurrency control
func (r *Refresher) refreshJob(ctx context.Context, job model.Job) {
	defer r.wg.Done()

	// Acquire semaphore slot (limit concurrent refreshes)
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-r.stopChan:
		return
	case <-ctx.Done():
		return
	}

	correlationID := uuid.New().String()
	start := time.Now()

	res := r.tracker.RefreshJob(ctx, job.ID)

	duration := time.Since(start)

	if res.Status == datamonkey.StatusError {
		slog.Warn("Scheduled job refresh failed",
			"job_id", job.ID,
			"method", job.Method,
			"correlation_id", correlationID,
			"duration_ms", duration.Milliseconds(),
			"error", res.Error,
		)
		return
	}

	slog.Info("Scheduled job refresh completed",
		"job_id", job.ID,
		"method", job.Method,
		"job_status", res.JobStatus,
		"correlation_id", correlationID,
		"duration_ms", duration.Milliseconds(),
	)
}
