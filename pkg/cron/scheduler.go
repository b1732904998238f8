// Package cron re-runs the statement pipeline on a schedule using robfig/cron.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled pipeline run.
type Job func(ctx context.Context) error

// Scheduler manages a single recurring job. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	job     Job
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a new job scheduler. Every run gets its own context
// bounded by timeout.
func NewScheduler(job Job, timeout time.Duration, logger *slog.Logger) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:    c,
		job:     job,
		timeout: timeout,
		logger:  logger,
	}
}

// Start registers the job under spec (standard 5-field format or a
// descriptor such as "@every 15m") and begins scheduling.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", spec),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops scheduling. The returned context is done once a
// running job has finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow runs the job synchronously, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.job(ctx)
}

func (s *Scheduler) run() {
	start := time.Now()
	s.logger.Info("starting scheduled pipeline run")

	if err := s.RunNow(context.Background()); err != nil {
		s.logger.Error("scheduled pipeline run failed",
			slog.Any("error", err),
			slog.Duration("elapsed", time.Since(start)),
		)
		return
	}

	s.logger.Info("scheduled pipeline run completed",
		slog.Duration("elapsed", time.Since(start)),
	)
}
