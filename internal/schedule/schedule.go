// Package schedule runs recurring collection passes so the archive keeps up
// with the calendar without manual reruns.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"haitimeteo/internal/collector"
)

// Runner executes one collection pass.
type Runner interface {
	Run(ctx context.Context, opts collector.Options) (*collector.Summary, error)
}

// InvalidateFunc drops cached reads after a pass lands new rows.
type InvalidateFunc func()

// Scheduler triggers a collection pass on a fixed interval. Each pass
// targets the current year only; the bulk backfill stays a one-off run.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	runner     Runner
	opts       collector.Options
	interval   time.Duration
	invalidate InvalidateFunc
	logger     *slog.Logger
}

// New creates a Scheduler. invalidate may be nil when no cache sits in
// front of the archive reads; if logger is nil, slog.Default() is used.
func New(runner Runner, opts collector.Options, interval time.Duration, invalidate InvalidateFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		runner:     runner,
		opts:       opts,
		interval:   interval,
		invalidate: invalidate,
		logger:     logger,
	}
}

// Start schedules the recurring pass and starts the underlying scheduler
// asynchronously. A pass that fails is logged and the schedule keeps going.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.logger.Info("scheduled collection pass starting")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		summary, err := s.runner.Run(ctx, s.opts)
		if err != nil {
			s.logger.Error("scheduled collection pass failed", slog.String("error", err.Error()))
			return
		}

		if summary.Inserted > 0 && s.invalidate != nil {
			s.invalidate()
		}

		s.logger.Info("scheduled collection pass finished",
			slog.Int("total", summary.Total),
			slog.Int("failed", summary.Failed),
			slog.Int64("inserted", summary.Inserted),
		)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop halts the scheduler and drops any pending runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
