package usecase

import (
	"context"
	"log/slog"
	"time"

	"dailybrief/internal/ports"
)

// defaultRunTimeout caps a single triggered briefing run.
const defaultRunTimeout = 30 * time.Minute

// Scheduler wires the daily trigger with the briefing pipeline.
type Scheduler struct {
	driver     ports.Scheduler
	pipeline   *Pipeline
	logger     *slog.Logger
	runTimeout time.Duration
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		driver:     driver,
		pipeline:   pipeline,
		logger:     logger,
		runTimeout: defaultRunTimeout,
	}
}

// Start registers the pipeline with the provided trigger driver. Each
// trigger runs the briefing for the trigger's date under a bounded context.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
		defer cancel()

		report, err := s.pipeline.Run(runCtx, trigger)
		if err != nil {
			s.logger.Error("scheduled run failed",
				"run_id", report.RunID, "date", trigger.Format("2006-01-02"), "err", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
