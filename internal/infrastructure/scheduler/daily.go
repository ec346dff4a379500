package scheduler

import (
	"context"
	"time"

	"dailybrief/internal/ports"
)

// DailyScheduler fires the job once a day at a fixed UTC wall-clock time.
type DailyScheduler struct {
	hour   int
	minute int
	now    func() time.Time
	stop   chan struct{}
}

var _ ports.Scheduler = (*DailyScheduler)(nil)

// NewDailyScheduler builds a scheduler for the given HH:MM in UTC.
func NewDailyScheduler(hour, minute int) *DailyScheduler {
	return &DailyScheduler{hour: hour, minute: minute, now: time.Now}
}

// Start launches the trigger goroutine. Starting twice is a no-op.
func (s *DailyScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	go s.loop(ctx, job, s.stop)
	return nil
}

func (s *DailyScheduler) loop(ctx context.Context, job func(time.Time), stop chan struct{}) {
	for {
		next := nextRun(s.now(), s.hour, s.minute)
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-timer.C:
			job(next)
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// Stop halts the trigger goroutine.
func (s *DailyScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}

// nextRun returns the next occurrence of hh:mm UTC strictly after now.
func nextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
