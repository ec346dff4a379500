// Package retry provides bounded exponential backoff for external calls.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Config bounds the backoff schedule.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

// DefaultConfig is the documented default policy: three attempts with a
// doubling delay starting at two seconds, capped at thirty.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		Jitter:      0.2,
	}
}

// Retrier reruns transient failures with exponential backoff. Permanent
// failures return immediately.
type Retrier struct {
	cfg    Config
	logger *slog.Logger
}

// New builds a Retrier, filling unset config fields with safe values.
func New(cfg Config, logger *slog.Logger) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2
	}
	return &Retrier{cfg: cfg, logger: logger}
}

// Do runs op until it succeeds, fails permanently, or attempts run out.
// The wait between attempts is cancellable through ctx.
func (r *Retrier) Do(ctx context.Context, name string, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		r.logger.Warn("transient failure, backing off",
			"op", name,
			"attempt", attempt,
			"delay", delay.String(),
			"err", lastErr)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled during backoff: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, r.cfg.MaxAttempts, lastErr)
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.cfg.BaseDelay) * math.Pow(r.cfg.Multiplier, float64(attempt-1))
	if d > float64(r.cfg.MaxDelay) {
		d = float64(r.cfg.MaxDelay)
	}
	// Jitter spreads out retries from concurrent workers.
	d *= 1 + (rand.Float64()-0.5)*r.cfg.Jitter
	return time.Duration(d)
}
