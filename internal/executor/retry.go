package executor

import (
	"context"
	"time"

	"WhaleTrail/pkg/logger"
)

// RetryHandler reruns transient failures with exponential backoff. The
// delay doubles (or grows by the configured factor) after every failed
// attempt and never exceeds the cap; permanent failures return on the
// first attempt.
type RetryHandler struct {
	maxAttempts   int
	initialDelay  time.Duration
	maxDelay      time.Duration
	backoffFactor float64
	log           *logger.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

func NewRetryHandler(cfg RetryConfig, log *logger.Logger) *RetryHandler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.BackoffFactor < 1 {
		cfg.BackoffFactor = 2.0
	}
	return &RetryHandler{
		maxAttempts:   cfg.MaxAttempts,
		initialDelay:  cfg.InitialDelay,
		maxDelay:      cfg.MaxDelay,
		backoffFactor: cfg.BackoffFactor,
		log:           log,
		sleep:         sleepCtx,
	}
}

// Do runs fn up to maxAttempts times. Only retryable errors earn another
// attempt; the last error is returned once the budget is spent.
func (r *RetryHandler) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	delay := r.initialDelay

	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == r.maxAttempts {
			break
		}

		if r.log != nil {
			r.log.Warn("transient failure, retrying",
				logger.String("operation", op),
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Error(err))
		}
		if serr := r.sleep(ctx, delay); serr != nil {
			return serr
		}
		delay = time.Duration(float64(delay) * r.backoffFactor)
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
