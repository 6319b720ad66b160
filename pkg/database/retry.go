package database

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

type retryConfig struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
	retryable    func(error) bool
}

type RetryOption func(*retryConfig)

func WithMaxAttempts(attempts int) RetryOption {
	return func(c *retryConfig) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

func WithBaseDelay(delay time.Duration) RetryOption {
	return func(c *retryConfig) {
		if delay >= 0 {
			c.baseDelay = delay
		}
	}
}

// WithRetryable replaces the predicate deciding which errors are replayed.
func WithRetryable(fn func(error) bool) RetryOption {
	return func(c *retryConfig) {
		if fn != nil {
			c.retryable = fn
		}
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. Delays grow as baseDelay * 2^(n-1) plus
// jitter. The last error is returned when the attempts are exhausted.
func Retry(ctx context.Context, fn func(ctx context.Context) error, options ...RetryOption) error {
	cfg := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		retryable:    IsTransient,
	}
	for _, option := range options {
		option(cfg)
	}

	var lastErr error
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec
			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !cfg.retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
