package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds how often a transient failure is re-attempted.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// 1 (the default) means a failed call is reported immediately.
	MaxAttempts int

	// Backoff is the fixed pause between attempts. Default: 1s.
	Backoff time.Duration

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the single-attempt configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 1, Backoff: time.Second}
}

// DoVal executes fn, retrying transient failures up to MaxAttempts. Decode
// errors, not-found and any other non-transient error return immediately.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(cfg.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
