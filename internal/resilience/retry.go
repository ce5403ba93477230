// Package resilience retries operations that fail transiently.
package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Policy defines how an operation is retried.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BaseDelay is the delay before the first retry. It doubles per retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// UseJitter scales each delay by a random factor in [0.5, 1.5).
	UseJitter bool

	// Retryable reports whether err is worth another attempt. Nil retries
	// every error.
	Retryable func(err error) bool
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// retries are exhausted or ctx is done. Context errors are never retried.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := range p.MaxRetries + 1 {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil || !p.retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxRetries {
			break
		}

		timer := time.NewTimer(Backoff(attempt, p.BaseDelay, p.MaxDelay, p.UseJitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (p Policy) retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Backoff returns the delay before retry number attempt (zero based):
// baseDelay * 2^attempt, capped at maxDelay.
func Backoff(attempt int, baseDelay, maxDelay time.Duration, jitter bool) time.Duration {
	if baseDelay <= 0 {
		baseDelay = 10 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = time.Second
	}

	delay := baseDelay
	for range attempt {
		delay *= 2
		if delay >= maxDelay {
			delay = maxDelay
			break
		}
	}

	if jitter {
		delay = time.Duration(float64(delay) * (0.5 + rand.Float64()))
	}
	return min(delay, maxDelay)
}
