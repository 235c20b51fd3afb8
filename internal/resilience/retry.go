// Package resilience provides retry with backoff and block tracking for
// calls to rate-limited external services.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls how Retry spaces and limits its attempts.
type Policy struct {
	// Attempts is the total number of tries, first call included.
	Attempts int

	// BaseDelay is the sleep before the first retry. Each further retry
	// doubles it, up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter spreads each sleep by up to ±Jitter as a fraction of the
	// computed delay, so callers that fail together do not retry together.
	Jitter float64

	// Retryable decides whether an error is worth another try. Nil means
	// IsTransient.
	Retryable func(error) bool

	// OnRetry runs before each sleep with the 1-based retry number.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy suits most HTTP API calls: three tries, half-second base
// delay, capped at thirty seconds.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  30 * time.Second,
		Jitter:    0.25,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts < 1 {
		p.Attempts = d.Attempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = d.MaxDelay
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// delay computes the sleep before retry number retry (0-based).
func (p Policy) delay(retry int) time.Duration {
	d := p.BaseDelay << retry
	if d <= 0 || d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d += time.Duration((rand.Float64()*2 - 1) * spread)
	}
	if d < 0 {
		d = 0
	}
	return d
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// context ends, or the policy's attempts run out. On failure the last error
// seen is returned with the zero value.
func Retry[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !p.Retryable(err) || attempt == p.Attempts-1 {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		t := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, lastErr
		case <-t.C:
		}
	}
	return zero, lastErr
}

// RetryLogger returns an OnRetry hook that logs each retry at warn level.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying",
			zap.String("service", service),
			zap.String("op", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
