package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	val, err := Retry(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		calls++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, val)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	calls := 0
	val, err := Retry(context.Background(), fastPolicy(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("status 503 from upstream")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("invalid request")
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("rate limit exceeded")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryRespectsRetryableOverride(t *testing.T) {
	calls := 0
	p := fastPolicy()
	p.Retryable = func(error) bool { return calls < 2 }
	_, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("custom")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, fastPolicy(), func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("i/o timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryCallsOnRetryHook(t *testing.T) {
	var retries []int
	p := fastPolicy()
	p.OnRetry = func(attempt int, err error) {
		retries = append(retries, attempt)
	}
	_, err := Retry(context.Background(), p, func(context.Context) (int, error) {
		return 0, errors.New("too many requests")
	})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestPolicyWithDefaultsFillsZeroValues(t *testing.T) {
	p := Policy{}.withDefaults()
	assert.Equal(t, 3, p.Attempts)
	assert.Equal(t, 500*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 30*time.Second, p.MaxDelay)
	assert.NotNil(t, p.Retryable)
}

func TestPolicyDelayGrowsAndCaps(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, p.delay(0))
	assert.Equal(t, 200*time.Millisecond, p.delay(1))
	assert.Equal(t, 300*time.Millisecond, p.delay(2))
	// Far past the cap the shifted value may overflow; still capped.
	assert.Equal(t, 300*time.Millisecond, p.delay(60))
}

func TestPolicyDelayJitterStaysInRange(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Jitter: 0.5}
	for i := 0; i < 50; i++ {
		d := p.delay(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}
