package resilience

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDelayExponential(t *testing.T) {
	cfg := RetryConfig{
		Strategy:   BackoffExponential,
		BaseDelay:  100 * time.Millisecond,
		Multiplier: 2.0,
	}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(3))

	// Without jitter the sequence never decreases
	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := cfg.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev, "delay decreased at attempt %d", attempt)
		prev = d
	}
}

func TestDelayCappedAtMaxDelay(t *testing.T) {
	cfg := RetryConfig{
		Strategy:   BackoffExponential,
		BaseDelay:  100 * time.Millisecond,
		Multiplier: 2.0,
		MaxDelay:   500 * time.Millisecond,
	}

	assert.Equal(t, 400*time.Millisecond, cfg.Delay(3))
	assert.Equal(t, 500*time.Millisecond, cfg.Delay(4))
	assert.Equal(t, 500*time.Millisecond, cfg.Delay(10))
}

func TestDelayLinear(t *testing.T) {
	cfg := RetryConfig{
		Strategy:  BackoffLinear,
		BaseDelay: 100 * time.Millisecond,
		Increment: 50 * time.Millisecond,
	}

	assert.Equal(t, 100*time.Millisecond, cfg.Delay(1))
	assert.Equal(t, 150*time.Millisecond, cfg.Delay(2))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(3))
}

func TestDelayFixed(t *testing.T) {
	cfg := RetryConfig{
		Strategy:  BackoffFixed,
		BaseDelay: 250 * time.Millisecond,
	}

	for attempt := 1; attempt <= 5; attempt++ {
		assert.Equal(t, 250*time.Millisecond, cfg.Delay(attempt))
	}
}

func TestDelayJitterBoundsAndFloor(t *testing.T) {
	cfg := RetryConfig{
		Strategy:   BackoffExponential,
		BaseDelay:  100 * time.Millisecond,
		Multiplier: 2.0,
		MaxDelay:   time.Second,
		Jitter:     true,
		Rand:       rand.New(rand.NewSource(42)),
	}

	for attempt := 1; attempt <= 100; attempt++ {
		d := cfg.Delay(attempt)
		assert.GreaterOrEqual(t, d, time.Duration(0), "jittered delay went negative")
		// Jitter stays within ±25% of the capped delay
		assert.LessOrEqual(t, d, time.Duration(float64(time.Second)*1.25))
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	// Fails twice, then succeeds: the wrapper reports success and two
	// recorded attempts.
	calls := 0
	var attempts []Attempt

	cfg := RetryConfig{
		MaxAttempts: 3,
		Strategy:    BackoffFixed,
		BaseDelay:   time.Millisecond,
		OnRetry:     func(a Attempt) { attempts = append(attempts, a) },
	}

	result, err := Retry(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
	require.Len(t, attempts, 2)
	assert.Equal(t, 1, attempts[0].Number)
	assert.Equal(t, 2, attempts[1].Number)
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	lastErr := errors.New("still broken")
	calls := 0

	cfg := RetryConfig{
		MaxAttempts: 3,
		Strategy:    BackoffFixed,
		BaseDelay:   time.Millisecond,
	}

	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, lastErr
	})

	assert.Equal(t, 3, calls)
	// The underlying error surfaces unchanged, not wrapped
	assert.Same(t, lastErr, err)
}

func TestRetrySingleAttemptByDefault(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryConfig{}, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryCancellationDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := RetryConfig{
		MaxAttempts: 5,
		Strategy:    BackoffFixed,
		BaseDelay:   time.Hour, // backoff must be interrupted, not waited out
	}

	calls := 0
	done := make(chan struct{})
	var err error
	go func() {
		_, err = Retry(ctx, cfg, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("transient")
		})
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation during backoff")
	}

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryCancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, RetryConfig{MaxAttempts: 3}, func(ctx context.Context) (int, error) {
		calls++
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRetryTimeoutBudget(t *testing.T) {
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:   5,
		Strategy:      BackoffFixed,
		BaseDelay:     20 * time.Millisecond,
		TimeoutBudget: 10 * time.Millisecond,
	}

	failure := errors.New("transient")
	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, failure
	})

	// The budget elapses during the first backoff, so the loop stops
	// early with the last underlying error.
	assert.Same(t, failure, err)
	assert.Less(t, calls, 5)
}

func TestRetrySync(t *testing.T) {
	calls := 0
	cfg := RetryConfig{
		MaxAttempts: 3,
		Strategy:    BackoffFixed,
		BaseDelay:   time.Millisecond,
	}

	result, err := RetrySync(cfg, func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Equal(t, 2, calls)
}

func TestRetryLogsEachFailedAttempt(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := RetryConfig{
		MaxAttempts: 3,
		Strategy:    BackoffFixed,
		Logger:      zap.New(core),
	}

	failure := errors.New("connection reset")
	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		return 0, failure
	})
	require.Error(t, err)

	// The final attempt is not followed by a retry, so two attempts log.
	entries := logs.FilterMessage("retrying after failure").All()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(1), fields["attempt"])
	assert.Equal(t, "connection reset", fields["error"])
}

func TestRetryNilLoggerIsSilent(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, Strategy: BackoffFixed}

	_, err := RetrySync(cfg, func() (int, error) {
		return 0, errors.New("transient")
	})
	assert.Error(t, err)
}
