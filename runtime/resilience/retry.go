// Package resilience implements the runtime behavior behind the
// generated resilience decorators: bounded retries with backoff,
// per-method circuit breakers, per-method TTL caches, call timing, and
// interceptor chains. Per-method state lives in process-wide registries
// keyed by a stable method identity; each registry owns its own
// synchronization so generated wrappers never hold nested locks.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Backoff selects the retry delay strategy.
type Backoff string

const (
	BackoffExponential Backoff = "exponential"
	BackoffLinear      Backoff = "linear"
	BackoffFixed       Backoff = "fixed"
)

// jitterFraction is the symmetric jitter applied when enabled: the
// capped delay varies by up to ±25%, floored at zero.
const jitterFraction = 0.25

// ErrBudgetExceeded is returned when the overall timeout budget elapses
// before the first attempt produced a failure to rethrow.
var ErrBudgetExceeded = errors.New("resilience: retry timeout budget exceeded")

// Attempt records one failed attempt, surfaced to the OnRetry observer
// for observability. It is not persisted beyond the call.
type Attempt struct {
	Number int // 1-based attempt number
	Err    error
	Delay  time.Duration // backoff applied after this attempt
}

// RetryConfig controls the bounded retry loop.
type RetryConfig struct {
	MaxAttempts   int
	Strategy      Backoff
	BaseDelay     time.Duration
	Multiplier    float64       // exponential strategy
	Increment     time.Duration // linear strategy
	Jitter        bool
	MaxDelay      time.Duration
	TimeoutBudget time.Duration // 0 means no overall budget

	OnRetry func(Attempt) // optional per-attempt observer
	Logger  *zap.Logger   // nil disables logging

	// Rand overrides the jitter source; tests use a fixed seed.
	Rand *rand.Rand
}

// Delay computes the backoff before retry attempt+1, for a 1-based
// failed attempt number. The strategy delay is capped at MaxDelay
// before jitter; jittered delays never go negative.
func (c RetryConfig) Delay(attempt int) time.Duration {
	var d float64
	switch c.Strategy {
	case BackoffLinear:
		d = float64(c.BaseDelay) + float64(c.Increment)*float64(attempt-1)
	case BackoffFixed:
		d = float64(c.BaseDelay)
	default:
		d = float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	}

	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}

	if c.Jitter {
		r := c.Rand
		var f float64
		if r != nil {
			f = r.Float64()
		} else {
			f = rand.Float64()
		}
		d += jitterFraction * d * (f*2 - 1)
	}

	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Retry runs op up to MaxAttempts times, suspending between attempts
// with the configured backoff. The wait is context-aware: cancellation
// during backoff terminates the wait promptly and propagates as the
// failure, never swallowed by the loop. On exhaustion the last
// underlying error is returned unchanged.
func Retry[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var deadline time.Time
	if cfg.TimeoutBudget > 0 {
		deadline = time.Now().Add(cfg.TimeoutBudget)
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ErrBudgetExceeded
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := cfg.Delay(attempt)
		record(cfg, Attempt{Number: attempt, Err: err, Delay: delay})

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// RetrySync is the blocking form used for wrappers around synchronous
// methods: backoff uses a blocking sleep and there is no cancellation.
// The two forms are never mixed in a single generated wrapper.
func RetrySync[T any](cfg RetryConfig, op func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var deadline time.Time
	if cfg.TimeoutBudget > 0 {
		deadline = time.Now().Add(cfg.TimeoutBudget)
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ErrBudgetExceeded
		}

		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		delay := cfg.Delay(attempt)
		record(cfg, Attempt{Number: attempt, Err: err, Delay: delay})
		time.Sleep(delay)
	}

	return zero, lastErr
}

func record(cfg RetryConfig, a Attempt) {
	if cfg.OnRetry != nil {
		cfg.OnRetry(a)
	}
	if cfg.Logger != nil {
		cfg.Logger.Warn("retrying after failure",
			zap.Int("attempt", a.Number),
			zap.Duration("delay", a.Delay),
			zap.Error(a.Err),
		)
	}
}
