package engine

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/quotachat/quotachat/internal/core"
)

// RetryConfig governs exponential backoff on quota-exceeded attempts.
type RetryConfig struct {
	// MaxAttempts bounds the total number of attempts, the first one included.
	MaxAttempts int

	// BaseDelay is the exponent base in seconds: attempt n waits BaseDelay^n seconds.
	BaseDelay float64

	// MaxDelay caps a single backoff wait.
	MaxDelay time.Duration
}

// DefaultRetryConfig yields waits of 2s, 4s, 8s, 16s between five attempts.
var DefaultRetryConfig = RetryConfig{MaxAttempts: 5, BaseDelay: 2, MaxDelay: 60 * time.Second}

// Validate rejects non-positive retry settings.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts <= 0 {
		return errors.New("retry max attempts must be positive")
	}
	if c.BaseDelay <= 0 {
		return errors.New("retry base delay must be positive")
	}
	if c.MaxDelay <= 0 {
		return errors.New("retry max delay must be positive")
	}
	return nil
}

// ComputeDelay returns min(MaxDelay, BaseDelay^attempt seconds).
func ComputeDelay(attempt int, cfg RetryConfig) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	seconds := math.Pow(cfg.BaseDelay, float64(attempt))
	if math.IsNaN(seconds) || seconds >= cfg.MaxDelay.Seconds() {
		return cfg.MaxDelay
	}
	return time.Duration(seconds * float64(time.Second))
}

// Sleeper suspends the caller for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AttemptFunc performs one remote call and returns its classified outcome.
// A non-nil error means the call was cancelled and must not be retried.
type AttemptFunc func(ctx context.Context) (core.Outcome, error)

// Retrier runs one logical request as a bounded sequence of attempts,
// absorbing quota-exceeded outcomes with exponential backoff.
type Retrier struct {
	Limiter *RateLimiter
	Config  RetryConfig
	Clock   func() time.Time
	Sleep   Sleeper

	// OnAttempt observes every classified attempt.
	OnAttempt func(attempt int, outcome core.Outcome)
	// OnRetry observes every backoff wait before it starts.
	OnRetry func(attempt int, delay time.Duration)
}

// Execute performs attempts until success, a non-quota failure, or MaxAttempts
// quota-exceeded outcomes. Cancellation is returned as an error immediately.
func (r *Retrier) Execute(ctx context.Context, call AttemptFunc) (core.Outcome, error) {
	if call == nil {
		return core.Outcome{}, errors.New("attempt function is required")
	}

	maxAttempts := r.Config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return core.Outcome{Attempts: attempt}, err
		}

		attempt++
		if r.Limiter != nil {
			r.Limiter.Record(r.now())
		}

		outcome, err := call(ctx)
		if err != nil {
			return core.Outcome{Attempts: attempt}, err
		}
		outcome.Attempts = attempt

		if r.OnAttempt != nil {
			r.OnAttempt(attempt, outcome)
		}

		if outcome.Kind != core.OutcomeQuotaExceeded || attempt >= maxAttempts {
			return outcome, nil
		}

		delay := ComputeDelay(attempt, r.Config)
		if r.OnRetry != nil {
			r.OnRetry(attempt, delay)
		}
		if err := r.sleep(ctx, delay); err != nil {
			return core.Outcome{Attempts: attempt}, err
		}
	}
}

func (r *Retrier) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

func (r *Retrier) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}
