package engine

import (
	"context"
	"time"

	"github.com/quotachat/quotachat/internal/core"
)

// Controller admits a logical request through the sliding window and then
// hands it to the retrier.
type Controller struct {
	Limiter *RateLimiter
	Retrier *Retrier
	Clock   func() time.Time
	Sleep   Sleeper

	// OnWait observes admission waits before they start.
	OnWait func(wait time.Duration)
}

// Hooks bundles optional observers for a controller.
type Hooks struct {
	OnWait    func(wait time.Duration)
	OnAttempt func(attempt int, outcome core.Outcome)
	OnRetry   func(attempt int, delay time.Duration)
}

// NewController builds a limiter and a retrier sharing the wall clock.
func NewController(limits LimiterConfig, retry RetryConfig, hooks Hooks) (*Controller, error) {
	if err := retry.Validate(); err != nil {
		return nil, err
	}
	limiter, err := NewRateLimiter(limits)
	if err != nil {
		return nil, err
	}

	return &Controller{
		Limiter: limiter,
		Retrier: &Retrier{
			Limiter:   limiter,
			Config:    retry,
			OnAttempt: hooks.OnAttempt,
			OnRetry:   hooks.OnRetry,
		},
		OnWait: hooks.OnWait,
	}, nil
}

// WithClock replaces the clock and sleeper used by the controller and its retrier.
func (c *Controller) WithClock(clock func() time.Time, sleep Sleeper) *Controller {
	c.Clock = clock
	c.Sleep = sleep
	if c.Retrier != nil {
		c.Retrier.Clock = clock
		c.Retrier.Sleep = sleep
	}
	return c
}

// Admit blocks until the limiter permits a call or ctx is done.
func (c *Controller) Admit(ctx context.Context) error {
	if c.Limiter == nil {
		return nil
	}
	for {
		permitted, wait := c.Limiter.Allow(c.now())
		if permitted {
			return nil
		}
		if c.OnWait != nil {
			c.OnWait(wait)
		}
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Do admits the request once, then executes it with backoff. Retried attempts
// are recorded against the window but are not re-admitted.
func (c *Controller) Do(ctx context.Context, call AttemptFunc) (core.Outcome, error) {
	if err := c.Admit(ctx); err != nil {
		return core.Outcome{}, err
	}

	retrier := c.Retrier
	if retrier == nil {
		retrier = &Retrier{Limiter: c.Limiter, Config: DefaultRetryConfig, Clock: c.Clock, Sleep: c.Sleep}
	}
	return retrier.Execute(ctx, call)
}

// Status reports the limiter window at the controller's current time.
func (c *Controller) Status() core.LimiterStatus {
	if c.Limiter == nil {
		return core.LimiterStatus{Permitted: true}
	}
	return c.Limiter.Status(c.now())
}

func (c *Controller) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}
