package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/gammazero/deque"

	"github.com/quotachat/quotachat/internal/core"
)

// LimiterConfig bounds outgoing calls to MaxCalls within any trailing Period.
type LimiterConfig struct {
	MaxCalls int
	Period   time.Duration
}

// DefaultLimiterConfig matches RATE_LIMIT_MAX=20 and RATE_LIMIT_WINDOW=60.
var DefaultLimiterConfig = LimiterConfig{MaxCalls: 20, Period: time.Minute}

// Validate rejects non-positive limits.
func (c LimiterConfig) Validate() error {
	if c.MaxCalls <= 0 {
		return errors.New("rate limit max calls must be positive")
	}
	if c.Period <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// RateLimiter is a sliding-window limiter over a log of call timestamps.
//
// The log is kept in chronological order and pruned on every read or write, so
// it never holds more than MaxCalls entries while callers go through Allow.
type RateLimiter struct {
	config LimiterConfig

	mu  sync.Mutex
	log *deque.Deque
}

// NewRateLimiter returns a limiter with an empty call log.
func NewRateLimiter(cfg LimiterConfig) (*RateLimiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	capacity := cfg.MaxCalls
	if capacity < 16 {
		capacity = 16
	}
	return &RateLimiter{
		config: cfg,
		log:    deque.New(capacity, 16),
	}, nil
}

// Config returns the immutable limiter configuration.
func (r *RateLimiter) Config() LimiterConfig {
	return r.config
}

// Prune removes every logged call that has left the window ending at now.
// An entry exactly Period old is outside the window.
func (r *RateLimiter) Prune(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prune(now)
}

// Allow reports whether a call may be issued at now. When it may not, wait is
// the time until the oldest logged call exits the window; it is never negative.
func (r *RateLimiter) Allow(now time.Time) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now)
	if r.log.Len() < r.config.MaxCalls {
		return true, 0
	}

	oldest := r.log.Front().(time.Time)
	wait := oldest.Add(r.config.Period).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return false, wait
}

// Record logs an issued call at now. It must be called once per attempt sent,
// not once per logical request.
func (r *RateLimiter) Record(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now)
	r.log.PushBack(now)
}

// Len returns the number of calls inside the window ending at now.
func (r *RateLimiter) Len(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now)
	return r.log.Len()
}

// Snapshot returns a copy of the calls inside the window ending at now, oldest first.
func (r *RateLimiter) Snapshot(now time.Time) []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now)
	out := make([]time.Time, 0, r.log.Len())
	for i := 0; i < r.log.Len(); i++ {
		out = append(out, r.log.At(i).(time.Time))
	}
	return out
}

// Status summarizes the window at now without recording anything.
func (r *RateLimiter) Status(now time.Time) core.LimiterStatus {
	permitted, wait := r.Allow(now)
	return core.LimiterStatus{
		MaxCalls:      r.config.MaxCalls,
		Period:        r.config.Period,
		PeriodSeconds: r.config.Period.Seconds(),
		InWindow:      r.Len(now),
		Permitted:     permitted,
		Wait:          wait,
		WaitSeconds:   wait.Seconds(),
	}
}

func (r *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-r.config.Period)
	for r.log.Len() > 0 {
		oldest := r.log.Front().(time.Time)
		if oldest.After(cutoff) {
			return
		}
		r.log.PopFront()
	}
}
