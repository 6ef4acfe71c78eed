package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotachat/quotachat/internal/core"
)

func newTestController(t *testing.T, limits LimiterConfig, retry RetryConfig, hooks Hooks) (*Controller, *fakeTime) {
	t.Helper()
	ctrl, err := NewController(limits, retry, hooks)
	require.NoError(t, err)
	clock := &fakeTime{now: epoch}
	ctrl.WithClock(clock.Clock, clock.Sleep)
	return ctrl, clock
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(LimiterConfig{MaxCalls: 0, Period: time.Minute}, DefaultRetryConfig, Hooks{})
	require.Error(t, err)

	_, err = NewController(DefaultLimiterConfig, RetryConfig{}, Hooks{})
	require.Error(t, err)
}

func TestControllerWaitsForAdmission(t *testing.T) {
	var waits []time.Duration
	ctrl, clock := newTestController(t,
		LimiterConfig{MaxCalls: 1, Period: time.Minute},
		DefaultRetryConfig,
		Hooks{OnWait: func(d time.Duration) { waits = append(waits, d) }},
	)

	ctrl.Limiter.Record(epoch)
	clock.now = epoch.Add(10 * time.Second)

	outcome, err := ctrl.Do(context.Background(), func(ctx context.Context) (core.Outcome, error) {
		return core.Success(&core.Completion{Text: "ok"}), nil
	})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeSuccess, outcome.Kind)
	require.Equal(t, []time.Duration{50 * time.Second}, waits)
	require.Equal(t, []time.Duration{50 * time.Second}, clock.sleeps)
	require.Equal(t, []time.Time{epoch.Add(time.Minute)}, ctrl.Limiter.Snapshot(clock.now))
}

func TestControllerCancelledWhileWaiting(t *testing.T) {
	ctrl, clock := newTestController(t, LimiterConfig{MaxCalls: 1, Period: time.Minute}, DefaultRetryConfig, Hooks{})
	ctrl.Limiter.Record(epoch)
	clock.err = context.Canceled

	calls := 0
	_, err := ctrl.Do(context.Background(), func(ctx context.Context) (core.Outcome, error) {
		calls++
		return core.Success(nil), nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
	require.Equal(t, 1, ctrl.Limiter.Len(clock.now))
}

func TestControllerRetryHooks(t *testing.T) {
	var retries []time.Duration
	ctrl, _ := newTestController(t,
		DefaultLimiterConfig,
		RetryConfig{MaxAttempts: 3, BaseDelay: 3, MaxDelay: 5 * time.Second},
		Hooks{OnRetry: func(attempt int, d time.Duration) { retries = append(retries, d) }},
	)

	outcome, err := ctrl.Do(context.Background(), func(ctx context.Context) (core.Outcome, error) {
		return core.QuotaExceeded("quota"), nil
	})
	require.NoError(t, err)
	require.Equal(t, core.OutcomeQuotaExceeded, outcome.Kind)
	require.Equal(t, 3, outcome.Attempts)
	require.Equal(t, []time.Duration{3 * time.Second, 5 * time.Second}, retries)
}

func TestControllerStatus(t *testing.T) {
	ctrl, clock := newTestController(t, LimiterConfig{MaxCalls: 2, Period: time.Minute}, DefaultRetryConfig, Hooks{})
	ctrl.Limiter.Record(epoch)
	clock.now = epoch.Add(5 * time.Second)

	status := ctrl.Status()
	require.True(t, status.Permitted)
	require.Equal(t, 1, status.InWindow)
	require.Equal(t, 2, status.MaxCalls)
}
