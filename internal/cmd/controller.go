package cmd

import (
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/config"
	"github.com/quotachat/quotachat/internal/core"
	"github.com/quotachat/quotachat/internal/core/engine"
	"github.com/quotachat/quotachat/internal/metrics"
)

// newController builds the admission controller with hooks that log and
// emit metrics. logger may be nil.
func newController(cfg *config.Config, logger *logging.Logger) (*engine.Controller, error) {
	provider := cfg.AILink.Provider

	hooks := engine.Hooks{
		OnWait: func(wait time.Duration) {
			metrics.RecordAdmissionWait(wait)
			if logger != nil {
				logger.Info("Rate limit reached, waiting for a free slot",
					zap.Duration("wait", wait))
			}
		},
		OnAttempt: func(attempt int, outcome core.Outcome) {
			metrics.RecordProviderAttempt(provider, outcome.Kind.String())
			if logger != nil {
				logger.Debug("Provider attempt finished",
					zap.Int("attempt", attempt),
					zap.String("outcome", outcome.Kind.String()),
					zap.Int("status", outcome.StatusCode))
			}
		},
		OnRetry: func(attempt int, delay time.Duration) {
			metrics.RecordBackoff(provider, delay)
			if logger != nil {
				logger.Info("Quota exceeded, backing off",
					zap.Int("attempt", attempt),
					zap.Duration("delay", delay))
			}
		},
	}

	return engine.NewController(cfg.RateLimit.Limiter(), cfg.Retry.Backoff(), hooks)
}
