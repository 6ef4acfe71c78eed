package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/observability"
	"github.com/quotachat/quotachat/internal/server/handlers"
	servermw "github.com/quotachat/quotachat/internal/server/middleware"
)

func (s *Server) registerRoutes() {
	health := s.opts.Health
	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)
	s.router.Get("/health/startup", health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	if api := s.opts.API; api != nil {
		throttle := servermw.NewClientThrottle(s.opts.ClientRPS, s.opts.ClientBurst)
		s.router.Route("/api", func(r chi.Router) {
			r.Use(throttle.Handler)
			r.Post("/chat", api.Chat)
			r.Get("/limiter", api.LimiterStatus)
			r.Get("/conversations", api.ListConversations)
			r.Get("/conversations/{id}/messages", api.Messages)
			r.Post("/conversations/{id}/summary", api.Summary)
		})
	}

	s.registerAdminEndpoint()
}

// registerAdminEndpoint mounts the gofulmen signal handler behind bearer auth.
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger
	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no admin token configured)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,
		RateBurst: 5,
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("rate_limit", "10/min, burst 5"))
	}
}
