package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/observability"
)

// statusRecorder remembers what the handler wrote so the request can be
// measured after it returns.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int64
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	n, err := s.ResponseWriter.Write(p)
	s.size += int64(n)
	return n, err
}

// knownPaths maps raw paths to a label when no chi pattern is available.
var knownPaths = map[string]string{
	"/":                  "/",
	"/health":            "/health/*",
	"/health/live":       "/health/*",
	"/health/ready":      "/health/*",
	"/health/startup":    "/health/*",
	"/version":           "/version",
	"/metrics":           "/metrics",
	"/api/chat":          "/api/chat",
	"/api/conversations": "/api/conversations",
	"/api/limiter":       "/api/limiter",
}

// getEndpointPattern labels a request by route pattern so conversation IDs
// never become metric labels.
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	if label, ok := knownPaths[r.URL.Path]; ok {
		return label
	}
	return "/unknown"
}

func errorClass(status int) string {
	if status >= 500 {
		return "server_error"
	}
	return "client_error"
}

// RequestMetrics emits request count, latency, sizes and error counts, then
// logs the completed request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tel := observability.TelemetrySystem
		if tel == nil {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		began := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(began)

		var inBytes int64
		if n, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64); err == nil {
			inBytes = n
		}

		endpoint := getEndpointPattern(r)
		status := strconv.Itoa(rec.status)
		route := map[string]string{"method": r.Method, "endpoint": endpoint}
		withStatus := map[string]string{"method": r.Method, "endpoint": endpoint, "status": status}

		_ = tel.Counter("http_requests_total", 1, withStatus)
		_ = tel.Histogram("http_request_duration_ms", elapsed, withStatus)
		_ = tel.Gauge("http_request_size_bytes", float64(inBytes), route)
		_ = tel.Gauge("http_response_size_bytes", float64(rec.size), route)

		if rec.status >= http.StatusBadRequest {
			_ = tel.Counter("http_errors_total", 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": errorClass(rec.status),
			})
		}

		if log := observability.ServerLogger; log != nil {
			log.Info("request served",
				zap.String("requestID", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.status),
				zap.Duration("duration", elapsed),
				zap.Int64("request_size", inBytes),
				zap.Int64("response_size", rec.size),
			)
		}
	})
}
