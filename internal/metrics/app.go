package metrics

import (
	"time"

	"github.com/quotachat/quotachat/internal/observability"
)

// Metric names follow Prometheus conventions; the exporter adds the
// namespace prefix.
const (
	ChatRequestsTotal     = "chat_requests_total"
	ProviderAttemptsTotal = "provider_attempts_total"
	BackoffDelay          = "retry_backoff_delay_ms"
	AdmissionWait         = "limiter_admission_wait_ms"
	LimiterInWindow       = "limiter_calls_in_window"

	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	ServerStartTime = "app_server_start_time_seconds"
)

// RecordChatRequest counts one logical request by operation (chat, summary)
// and final outcome.
func RecordChatRequest(operation, outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ChatRequestsTotal, 1, map[string]string{
		"operation": operation,
		"outcome":   outcome,
	})
}

// RecordProviderAttempt counts one provider call.
func RecordProviderAttempt(provider, outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(ProviderAttemptsTotal, 1, map[string]string{
		"provider": provider,
		"outcome":  outcome,
	})
}

// RecordBackoff observes a delay taken before retrying a quota-exceeded call.
func RecordBackoff(provider string, delay time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(BackoffDelay, delay, map[string]string{
		"provider": provider,
	})
}

// RecordAdmissionWait observes time spent waiting for the sliding window.
func RecordAdmissionWait(wait time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(AdmissionWait, wait, nil)
}

// SetLimiterInWindow reports how many calls currently occupy the window.
func SetLimiterInWindow(count int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(LimiterInWindow, float64(count), nil)
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	_ = observability.TelemetrySystem.Counter(HealthCheckTotal, 1, map[string]string{
		"check":  checkName,
		"status": status,
	})
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{
		"check": checkName,
	})
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
}
