package metrics

import (
	"strconv"

	"github.com/quotachat/quotachat/internal/observability"
)

const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// RecordError counts an error envelope sent to a client. A non-empty
// endpoint (a route pattern, never a raw path) also feeds the per-endpoint
// series.
func RecordError(code string, status int, endpoint string) {
	tel := observability.TelemetrySystem
	if tel == nil {
		return
	}
	_ = tel.Counter(ErrorsTotalName, 1, map[string]string{
		"error_code":  code,
		"http_status": strconv.Itoa(status),
	})
	if endpoint != "" {
		_ = tel.Counter(ErrorsByEndpointName, 1, map[string]string{
			"endpoint":   endpoint,
			"error_code": code,
		})
	}
}

// RecordPanic counts a handler panic caught by the recovery middleware.
func RecordPanic() {
	if tel := observability.TelemetrySystem; tel != nil {
		_ = tel.Counter(PanicsTotalName, 1, nil)
	}
}
