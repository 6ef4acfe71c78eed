package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quotachat/quotachat/internal/observability"
)

func TestRecordersAreNoopsWithoutTelemetry(t *testing.T) {
	previous := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	t.Cleanup(func() { observability.TelemetrySystem = previous })

	require.NotPanics(t, func() {
		RecordChatRequest("chat", "success")
		RecordProviderAttempt("gemini", "quota_exceeded")
		RecordBackoff("gemini", 2*time.Second)
		RecordAdmissionWait(time.Second)
		SetLimiterInWindow(3)
		RecordHealthCheck("store", true, time.Millisecond)
		SetServerStartTime(time.Now().Unix())
		RecordError("RATE_LIMITED", 429, "/api/chat")
		RecordError("INTERNAL_ERROR", 500, "")
		RecordPanic()
	})
}
