package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/quotachat/quotachat/internal/errors"
)

func TestHealthHandlerReturnsHealthyStatus(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("ok", CheckerFunc(func(ctx context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, StatusHealthy, resp.Status)
	require.Equal(t, "1.2.3", resp.Version)
	require.Equal(t, StatusHealthy, resp.Checks["ok"])
}

func TestHealthHandlerReportsDegraded(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("limiter", CheckerFunc(func(ctx context.Context) error {
		return ErrDegraded
	}))

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, StatusDegraded, resp.Status)
}

func TestReadinessReturnsServiceUnavailableWhenUnhealthy(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", CheckerFunc(func(ctx context.Context) error { return errors.New("down") }))

	rec := httptest.NewRecorder()
	manager.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	require.Equal(t, "ready probe failed", body.Error.Message)
	require.Equal(t, []interface{}{"store"}, body.Error.Details["unhealthy_checks"])
}

func TestLivenessIgnoresComponentChecks(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", CheckerFunc(func(ctx context.Context) error { return errors.New("down") }))

	rec := httptest.NewRecorder()
	manager.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDetermineOverallStatusTreatsTimeoutAsDegraded(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	require.Equal(t, StatusDegraded, manager.determineOverallStatus(map[string]string{"a": StatusHealthy, "b": StatusTimeout}))
	require.Equal(t, StatusUnhealthy, manager.determineOverallStatus(map[string]string{"a": StatusDegraded, "b": StatusUnhealthy}))
	require.Equal(t, StatusHealthy, manager.determineOverallStatus(nil))
}

func TestRunHealthChecksMarksTimeouts(t *testing.T) {
	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("store", CheckerFunc(func(ctx context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, map[string]string{"store": StatusTimeout}, manager.runHealthChecks(ctx))
}
