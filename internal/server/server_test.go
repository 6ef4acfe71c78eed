package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quotachat/quotachat/internal/chat"
	"github.com/quotachat/quotachat/internal/core"
	apperrors "github.com/quotachat/quotachat/internal/errors"
	"github.com/quotachat/quotachat/internal/server/handlers"
)

type echoChat struct{}

func (echoChat) Send(ctx context.Context, conversationID, input string) (chat.Reply, error) {
	if strings.TrimSpace(input) == "" {
		return chat.Reply{}, chat.ErrEmptyInput
	}
	outcome := core.Success(&core.Completion{Text: "echo: " + input})
	outcome.Attempts = 1
	return chat.Reply{ConversationID: "conv-1", Text: "echo: " + input, Outcome: outcome}, nil
}

func (echoChat) Summarize(ctx context.Context, conversationID string) (chat.Reply, error) {
	return chat.Reply{}, chat.ErrNoStore
}

type idleLimiter struct{}

func (idleLimiter) Status() core.LimiterStatus {
	return core.LimiterStatus{MaxCalls: 20, PeriodSeconds: 60, Permitted: true}
}

func newTestServer(opts Options) *Server {
	if opts.API == nil {
		opts.API = &handlers.API{Chat: echoChat{}, Limiter: idleLimiter{}}
	}
	if opts.CORSOrigins == nil {
		opts.CORSOrigins = []string{"http://localhost:3000"}
	}
	return New(opts)
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(Options{Host: "127.0.0.1"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "NOT_FOUND", body.Error.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerChatRoundTrip(t *testing.T) {
	srv := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body handlers.ChatResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "echo: hi", body.Reply)
	require.Equal(t, "conv-1", body.ConversationID)
	require.Equal(t, 1, body.Attempts)
}

func TestServerCORSPreflight(t *testing.T) {
	srv := newTestServer(Options{})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerThrottlesAPIOnly(t *testing.T) {
	srv := newTestServer(Options{ClientRPS: 0.001, ClientBurst: 1})

	get := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.0.2.1:4000"
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, get("/api/limiter"))
	require.Equal(t, http.StatusTooManyRequests, get("/api/limiter"))
	require.Equal(t, http.StatusOK, get("/version"))
}

func TestServerWithoutAPI(t *testing.T) {
	srv := New(Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminEndpointRequiresToken(t *testing.T) {
	srv := newTestServer(Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	srv = newTestServer(Options{AdminToken: "secret"})
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/signal", nil))
	require.NotEqual(t, http.StatusNotFound, rec.Code)
	require.NotEqual(t, http.StatusOK, rec.Code)
}

func TestShutdownBeforeStart(t *testing.T) {
	require.NoError(t, newTestServer(Options{}).Shutdown(context.Background()))
}
