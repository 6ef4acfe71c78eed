// Package errors normalizes failures at the HTTP edge into gofulmen error
// envelopes, logs them through the server logger and counts them.
package errors

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/core"
	"github.com/quotachat/quotachat/internal/metrics"
	"github.com/quotachat/quotachat/internal/observability"
	"github.com/quotachat/quotachat/internal/server/middleware"
)

// Error codes returned in HTTP error bodies.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeDatabase           = "DATABASE_ERROR"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeRequestCancelled   = "REQUEST_CANCELLED"
)

// StatusClientClosedRequest is the non-standard status answered when the
// caller went away before the provider replied.
const StatusClientClosedRequest = 499

// statusByCode holds every code that does not map to 500.
var statusByCode = map[string]int{
	CodeInvalidInput:       http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
	CodeRateLimited:        http.StatusTooManyRequests,
	CodeRequestCancelled:   StatusClientClosedRequest,
	CodeTimeout:            http.StatusGatewayTimeout,
	CodeExternalService:    http.StatusBadGateway,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
}

// severityByCode controls the log level an envelope is written at. Codes
// absent here are logged at info.
var severityByCode = map[string]errors.Severity{
	CodeInternal:        errors.SeverityHigh,
	CodeDatabase:        errors.SeverityHigh,
	CodeExternalService: errors.SeverityMedium,
	CodeTimeout:         errors.SeverityMedium,
	CodeRateLimited:     errors.SeverityMedium,
}

// New builds an envelope for code with its default severity.
func New(code, message string) *errors.ErrorEnvelope {
	env := errors.NewErrorEnvelope(code, message)
	if sev, ok := severityByCode[code]; ok {
		env = withSeverity(env, sev)
	}
	return env
}

// Wrap builds an envelope for code, tags it with the request's correlation
// ID and records err under wrapped_error.
func Wrap(ctx context.Context, code string, err error, message string) *errors.ErrorEnvelope {
	id := correlationID(ctx)
	env := New(code, message).WithCorrelationID(id).WithTraceID(id)
	if err == nil {
		return env
	}
	if updated, cerr := env.WithContext(map[string]interface{}{"wrapped_error": err.Error()}); cerr == nil {
		return updated
	}
	return env
}

func NewInvalidInputError(msg string) *errors.ErrorEnvelope { return New(CodeInvalidInput, msg) }
func NewNotFoundError(msg string) *errors.ErrorEnvelope     { return New(CodeNotFound, msg) }
func NewInternalError(msg string) *errors.ErrorEnvelope     { return New(CodeInternal, msg) }
func NewRateLimitedError(msg string) *errors.ErrorEnvelope  { return New(CodeRateLimited, msg) }

func NewMethodNotAllowedError(msg string) *errors.ErrorEnvelope {
	return New(CodeMethodNotAllowed, msg)
}

func NewServiceUnavailableError(msg string) *errors.ErrorEnvelope {
	return New(CodeServiceUnavailable, msg)
}

func WrapInvalidInput(ctx context.Context, err error, msg string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInvalidInput, err, msg)
}

func WrapNotFound(ctx context.Context, err error, msg string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeNotFound, err, msg)
}

func WrapInternal(ctx context.Context, err error, msg string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeInternal, err, msg)
}

func WrapDatabaseError(ctx context.Context, err error, msg string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeDatabase, err, msg)
}

func WrapExternalService(ctx context.Context, err error, msg string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeExternalService, err, msg)
}

func WrapTimeout(ctx context.Context, err error, msg string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeTimeout, err, msg)
}

func WrapCancelled(ctx context.Context, err error, msg string) *errors.ErrorEnvelope {
	return Wrap(ctx, CodeRequestCancelled, err, msg)
}

// FromOutcome converts a non-success provider outcome into an envelope:
// exhausted quota becomes RATE_LIMITED, anything else EXTERNAL_SERVICE_ERROR.
// It returns nil for a success.
func FromOutcome(ctx context.Context, outcome core.Outcome) *errors.ErrorEnvelope {
	var env *errors.ErrorEnvelope
	switch outcome.Kind {
	case core.OutcomeSuccess:
		return nil
	case core.OutcomeQuotaExceeded:
		env = New(CodeRateLimited, "provider quota exceeded; retries exhausted")
	default:
		env = New(CodeExternalService, "provider request failed")
	}

	details := map[string]interface{}{
		"outcome":  outcome.Kind.String(),
		"attempts": outcome.Attempts,
	}
	if outcome.StatusCode > 0 {
		details["provider_status"] = outcome.StatusCode
	}
	if outcome.Detail != "" {
		details["provider_detail"] = outcome.Detail
	}
	return env.WithDetails(details).WithCorrelationID(correlationID(ctx))
}

// HTTPStatus is the status written for an envelope's code.
func HTTPStatus(env *errors.ErrorEnvelope) int {
	if env == nil {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[env.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HTTPErrorDetail is the body of an error response.
type HTTPErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// HTTPErrorResponse is the JSON shape of every error the API returns.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError writes err as an envelope, treating anything that is not
// already an envelope as an internal error.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	env, ok := err.(*errors.ErrorEnvelope)
	switch {
	case err == nil:
		env = withSeverity(errors.NewErrorEnvelope(CodeInternal, "unexpected nil error"), errors.SeverityCritical)
	case !ok || env == nil:
		var ctx context.Context
		if r != nil {
			ctx = r.Context()
		}
		env = Wrap(ctx, CodeInternal, err, "unexpected error")
	}
	RespondWithEnvelope(w, r, env)
}

// RespondWithEnvelope logs, counts and writes env. A RATE_LIMITED envelope
// carrying retry_after_seconds also sets Retry-After.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, env *errors.ErrorEnvelope) {
	if w == nil || env == nil {
		return
	}

	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}
	if env.CorrelationID == "" {
		env = env.WithCorrelationID(correlationID(ctx))
	}
	status := HTTPStatus(env)

	logEnvelope(env, status)
	metrics.RecordError(env.Code, status, routePattern(r))

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusTooManyRequests {
		if secs, ok := env.Details["retry_after_seconds"].(int); ok && secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{Error: HTTPErrorDetail{
		Code:      env.Code,
		Message:   env.Message,
		Details:   responseDetails(env),
		RequestID: env.CorrelationID,
	}})
}

// responseDetails flattens details and context into one map; details win.
func responseDetails(env *errors.ErrorEnvelope) map[string]interface{} {
	out := make(map[string]interface{}, len(env.Details)+len(env.Context))
	for k, v := range env.Context {
		out[k] = v
	}
	for k, v := range env.Details {
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func logEnvelope(env *errors.ErrorEnvelope, status int) {
	log := observability.ServerLogger
	if log == nil {
		return
	}

	fields := make([]zap.Field, 0, 4+len(env.Context))
	fields = append(fields, zap.String("error_code", env.Code), zap.Int("http_status", status))
	if env.Severity != "" {
		fields = append(fields, zap.String("severity", string(env.Severity)))
	}
	if env.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", env.CorrelationID))
	}
	for k, v := range env.Context {
		fields = append(fields, zap.Any(k, v))
	}

	switch env.Severity {
	case errors.SeverityCritical, errors.SeverityHigh:
		log.Error(env.Message, fields...)
	case errors.SeverityMedium:
		log.Warn(env.Message, fields...)
	default:
		log.Info(env.Message, fields...)
	}
}

func withSeverity(env *errors.ErrorEnvelope, sev errors.Severity) *errors.ErrorEnvelope {
	if updated, err := env.WithSeverity(sev); err == nil {
		return updated
	}
	return env
}

// correlationID reuses the request ID when there is one.
func correlationID(ctx context.Context) string {
	if ctx != nil {
		if id := middleware.GetRequestID(ctx); id != "" {
			return id
		}
	}
	return uuid.New().String()
}

func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
