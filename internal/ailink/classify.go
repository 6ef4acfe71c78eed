package ailink

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"github.com/quotachat/quotachat/internal/ailink/driver"
	"github.com/quotachat/quotachat/internal/core"
	"github.com/quotachat/quotachat/internal/core/engine"
)

// StatusCode extracts the HTTP-style status carried by a provider error, looking
// at direct status fields first and at a nested HTTP response second. It
// returns 0 when the error carries no status.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil && perr.StatusCode > 0 {
		return perr.StatusCode
	}

	if code := genaiStatus(err); code > 0 {
		return code
	}

	var oerr *openai.Error
	if errors.As(err, &oerr) && oerr != nil {
		if oerr.StatusCode > 0 {
			return oerr.StatusCode
		}
		if oerr.Response != nil {
			return oerr.Response.StatusCode
		}
	}

	return 0
}

// genaiStatus walks the wrap chain for a genai.APIError, which the SDK
// returns by value.
func genaiStatus(err error) int {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case genai.APIError:
			return v.Code
		case *genai.APIError:
			if v != nil {
				return v.Code
			}
		}
	}
	return 0
}

// Classify normalizes a driver result into the three-way attempt outcome.
// Cancellation of ctx is returned as an error instead of being classified.
func Classify(ctx context.Context, resp *driver.Response, err error) (core.Outcome, error) {
	if err == nil {
		return core.Success(toCompletion(resp)), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return core.Outcome{}, ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return core.Outcome{}, err
	}

	status := StatusCode(err)
	detail := strings.TrimSpace(err.Error())
	if status == http.StatusTooManyRequests {
		return core.QuotaExceeded(detail), nil
	}
	return core.OtherFailure(status, detail), nil
}

// Attempt adapts a driver call into an engine attempt.
func Attempt(drv driver.Driver, req *driver.Request) engine.AttemptFunc {
	return func(ctx context.Context) (core.Outcome, error) {
		if drv == nil {
			return core.OtherFailure(0, "no provider configured"), nil
		}
		resp, err := drv.Generate(ctx, req)
		return Classify(ctx, resp, err)
	}
}

func toCompletion(resp *driver.Response) *core.Completion {
	if resp == nil {
		return &core.Completion{}
	}
	c := &core.Completion{
		Model:        resp.Model,
		Text:         resp.Text,
		FinishReason: resp.FinishReason,
	}
	if resp.Usage != nil {
		c.PromptTokens = resp.Usage.PromptTokens
		c.CompletionTokens = resp.Usage.CompletionTokens
	}
	if c.Text == "" {
		c.Fallback = fallbackText(resp)
	}
	return c
}

func fallbackText(resp *driver.Response) string {
	if len(resp.Raw) > 0 {
		return string(resp.Raw)
	}
	if resp.FinishReason != "" {
		return "(no text returned; finish reason: " + resp.FinishReason + ")"
	}
	return "(no text returned)"
}
