// Package openai implements the generate boundary for OpenAI-compatible chat
// completion APIs on github.com/openai/openai-go.
package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/quotachat/quotachat/internal/ailink/driver"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements the OpenAI driver.
type Client struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	cli openai.Client
}

// NewClient returns a client with defaults applied. The SDK's own retries are
// disabled so quota handling stays with the caller's retrier.
func NewClient(baseURL, apiKey string, opts ...option.RequestOption) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	key := strings.TrimSpace(apiKey)

	base := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithBaseURL(url),
		option.WithMaxRetries(0),
	}
	return &Client{
		BaseURL: url,
		APIKey:  key,
		cli:     openai.NewClient(append(base, opts...)...),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "openai"
}

// Generate sends a chat completion request with one user message.
func (c *Client) Generate(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if req == nil || strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	started := time.Now()
	res, err := c.cli.Chat.Completions.New(ctx, buildParams(req))
	if err != nil {
		err = fmt.Errorf("openai request failed: %w", err)
		driver.Trace(c.Name(), req, nil, err, started)
		return nil, err
	}

	resp := &driver.Response{
		Model: res.Model,
		Raw:   []byte(res.RawJSON()),
		Usage: &driver.Usage{
			PromptTokens:     int(res.Usage.PromptTokens),
			CompletionTokens: int(res.Usage.CompletionTokens),
			TotalTokens:      int(res.Usage.TotalTokens),
		},
	}
	if len(res.Choices) > 0 {
		resp.Text = res.Choices[0].Message.Content
		resp.FinishReason = string(res.Choices[0].FinishReason)
	}

	driver.Trace(c.Name(), req, resp, nil, started)
	return resp, nil
}

func buildParams(req *driver.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemInstruction != "" {
		messages = append(messages, openai.SystemMessage(req.SystemInstruction))
	}
	messages = append(messages, openai.UserMessage(req.Input))

	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: messages,
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxOutputTokens != nil && *req.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxOutputTokens))
	}
	return params
}
