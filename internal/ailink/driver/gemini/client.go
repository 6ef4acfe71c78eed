// Package gemini implements the generate boundary on the official
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/quotachat/quotachat/internal/ailink/driver"
)

// Client is a Gemini API driver.
type Client struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	client *genai.Client
}

// NewClient creates the underlying genai client. An empty baseURL targets the
// public Gemini API.
func NewClient(ctx context.Context, baseURL, apiKey string) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if url := strings.TrimSpace(baseURL); url != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: url}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		BaseURL: strings.TrimSpace(baseURL),
		APIKey:  apiKey,
		client:  client,
	}, nil
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Generate sends a single-turn generateContent request.
func (c *Client) Generate(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("gemini client not configured")
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
	genResp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Input), buildConfig(req))
	if err != nil {
		err = fmt.Errorf("gemini generation failed: %w", err)
		driver.Trace(c.Name(), req, nil, err, started)
		return nil, err
	}

	resp := toDriverResponse(req.Model, genResp)
	driver.Trace(c.Name(), req, resp, nil, started)
	return resp, nil
}

func buildConfig(req *driver.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
			Role:  "user",
		}
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		cfg.Temperature = &temp
	}
	if req.MaxOutputTokens != nil && *req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(*req.MaxOutputTokens)
	}
	return cfg
}

func toDriverResponse(model string, genResp *genai.GenerateContentResponse) *driver.Response {
	resp := &driver.Response{Model: model}
	if genResp == nil {
		return resp
	}

	if raw, err := json.Marshal(genResp); err == nil {
		resp.Raw = raw
	}
	if genResp.ModelVersion != "" {
		resp.Model = genResp.ModelVersion
	}
	if genResp.UsageMetadata != nil {
		resp.Usage = &driver.Usage{
			PromptTokens:     int(genResp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(genResp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(genResp.UsageMetadata.TotalTokenCount),
		}
	}
	if len(genResp.Candidates) == 0 {
		return resp
	}

	candidate := genResp.Candidates[0]
	resp.FinishReason = strings.ToLower(string(candidate.FinishReason))
	if candidate.Content == nil {
		return resp
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	resp.Text = b.String()
	return resp
}
