package driver

import "context"

// Driver sends one prompt to a hosted model.
type Driver interface {
	// Generate sends one prompt and returns the model response.
	Generate(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "gemini").
	Name() string
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic generate request.
type Request struct {
	Model             string
	Input             string
	SystemInstruction string
	Temperature       *float64
	MaxOutputTokens   *int
}

// Response is a provider-agnostic generate response.
type Response struct {
	Model        string
	Text         string
	FinishReason string
	Usage        *Usage

	// Raw is the provider response body, kept for fallback display and tracing.
	Raw []byte
}
