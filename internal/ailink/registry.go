package ailink

import (
	"context"
	"fmt"
	"strings"

	"github.com/quotachat/quotachat/internal/ailink/driver"
	"github.com/quotachat/quotachat/internal/ailink/driver/gemini"
	"github.com/quotachat/quotachat/internal/ailink/driver/openai"
)

// NewDriver builds the driver selected by cfg.Provider.
func NewDriver(ctx context.Context, cfg Config) (driver.Driver, error) {
	switch ProviderName(cfg) {
	case ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.BaseURL, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		client.Timeout = cfg.Timeout
		return client, nil
	case ProviderOpenAI, ProviderXAI:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("api key is required")
		}
		baseURL := cfg.BaseURL
		if strings.TrimSpace(baseURL) == "" && ProviderName(cfg) == ProviderXAI {
			baseURL = XAIBaseURL
		}
		client := openai.NewClient(baseURL, cfg.APIKey)
		client.Timeout = cfg.Timeout
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// ProviderName returns the normalized provider id, defaulting to gemini.
func ProviderName(cfg Config) string {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		return ProviderGemini
	}
	return name
}

// ModelFor returns the configured model or the provider default.
func ModelFor(cfg Config) string {
	if model := strings.TrimSpace(cfg.Model); model != "" {
		return model
	}
	return DefaultModels[ProviderName(cfg)]
}

// BuildRequest assembles a driver request for input using cfg's tuning.
func BuildRequest(cfg Config, input string) *driver.Request {
	req := &driver.Request{
		Model:             ModelFor(cfg),
		Input:             input,
		SystemInstruction: strings.TrimSpace(cfg.SystemInstruction),
	}
	if cfg.Temperature > 0 {
		temp := cfg.Temperature
		req.Temperature = &temp
	}
	if cfg.MaxOutputTokens > 0 {
		max := cfg.MaxOutputTokens
		req.MaxOutputTokens = &max
	}
	return req
}
