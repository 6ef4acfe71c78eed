package ailink

import "time"

// Config selects and tunes the provider behind the remote generate call.
type Config struct {
	// Provider is the driver identifier: "gemini" (default), "openai" or
	// "xai". xai speaks the OpenAI wire protocol.
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`

	// APIKey is resolved from the environment at startup; see config.ResolveCredential.
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	Temperature       float64 `mapstructure:"temperature"`
	MaxOutputTokens   int     `mapstructure:"max_output_tokens"`
	SystemInstruction string  `mapstructure:"system_instruction"`
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderXAI    = "xai"
)

// XAIBaseURL is used for the xai provider when no base URL is configured.
const XAIBaseURL = "https://api.x.ai/v1"

// DefaultModels maps providers to the model used when none is configured.
var DefaultModels = map[string]string{
	ProviderGemini: "gemini-2.0-flash",
	ProviderOpenAI: "gpt-4o-mini",
	ProviderXAI:    "grok-3-mini",
}
