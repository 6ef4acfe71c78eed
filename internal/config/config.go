package config

import (
	"time"

	"github.com/quotachat/quotachat/internal/ailink"
	"github.com/quotachat/quotachat/internal/core/engine"
)

// Config represents the complete application configuration. Values come from,
// in increasing precedence: built-in defaults, an optional YAML config file,
// a .env file, and environment variables.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	AILink    ailink.Config   `mapstructure:"ailink"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Health    HealthConfig    `mapstructure:"health"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string `mapstructure:"cors_origins"`

	// ClientRPS and ClientBurst throttle each remote address; 0 disables.
	ClientRPS   float64 `mapstructure:"client_rps"`
	ClientBurst int     `mapstructure:"client_burst"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// RateLimitConfig is the client-side sliding window.
type RateLimitConfig struct {
	MaxCalls      int `mapstructure:"max_calls"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// Limiter converts the window into engine terms.
func (c RateLimitConfig) Limiter() engine.LimiterConfig {
	return engine.LimiterConfig{
		MaxCalls: c.MaxCalls,
		Period:   time.Duration(c.WindowSeconds) * time.Second,
	}
}

// RetryConfig governs backoff on quota-exceeded responses.
type RetryConfig struct {
	MaxAttempts     int     `mapstructure:"max_attempts"`
	BaseDelay       float64 `mapstructure:"base_delay"`
	MaxDelaySeconds float64 `mapstructure:"max_delay_seconds"`
}

// Backoff converts the retry settings into engine terms.
func (c RetryConfig) Backoff() engine.RetryConfig {
	return engine.RetryConfig{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		MaxDelay:    time.Duration(c.MaxDelaySeconds * float64(time.Second)),
	}
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated Prometheus exporter port; /metrics on the main
	// server proxies it.
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
