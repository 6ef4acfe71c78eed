// Package config loads quotachat configuration. Defaults are registered on a
// viper instance, overlaid by an optional YAML file, a .env file, and the
// environment, then decoded into a typed Config with mapstructure.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/quotachat/quotachat/internal/ailink"
)

const (
	// AppName names config and data directories.
	AppName = "quotachat"

	// EnvPrefix is prepended to every QUOTACHAT_<SECTION>_<KEY> override.
	EnvPrefix = "QUOTACHAT"
)

// ErrCredentialMissing is returned when the selected provider has no API key.
var ErrCredentialMissing = errors.New("api credential missing")

// CredentialEnvVars lists, per provider, the environment variables consulted
// for the API key in order of preference.
var CredentialEnvVars = map[string][]string{
	ailink.ProviderGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	ailink.ProviderOpenAI: {"OPENAI_API_KEY", EnvPrefix + "_OPENAI_API_KEY"},
	ailink.ProviderXAI:    {"XAI_API_KEY", EnvPrefix + "_XAI_API_KEY"},
}

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// envAliases are short variable names accepted alongside the prefixed form.
var envAliases = map[string][]string{
	"rate_limit.max_calls":      {"RATE_LIMIT_MAX"},
	"rate_limit.window_seconds": {"RATE_LIMIT_WINDOW"},
	"retry.max_attempts":        {"RETRY_MAX_ATTEMPTS"},
	"retry.base_delay":          {"RETRY_BASE_DELAY"},
	"retry.max_delay_seconds":   {"RETRY_MAX_DELAY"},
	"logging.level":             {"LOG_LEVEL"},
}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("server.client_rps", 5.0)
	v.SetDefault("server.client_burst", 10)

	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("ailink.provider", ailink.ProviderGemini)
	v.SetDefault("ailink.model", "")
	v.SetDefault("ailink.api_key", "")
	v.SetDefault("ailink.base_url", "")
	v.SetDefault("ailink.timeout", "2m")
	v.SetDefault("ailink.temperature", 0.0)
	v.SetDefault("ailink.max_output_tokens", 0)
	v.SetDefault("ailink.system_instruction", "")

	v.SetDefault("rate_limit.max_calls", 20)
	v.SetDefault("rate_limit.window_seconds", 60)

	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay", 2.0)
	v.SetDefault("retry.max_delay_seconds", 60.0)

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)
}

// BindEnv wires QUOTACHAT_* overrides plus the short aliases onto v.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// LoadDotEnv loads KEY=VALUE pairs from the given files without overriding
// variables already present in the environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load decodes every setting known to v into a Config, fills derived
// defaults, and validates the result. It does not resolve credentials; see
// ResolveCredential.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("viper instance is required")
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.AILink.Provider = ailink.ProviderName(cfg.AILink)
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the numeric settings the controller depends on.
func (c *Config) Validate() error {
	if err := c.RateLimit.Limiter().Validate(); err != nil {
		return fmt.Errorf("invalid rate_limit: %w", err)
	}
	if err := c.Retry.Backoff().Validate(); err != nil {
		return fmt.Errorf("invalid retry: %w", err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.ClientRPS < 0 || c.Server.ClientBurst < 0 {
		return fmt.Errorf("server.client_rps and server.client_burst must be non-negative")
	}
	return nil
}

// ResolveCredential fills AILink.APIKey from the provider's credential
// variables when the config does not already carry one. lookup defaults to
// os.LookupEnv.
func ResolveCredential(cfg *Config, lookup func(string) (string, bool)) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if strings.TrimSpace(cfg.AILink.APIKey) != "" {
		return nil
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}

	provider := ailink.ProviderName(cfg.AILink)
	names := CredentialEnvVars[provider]
	for _, name := range names {
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			cfg.AILink.APIKey = strings.TrimSpace(value)
			return nil
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: unsupported provider %q", ErrCredentialMissing, provider)
	}
	return fmt.Errorf("%w: set %s", ErrCredentialMissing, strings.Join(names, " or "))
}

// GetConfig returns the current application configuration.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// SetConfig replaces the current application configuration.
func SetConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigPath returns the XDG config file path, or "" when no config
// directory can be determined.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG data path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
