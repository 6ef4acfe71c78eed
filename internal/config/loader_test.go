package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotachat/quotachat/internal/ailink"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	return v
}

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(newTestViper(t))
		require.NoError(t, err)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8000, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.CORSOrigins)

		assert.Equal(t, 20, cfg.RateLimit.MaxCalls)
		assert.Equal(t, 60, cfg.RateLimit.WindowSeconds)
		assert.Equal(t, time.Minute, cfg.RateLimit.Limiter().Period)

		retry := cfg.Retry.Backoff()
		assert.Equal(t, 5, retry.MaxAttempts)
		assert.Equal(t, 2.0, retry.BaseDelay)
		assert.Equal(t, time.Minute, retry.MaxDelay)

		assert.Equal(t, ailink.ProviderGemini, cfg.AILink.Provider)
		assert.Equal(t, 2*time.Minute, cfg.AILink.Timeout)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.NotEmpty(t, cfg.Store.Path)
	})

	t.Run("ShortEnvAliases", func(t *testing.T) {
		v := newTestViper(t)
		t.Setenv("RATE_LIMIT_MAX", "3")
		t.Setenv("RATE_LIMIT_WINDOW", "10")
		t.Setenv("RETRY_MAX_ATTEMPTS", "2")

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.RateLimit.MaxCalls)
		assert.Equal(t, 10*time.Second, cfg.RateLimit.Limiter().Period)
		assert.Equal(t, 2, cfg.Retry.MaxAttempts)
	})

	t.Run("PrefixedEnvWins", func(t *testing.T) {
		v := newTestViper(t)
		t.Setenv("QUOTACHAT_RATE_LIMIT_MAX_CALLS", "7")
		t.Setenv("RATE_LIMIT_MAX", "3")
		t.Setenv("QUOTACHAT_SERVER_PORT", "9001")

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.RateLimit.MaxCalls)
		assert.Equal(t, 9001, cfg.Server.Port)
	})

	t.Run("RejectsInvalidWindow", func(t *testing.T) {
		v := newTestViper(t)
		t.Setenv("RATE_LIMIT_MAX", "0")

		_, err := Load(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate_limit")
	})

	t.Run("ConfigFile", func(t *testing.T) {
		v := newTestViper(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ailink:\n  provider: OpenAI\n  model: gpt-test\nretry:\n  base_delay: 1.5\n"), 0o600))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())

		cfg, err := Load(v)
		require.NoError(t, err)
		assert.Equal(t, ailink.ProviderOpenAI, cfg.AILink.Provider)
		assert.Equal(t, "gpt-test", cfg.AILink.Model)
		assert.Equal(t, 1.5, cfg.Retry.BaseDelay)
	})

	t.Run("NilViper", func(t *testing.T) {
		_, err := Load(nil)
		require.Error(t, err)
	})
}

func TestResolveCredential(t *testing.T) {
	env := func(values map[string]string) func(string) (string, bool) {
		return func(name string) (string, bool) {
			v, ok := values[name]
			return v, ok
		}
	}

	t.Run("PrimaryName", func(t *testing.T) {
		cfg := &Config{AILink: ailink.Config{Provider: ailink.ProviderGemini}}
		require.NoError(t, ResolveCredential(cfg, env(map[string]string{"GEMINI_API_KEY": "g", "GOOGLE_API_KEY": "x"})))
		assert.Equal(t, "g", cfg.AILink.APIKey)
	})

	t.Run("AlternateName", func(t *testing.T) {
		cfg := &Config{AILink: ailink.Config{Provider: ailink.ProviderGemini}}
		require.NoError(t, ResolveCredential(cfg, env(map[string]string{"GEMINI_API_KEY": "  ", "GOOGLE_API_KEY": "alt"})))
		assert.Equal(t, "alt", cfg.AILink.APIKey)
	})

	t.Run("ConfiguredKeyKept", func(t *testing.T) {
		cfg := &Config{AILink: ailink.Config{APIKey: "from-file"}}
		require.NoError(t, ResolveCredential(cfg, env(map[string]string{"GEMINI_API_KEY": "g"})))
		assert.Equal(t, "from-file", cfg.AILink.APIKey)
	})

	t.Run("OpenAI", func(t *testing.T) {
		cfg := &Config{AILink: ailink.Config{Provider: ailink.ProviderOpenAI}}
		require.NoError(t, ResolveCredential(cfg, env(map[string]string{"QUOTACHAT_OPENAI_API_KEY": "o"})))
		assert.Equal(t, "o", cfg.AILink.APIKey)
	})

	t.Run("Missing", func(t *testing.T) {
		cfg := &Config{AILink: ailink.Config{Provider: ailink.ProviderGemini}}
		err := ResolveCredential(cfg, env(nil))
		require.ErrorIs(t, err, ErrCredentialMissing)
		assert.Contains(t, err.Error(), "GEMINI_API_KEY or GOOGLE_API_KEY")
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("QUOTACHAT_DOTENV_PROBE=from-dotenv\n"), 0o600))
	t.Setenv("QUOTACHAT_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("QUOTACHAT_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("QUOTACHAT_DOTENV_PROBE"))
}

func TestDefaultStorePath(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	path := DefaultStorePath()
	assert.Equal(t, AppName+".db", filepath.Base(path))
}
