package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quotachat/quotachat/internal/ailink"
	"github.com/quotachat/quotachat/internal/config"
	"github.com/quotachat/quotachat/internal/core/engine"
	"github.com/quotachat/quotachat/internal/server/handlers"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display version, resolved configuration, and credential presence. Secrets are never printed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(false)
		credErr := config.ResolveCredential(cfg, nil)
		info := handlers.CurrentVersion()

		printf(cmd, "=== quotachat environment ===\n\n")

		printf(cmd, "Application:\n")
		printf(cmd, "  Version:    %s (%s, built %s)\n", info.App.Version, info.App.Commit, info.App.BuildDate)
		printf(cmd, "  Go:         %s on %s\n", info.App.GoVersion, info.Runtime.Platform)
		printf(cmd, "  Gofulmen:   %s\n", info.Dependencies.Gofulmen)
		printf(cmd, "  Config:     %s\n\n", configSource())

		printf(cmd, "Provider:\n")
		printf(cmd, "  Name:       %s\n", cfg.AILink.Provider)
		printf(cmd, "  Model:      %s\n", ailink.ModelFor(cfg.AILink))
		printf(cmd, "  Timeout:    %s\n", cfg.AILink.Timeout)
		if credErr != nil {
			printf(cmd, "  Credential: missing (%s)\n\n", strings.Join(config.CredentialEnvVars[cfg.AILink.Provider], " or "))
		} else {
			printf(cmd, "  Credential: set\n\n")
		}

		retry := cfg.Retry.Backoff()
		printf(cmd, "Rate limiting:\n")
		printf(cmd, "  Window:     %d calls per %ds\n", cfg.RateLimit.MaxCalls, cfg.RateLimit.WindowSeconds)
		printf(cmd, "  Retries:    %d attempts, base %.2g, cap %s\n", retry.MaxAttempts, retry.BaseDelay, retry.MaxDelay)
		printf(cmd, "  Delays:     %s\n\n", delaySchedule(retry))

		printf(cmd, "Server:\n")
		printf(cmd, "  Listen:     %s:%d\n", cfg.Server.Host, cfg.Server.Port)
		printf(cmd, "  CORS:       %s\n", strings.Join(cfg.Server.CORSOrigins, ", "))
		printf(cmd, "  Throttle:   %.2g rps, burst %d\n", cfg.Server.ClientRPS, cfg.Server.ClientBurst)
		printf(cmd, "  Metrics:    %t (port %d)\n\n", cfg.Metrics.Enabled, cfg.Metrics.Port)

		printf(cmd, "Store:\n")
		if strings.TrimSpace(cfg.Store.URL) != "" {
			printf(cmd, "  URL:        %s\n", cfg.Store.URL)
		} else {
			printf(cmd, "  Path:       %s\n", cfg.Store.Path)
		}
		return nil
	},
}

func configSource() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "(none; defaults and environment)"
}

// delaySchedule lists the sleeps a fully exhausted request would take.
func delaySchedule(cfg engine.RetryConfig) string {
	if cfg.MaxAttempts <= 1 {
		return "none"
	}
	delays := make([]string, 0, cfg.MaxAttempts-1)
	for attempt := 1; attempt < cfg.MaxAttempts; attempt++ {
		delays = append(delays, engine.ComputeDelay(attempt, cfg).String())
	}
	return strings.Join(delays, ", ")
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
