package cmd

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/config"
	"github.com/quotachat/quotachat/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify that configuration loads, a provider credential is present, and the store opens and migrates.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		cfg := loadConfig(false)
		logger.Info("Configuration valid")

		if err := config.ResolveCredential(cfg, nil); err != nil {
			ExitWithCode(logger, ExitCodeFor(err), "Provider credential missing", err)
		}
		logger.Info("Provider credential present", zap.String("provider", cfg.AILink.Provider))

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			ExitWithCode(logger, foundry.ExitFailure, "Store unavailable", err)
		}
		defer func() { _ = db.Close() }()
		if err := db.Ping(ctx); err != nil {
			ExitWithCode(logger, foundry.ExitFailure, "Store ping failed", err)
		}
		logger.Info("Store ready", zap.String("driver", db.Driver()))

		logger.Info("All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
