package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/ailink"
	"github.com/quotachat/quotachat/internal/chat"
	"github.com/quotachat/quotachat/internal/config"
	"github.com/quotachat/quotachat/internal/core/engine"
	"github.com/quotachat/quotachat/internal/core/store"
	errwrap "github.com/quotachat/quotachat/internal/errors"
	"github.com/quotachat/quotachat/internal/metrics"
	"github.com/quotachat/quotachat/internal/observability"
	"github.com/quotachat/quotachat/internal/server"
	"github.com/quotachat/quotachat/internal/server/handlers"
)

// adminTokenEnv enables the admin signal endpoint when set.
const adminTokenEnv = config.EnvPrefix + "_ADMIN_TOKEN"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat API",
	Long: `Start the HTTP chat API with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(true)
		ctx := cmd.Context()

		observability.InitServerLogger(config.AppName, cfg.Logging.Level)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
			metrics.SetServerStartTime(time.Now().Unix())
		}

		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			ExitWithCode(logger, foundry.ExitFailure, "Failed to open conversation store", err)
		}

		drv, err := ailink.NewDriver(ctx, cfg.AILink)
		if err != nil {
			_ = db.Close()
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to create provider driver", err)
		}
		controller, err := newController(cfg, logger)
		if err != nil {
			_ = db.Close()
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Invalid rate limit configuration", err)
		}
		service, err := chat.NewService(controller, drv, cfg.AILink, db)
		if err != nil {
			_ = db.Close()
			return err
		}
		service.Logger = logger

		health := handlers.NewHealthManager(versionInfo.Version)
		if cfg.Health.Enabled {
			registerHealthChecks(health, db, controller)
		}

		srv := server.New(server.Options{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     cfg.Server.IdleTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			CORSOrigins:     cfg.Server.CORSOrigins,
			ClientRPS:       cfg.Server.ClientRPS,
			ClientBurst:     cfg.Server.ClientBurst,
			API: &handlers.API{
				Chat:          service,
				Conversations: db,
				Limiter:       controller,
			},
			Health:     health,
			AdminToken: os.Getenv(adminTokenEnv),
		})

		logger.Info("Initializing server",
			zap.String("version", versionInfo.Version),
			zap.String("addr", srv.Addr()),
			zap.String("provider", cfg.AILink.Provider),
			zap.String("model", ailink.ModelFor(cfg.AILink)),
			zap.String("store", db.Driver()),
			zap.Bool("metrics", cfg.Metrics.Enabled))

		// Shutdown handlers run LIFO: the server drains before the store
		// closes and the logger flushes last.
		signals.OnShutdown(func(ctx context.Context) error {
			_ = logger.Sync()
			return nil
		})
		signals.OnShutdown(func(ctx context.Context) error {
			if err := db.Close(); err != nil {
				return errwrap.WrapDatabaseError(ctx, err, "store close failed")
			}
			return nil
		})
		signals.OnShutdown(func(ctx context.Context) error {
			if err := srv.Shutdown(ctx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			if err := viper.ReadInConfig(); err != nil {
				var notFound viper.ConfigFileNotFoundError
				if stderrors.As(err, &notFound) {
					return nil
				}
				return errwrap.WrapInvalidInput(ctx, err, "config reload failed")
			}
			// Limiter, provider and server settings are read once at startup.
			logger.Info("Configuration file re-read; restart to apply changes",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
		go func() {
			if err := signals.Listen(ctx); err != nil {
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

// registerHealthChecks wires the store ping and limiter saturation checks.
func registerHealthChecks(health *handlers.HealthManager, db *store.Store, controller *engine.Controller) {
	health.RegisterChecker("store", handlers.CheckerFunc(db.Ping))
	health.RegisterChecker("rate_limiter", handlers.CheckerFunc(func(ctx context.Context) error {
		status := controller.Status()
		metrics.SetLimiterInWindow(status.InWindow)
		if !status.Permitted {
			return fmt.Errorf("%w: window full for %.1fs", handlers.ErrDegraded, status.WaitSeconds)
		}
		return nil
	}))
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "server host (overrides server.host)")
	serveCmd.Flags().IntP("port", "p", 0, "server port (overrides server.port)")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
