package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/ailink/driver"
	"github.com/quotachat/quotachat/internal/config"
	"github.com/quotachat/quotachat/internal/observability"
	"github.com/quotachat/quotachat/internal/server/handlers"
)

var (
	cfgFile   string
	envFile   string
	verbose   bool
	traceFile string

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Quota-aware chat client for hosted language models",
	Long: `quotachat talks to a hosted generative model while staying inside the
provider's request quota: calls are admitted through a client-side sliding
window and quota rejections are retried with capped exponential backoff.

Use "chat" for an interactive session or "serve" for the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep gofulmen from emitting metrics to stdout during CLI runs; serve
	// installs a Prometheus-backed system later.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/quotachat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace provider requests/responses to an NDJSON file")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads the dotenv file, the config file and the environment. It
// does not decode; commands call loadConfig for that.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)
	logger := observability.CLILogger

	if err := config.LoadDotEnv(envFile); err != nil {
		logger.Warn("Failed to load dotenv file", zap.String("path", envFile), zap.Error(err))
	}

	if traceFile != "" {
		if _, err := driver.EnableTracing(traceFile); err != nil {
			logger.Warn("Failed to enable tracing", zap.Error(err))
		} else {
			logger.Debug("Provider tracing enabled", zap.String("file", traceFile))
		}
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	if err := config.BindEnv(v); err != nil {
		ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to bind environment", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if path := config.DefaultConfigPath(); path != "" {
			v.AddConfigPath(filepath.Dir(path))
		}
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err == nil {
		logger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	} else {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			logger.Debug("No config file found, using defaults and environment variables")
		case cfgFile != "":
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to read config file", err)
		default:
			logger.Warn("Error reading config file", zap.Error(err))
		}
	}
}

// loadConfig decodes the viper state and, when requireCredential is set,
// resolves the provider API key. Failures exit with a foundry code.
func loadConfig(requireCredential bool) *config.Config {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
	}
	if requireCredential {
		if err := config.ResolveCredential(cfg, os.LookupEnv); err != nil {
			ExitWithCodeStderr(ExitCodeFor(err), "Missing provider credential", err)
		}
	}
	config.SetConfig(cfg)
	return cfg
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
