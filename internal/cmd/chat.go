package cmd

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotachat/quotachat/internal/ailink"
	"github.com/quotachat/quotachat/internal/chat"
	"github.com/quotachat/quotachat/internal/observability"
)

var (
	chatSave         bool
	chatConversation string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session on standard input.

Type "exit" or "quit" to leave; Ctrl+C cancels any pending wait and ends the
session. With --save, turns are stored and can be reviewed with "history".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(true)
		logger := observability.CLILogger

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		drv, err := ailink.NewDriver(ctx, cfg.AILink)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Failed to create provider driver", err)
		}
		controller, err := newController(cfg, logger)
		if err != nil {
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Invalid rate limit configuration", err)
		}

		var conversations chat.Store
		if chatSave || chatConversation != "" {
			db, err := openStore(ctx, cfg.Store)
			if err != nil {
				ExitWithCode(logger, foundry.ExitFailure, "Failed to open conversation store", err)
			}
			defer func() { _ = db.Close() }()
			conversations = db
		}

		service, err := chat.NewService(controller, drv, cfg.AILink, conversations)
		if err != nil {
			return err
		}
		service.Logger = logger

		logger.Debug("Chat session started",
			zap.String("provider", cfg.AILink.Provider),
			zap.String("model", ailink.ModelFor(cfg.AILink)),
			zap.Int("max_calls", cfg.RateLimit.MaxCalls),
			zap.Int("window_seconds", cfg.RateLimit.WindowSeconds))

		repl := chat.NewREPL(service, cmd.InOrStdin(), cmd.OutOrStdout())
		repl.ConversationID = chatConversation
		if err := repl.Run(ctx); err != nil {
			if stderrors.Is(err, context.Canceled) {
				printf(cmd, "\n")
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().BoolVar(&chatSave, "save", false, "store the session in the conversation database")
	chatCmd.Flags().StringVar(&chatConversation, "conversation", "", "continue a stored conversation by ID (implies --save)")
}
