package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/quotachat/quotachat/internal/observability"
	"github.com/quotachat/quotachat/internal/output"
)

var (
	historyFormat string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Show stored conversations",
	Long: `Without arguments, list recent conversations. With a conversation ID,
print its messages and summary.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(historyFormat)
		if err != nil {
			return err
		}
		cfg := loadConfig(false)
		ctx := cmd.Context()

		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitFailure, "Failed to open conversation store", err)
		}
		defer func() { _ = db.Close() }()

		formatter := output.NewFormatter(format)
		var rendered string
		if len(args) == 0 {
			conversations, err := db.ListConversations(ctx, historyLimit)
			if err != nil {
				return err
			}
			rendered, err = formatter.FormatConversations(conversations)
			if err != nil {
				return err
			}
		} else {
			conv, err := db.GetConversation(ctx, args[0])
			if err != nil {
				ExitWithCode(observability.CLILogger, ExitCodeFor(err), "Conversation not found", err)
			}
			messages, err := db.ListMessages(ctx, conv.ID, historyLimit)
			if err != nil {
				return err
			}
			rendered, err = formatter.FormatTranscript(output.Transcript{Conversation: *conv, Messages: messages})
			if err != nil {
				return err
			}
		}

		printf(cmd, "%s\n", rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyFormat, "output-format", "o", "table", "output format: table, json, yaml, markdown")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "maximum conversations or most recent messages to show (0 = default)")
}
