package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quotachat/quotachat/internal/server/handlers"
)

var extended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for commit, build, Go and gofulmen details.",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := handlers.CurrentVersion()
		printf(cmd, "%s %s\n", info.App.Name, info.App.Version)
		if !extended {
			return nil
		}

		printf(cmd, "Commit: %s\n", info.App.Commit)
		printf(cmd, "Built: %s\n", info.App.BuildDate)
		printf(cmd, "Go: %s (%s)\n", info.App.GoVersion, info.Runtime.Platform)
		printf(cmd, "\nGofulmen: %s\n", info.Dependencies.Gofulmen)
		printf(cmd, "Crucible: %s\n", info.Dependencies.Crucible)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
}
