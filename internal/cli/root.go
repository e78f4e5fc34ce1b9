package cli

import (
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "clarity",
	Short: "Oracle-driven repository triage",
	Long:  "clarity — triage a repository's open issues and pull requests.\nClusters, labels, priorities, fix plans, and a report, one run at a time.",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to clarity.yaml (default ./clarity.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(historyCmd)
}
