package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imkarma/clarity/internal/triage"
	"github.com/imkarma/clarity/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui <owner/name>",
	Short: "Triage a repository in an interactive dashboard",
	Long:  "Runs the pipeline with a live stage tracker, then browses the report, top issues, and fix plans.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUI,
}

var (
	uiLimit int
	uiNoPRs bool
)

func init() {
	uiCmd.Flags().IntVarP(&uiLimit, "limit", "n", 50, "Maximum number of items to fetch")
	uiCmd.Flags().BoolVar(&uiNoPRs, "no-prs", false, "Skip pull requests")
}

func runUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pipe, cleanup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	req := triage.Request{
		Repo:          args[0],
		Limit:         uiLimit,
		IncludeIssues: true,
		IncludePRs:    !uiNoPRs,
	}

	model := tui.New(pipe, req)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
