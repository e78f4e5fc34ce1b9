package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imkarma/clarity/internal/triage"
)

var runCmd = &cobra.Command{
	Use:   "run <owner/name>",
	Short: "Triage a repository and print the report",
	Long: `Runs the full triage pipeline against a repository's open issues and
pull requests, then prints the Markdown report. Use --json to get the
complete artifact instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runLimit    int
	runNoIssues bool
	runNoPRs    bool
	runJSON     bool
)

func init() {
	runCmd.Flags().IntVarP(&runLimit, "limit", "n", 50, "Maximum number of items to fetch")
	runCmd.Flags().BoolVar(&runNoIssues, "no-issues", false, "Skip issues")
	runCmd.Flags().BoolVar(&runNoPRs, "no-prs", false, "Skip pull requests")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the full artifact as JSON")
}

func runRun(cmd *cobra.Command, args []string) error {
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
		Limit:         runLimit,
		IncludeIssues: !runNoIssues,
		IncludePRs:    !runNoPRs,
	}

	fmt.Fprintf(os.Stderr, "Triaging %s (limit %d)...\n", req.Repo, req.Limit)
	artifact, err := pipe.Run(context.Background(), req)
	if err != nil {
		return fmt.Errorf("triage run failed: %w", err)
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(artifact)
	}

	fmt.Println(artifact.ReportMarkdown)
	fmt.Fprintf(os.Stderr, "\n%d items, %d clusters, %d ranked, %d plans in %.1fs (session %s)\n",
		artifact.Stats.ItemsFetched,
		artifact.Stats.ClusterCount,
		artifact.Stats.PriorityCount,
		artifact.Stats.PlanCount,
		artifact.Stats.ElapsedSeconds,
		artifact.Stats.SessionID,
	)
	for _, note := range artifact.Stats.Notes {
		fmt.Fprintf(os.Stderr, "note: %s\n", note)
	}

	return nil
}
