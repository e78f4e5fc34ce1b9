package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imkarma/clarity/internal/archive"
)

var historyCmd = &cobra.Command{
	Use:   "history [session]",
	Short: "List archived runs",
	Long: `Lists runs recorded in the archive (archive.enabled in clarity.yaml).
With a session id, prints that run's report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Archive.Enabled {
		return fmt.Errorf("archive is disabled. Set archive.enabled: true in the config")
	}

	store, err := archive.New(cfg.Archive.DBPath())
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer store.Close()

	if len(args) == 1 {
		run, err := store.Get(args[0])
		if err != nil {
			return err
		}
		artifact, err := run.Decode()
		if err != nil {
			return err
		}
		fmt.Println(artifact.ReportMarkdown)
		return nil
	}

	runs, err := store.List(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No archived runs yet.")
		return nil
	}

	w := os.Stdout
	fmt.Fprintf(w, "%-22s %-28s %6s %9s %5s %7s\n", "SESSION", "REPO", "ITEMS", "CLUSTERS", "TOP", "ELAPSED")
	for _, r := range runs {
		fmt.Fprintf(w, "%-22s %-28s %6d %9d %5d %6.1fs\n",
			r.Session, r.Repo, r.ItemsFetched, r.ClusterCount, r.PriorityCount, r.ElapsedSec)
	}
	return nil
}
