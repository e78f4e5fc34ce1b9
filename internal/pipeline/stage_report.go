package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/imkarma/clarity/internal/oracle"
	"github.com/imkarma/clarity/internal/triage"
)

// runReport asks the oracle for a Markdown report over the run's
// results. Report output is prose, not structured data, so the only
// decoding is stripping a wrapping fence. This is the one stage where
// an oracle failure degrades instead of aborting: the run's structured
// results already exist, so a locally rendered summary stands in.
func (p *Pipeline) runReport(ctx context.Context, repo string, clusters []triage.Cluster, top []triage.PriorityEntry, plans []triage.FixPlan) (string, []string, error) {
	input := fmt.Sprintf("Repository: %s\n\nClusters:\n%s\n\nTop issues:\n%s\n\nFix plans:\n%s",
		repo, mustJSON(clusters), mustJSON(top), mustJSON(plans))
	msgs := transcript(reportInstructions, input)

	raw, err := p.oracle.Complete(ctx, msgs, reportTemp, reportBudget)
	if err != nil {
		notes := []string{fmt.Sprintf("report: oracle unavailable, rendered local summary: %v", err)}
		return renderFallbackReport(repo, clusters, top, plans), notes, nil
	}

	report := oracle.StripFence(raw)
	if report == "" {
		notes := []string{"report: empty reply, rendered local summary"}
		return renderFallbackReport(repo, clusters, top, plans), notes, nil
	}
	return report, nil, nil
}

// renderFallbackReport builds a minimal Markdown summary from the
// structured results alone.
func renderFallbackReport(repo string, clusters []triage.Cluster, top []triage.PriorityEntry, plans []triage.FixPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Triage report: %s\n\n", repo)

	if len(clusters) == 0 && len(top) == 0 {
		b.WriteString("No open items were found.\n")
		return b.String()
	}

	if len(clusters) > 0 {
		b.WriteString("## Clusters\n\n")
		for _, c := range clusters {
			fmt.Fprintf(&b, "- **%s** (%d items, uncertainty %.2f): %s\n", c.Title, len(c.Members), c.Uncertainty, c.Summary)
		}
		b.WriteString("\n")
	}

	if len(top) > 0 {
		b.WriteString("## Top issues\n\n")
		b.WriteString("| # | Title | Score |\n|---|-------|-------|\n")
		for _, t := range top {
			fmt.Fprintf(&b, "| %d | %s | %.0f |\n", t.Number, t.Title, t.Score)
		}
		b.WriteString("\n")
	}

	if len(plans) > 0 {
		b.WriteString("## Fix plans\n\n")
		for _, plan := range plans {
			fmt.Fprintf(&b, "### #%d %s\n\n", plan.Number, plan.Title)
			for i, step := range plan.Steps {
				fmt.Fprintf(&b, "%d. %s\n", i+1, step)
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String()) + "\n"
}
