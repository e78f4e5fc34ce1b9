package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/imkarma/clarity/internal/triage"
)

// Archiver records completed runs. Satisfied by *archive.Store.
type Archiver interface {
	Save(artifact *triage.Artifact) error
}

// SetArchive enables recording of completed runs. Archiving is
// write-only from the pipeline's point of view; a failed save degrades
// to a note.
func (p *Pipeline) SetArchive(a Archiver) { p.archive = a }

// Run executes the full triage pipeline for one request: fetch, then
// cluster, label, prioritize, plan, report in fixed order. Transport
// and auth faults abort the run with no partial artifact. The item
// source is closed on every exit path.
func (p *Pipeline) Run(ctx context.Context, req triage.Request) (*triage.Artifact, error) {
	owner, name, ok := triage.ParseRepo(req.Repo)
	if !ok {
		return nil, fmt.Errorf("invalid repo %q, expected owner/name", req.Repo)
	}
	if !req.IncludeIssues && !req.IncludePRs {
		req.IncludeIssues = true
	}

	session := newSession()
	p.log.Reset(session)
	started := time.Now()

	stats := triage.RunStats{
		SessionID: session,
		StartedAt: started.UTC(),
	}
	defer p.source.Close()

	p.log.Append("fetch", "fetching up to %d open items from %s", req.Limit, req.Repo)
	items, err := p.source.FetchItems(ctx, owner, name, req.Limit, req.IncludeIssues, req.IncludePRs)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}
	stats.ItemsFetched = len(items)
	p.log.Append("fetch", "fetched %d item(s)", len(items))

	artifact := &triage.Artifact{
		Repo:        req.Repo,
		GeneratedAt: started.UTC(),
		Clusters:    []triage.Cluster{},
		TopIssues:   []triage.PriorityEntry{},
		Plans:       []triage.FixPlan{},
	}

	// Nothing to triage: skip every stage, including the oracle-backed
	// report.
	if len(items) == 0 {
		p.log.Append("done", "no open items, skipping all stages")
		stats.Notes = append(stats.Notes, "no open items found")
		artifact.ReportMarkdown = renderFallbackReport(req.Repo, nil, nil, nil)
		p.finish(artifact, &stats, started)
		return artifact, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.log.Append("cluster", "grouping %d item(s) into topic clusters", len(items))
	clusters, notes, err := p.runCluster(ctx, owner, name, items)
	if err != nil {
		return nil, err
	}
	stats.Notes = append(stats.Notes, notes...)
	stats.ClusterCount = len(clusters)
	p.log.Append("cluster", "formed %d cluster(s)", len(clusters))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.log.Append("label", "refining labels for %d cluster(s)", len(clusters))
	clusters, notes, err = p.runLabel(ctx, owner, name, clusters, items)
	if err != nil {
		return nil, err
	}
	stats.Notes = append(stats.Notes, notes...)
	p.log.Append("label", "labels refined")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.log.Append("prioritize", "ranking %d item(s)", len(items))
	top, notes, err := p.runPrioritize(ctx, items)
	if err != nil {
		return nil, err
	}
	stats.Notes = append(stats.Notes, notes...)
	stats.PriorityCount = len(top)
	p.log.Append("prioritize", "ranked top %d item(s)", len(top))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.log.Append("plan", "drafting fix plans for %d item(s)", len(top))
	plans, notes, err := p.runPlan(ctx, items, top)
	if err != nil {
		return nil, err
	}
	stats.Notes = append(stats.Notes, notes...)
	stats.PlanCount = len(plans)
	p.log.Append("plan", "drafted %d plan(s)", len(plans))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.log.Append("report", "writing report")
	report, notes, err := p.runReport(ctx, req.Repo, clusters, top, plans)
	if err != nil {
		return nil, err
	}
	stats.Notes = append(stats.Notes, notes...)
	p.log.Append("report", "report ready")

	artifact.Clusters = clusters
	artifact.TopIssues = top
	artifact.Plans = plans
	artifact.ReportMarkdown = report

	p.finish(artifact, &stats, started)
	p.log.Append("done", "run %s complete in %.1fs", session, stats.ElapsedSeconds)
	return artifact, nil
}

// finish stamps the stats, attaches them, and archives the run when an
// archive is configured.
func (p *Pipeline) finish(artifact *triage.Artifact, stats *triage.RunStats, started time.Time) {
	ended := time.Now()
	stats.EndedAt = ended.UTC()
	stats.ElapsedSeconds = ended.Sub(started).Seconds()
	artifact.Stats = *stats

	if p.archive != nil {
		if err := p.archive.Save(artifact); err != nil {
			artifact.Stats.Notes = append(artifact.Stats.Notes, fmt.Sprintf("archive: save failed: %v", err))
			p.log.Append("archive", "save failed: %v", err)
		}
	}
}
