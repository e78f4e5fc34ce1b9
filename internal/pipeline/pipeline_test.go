package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/imkarma/clarity/internal/oracle"
	"github.com/imkarma/clarity/internal/triage"
)

// fakeOracle replays scripted replies in order. errAt makes the n-th
// call (1-based) fail with a transport error.
type fakeOracle struct {
	replies     []string
	calls       int
	errAt       int
	transcripts [][]oracle.Message
}

func (f *fakeOracle) Complete(ctx context.Context, transcript []oracle.Message, temperature float64, maxTokens int) (string, error) {
	f.calls++
	f.transcripts = append(f.transcripts, transcript)
	if f.errAt != 0 && f.calls == f.errAt {
		return "", errors.New("connection reset")
	}
	if f.calls > len(f.replies) {
		return "", fmt.Errorf("no scripted reply for call %d", f.calls)
	}
	return f.replies[f.calls-1], nil
}

// fakeSource serves a fixed item list and records context fetches.
type fakeSource struct {
	items        []triage.WorkItem
	comments     map[int][]string
	reviews      map[int][]string
	fetchErr     error
	commentCalls [][]int
	reviewCalls  [][]int
	closed       bool
}

func (f *fakeSource) FetchItems(ctx context.Context, owner, name string, limit int, includeIssues, includePRs bool) ([]triage.WorkItem, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.items, nil
}

func (f *fakeSource) FetchComments(ctx context.Context, owner, name string, numbers []int) (map[int][]string, error) {
	f.commentCalls = append(f.commentCalls, numbers)
	out := make(map[int][]string, len(numbers))
	for _, n := range numbers {
		out[n] = f.comments[n]
	}
	return out, nil
}

func (f *fakeSource) FetchReviews(ctx context.Context, owner, name string, numbers []int) (map[int][]string, error) {
	f.reviewCalls = append(f.reviewCalls, numbers)
	out := make(map[int][]string, len(numbers))
	for _, n := range numbers {
		out[n] = f.reviews[n]
	}
	return out, nil
}

func (f *fakeSource) Close() { f.closed = true }

func testItems() []triage.WorkItem {
	return []triage.WorkItem{
		{Kind: triage.KindIssue, Number: 1, Title: "crash on start", Body: "stack trace"},
		{Kind: triage.KindIssue, Number: 2, Title: "slow search"},
		{Kind: triage.KindIssue, Number: 3, Title: "docs typo"},
		{Kind: triage.KindPR, Number: 7, Title: "fix race"},
		{Kind: triage.KindIssue, Number: 9, Title: "flaky test"},
	}
}

// fullRunReplies scripts a clean five-stage run over testItems.
func fullRunReplies() []string {
	return []string{
		// cluster: one invalid member (99) that must be filtered out
		`{"clusters": [
			{"id": "stability", "title": "Stability", "summary": "crashes and races", "members": [1, 7, 99], "proposed_labels": ["bug"], "uncertainty": 0.6},
			{"id": "polish", "title": "Polish", "summary": "small fixes", "members": [2, 3, 9], "proposed_labels": ["chore"], "uncertainty": 0.4}
		], "needs_context": []}`,
		// label: stability decreases, polish reply is higher and must not apply
		`{"labels_by_cluster": {
			"stability": {"labels": ["bug", "crash"], "uncertainty": 0.3},
			"polish": {"labels": ["chore"], "uncertainty": 0.9}
		}, "needs_context": []}`,
		// prioritize: five entries, out-of-range ordinals and score
		`{"top": [
			{"number": 1, "title": "crash on start", "severity": 9, "impact": 5, "effort": 0, "score": 250, "justification": "crashes everyone"},
			{"number": 7, "title": "fix race", "severity": 4, "impact": 4, "effort": 2, "score": 72, "justification": "data race"},
			{"number": 9, "title": "flaky test", "severity": 3, "impact": 2, "effort": 1, "score": 48, "justification": "ci noise"},
			{"number": 2, "title": "slow search", "severity": 2, "impact": 3, "effort": 3, "score": 33, "justification": "perf"},
			{"number": 3, "title": "docs typo", "severity": 1, "impact": 1, "effort": 1, "score": 9, "justification": "trivial"}
		]}`,
		// plan: one plan per surviving priority, plus one for an unranked item
		`{"plans": [
			{"number": 1, "title": "crash on start", "plan": ["reproduce", "fix nil deref"], "files_likely_touched": ["main.go"]},
			{"number": 7, "title": "fix race", "plan": ["add mutex"]},
			{"number": 9, "title": "flaky test", "plan": ["deflake"]},
			{"number": 3, "title": "docs typo", "plan": ["fix typo"]}
		]}`,
		// report
		"```markdown\n# Triage report\n\nAll good.\n```",
	}
}

func newTestPipeline(o *fakeOracle, s *fakeSource) *Pipeline {
	return New(o, s, NewProgressLog(), DefaultMaxRetries)
}

func TestRun_FullPipeline(t *testing.T) {
	o := &fakeOracle{replies: fullRunReplies()}
	s := &fakeSource{items: testItems()}
	p := newTestPipeline(o, s)

	artifact, err := p.Run(context.Background(), triage.Request{Repo: "acme/widgets", Limit: 10, IncludeIssues: true, IncludePRs: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.calls != 5 {
		t.Errorf("expected 5 oracle calls for a clean run, got %d", o.calls)
	}
	if !s.closed {
		t.Error("item source must be closed when the run ends")
	}

	if len(artifact.Clusters) != 2 {
		t.Fatalf("clusters: got %d", len(artifact.Clusters))
	}
	stability := artifact.Clusters[0]
	if len(stability.Members) != 2 {
		t.Errorf("unknown member must be dropped, got members %v", stability.Members)
	}
	if stability.Uncertainty != 0.3 {
		t.Errorf("uncertainty should decrease to 0.3, got %v", stability.Uncertainty)
	}
	if artifact.Clusters[1].Uncertainty != 0.4 {
		t.Errorf("uncertainty must never increase, got %v", artifact.Clusters[1].Uncertainty)
	}
	if stability.ProposedLabels[1] != "crash" {
		t.Errorf("refined labels not applied: %v", stability.ProposedLabels)
	}

	if len(artifact.TopIssues) != 3 {
		t.Fatalf("top issues must be capped at 3, got %d", len(artifact.TopIssues))
	}
	first := artifact.TopIssues[0]
	if first.Severity != 5 || first.Effort != 1 {
		t.Errorf("ordinals not clamped: %+v", first)
	}
	if first.Score != 100 {
		t.Errorf("score not clamped: %v", first.Score)
	}
	if artifact.TopIssues[2].Number != 9 {
		t.Errorf("oracle order must survive truncation, got %+v", artifact.TopIssues[2])
	}

	if len(artifact.Plans) != 3 {
		t.Fatalf("plan for unranked item must be dropped, got %d plans", len(artifact.Plans))
	}
	if artifact.ReportMarkdown != "# Triage report\n\nAll good." {
		t.Errorf("report fence not stripped: %q", artifact.ReportMarkdown)
	}

	if artifact.Stats.ItemsFetched != 5 || artifact.Stats.ClusterCount != 2 || artifact.Stats.PriorityCount != 3 || artifact.Stats.PlanCount != 3 {
		t.Errorf("stats: %+v", artifact.Stats)
	}
	if artifact.Stats.SessionID == "" {
		t.Error("stats must carry the session id")
	}
}

func TestRun_ZeroItemsSkipsOracle(t *testing.T) {
	o := &fakeOracle{}
	s := &fakeSource{}
	p := newTestPipeline(o, s)

	artifact, err := p.Run(context.Background(), triage.Request{Repo: "acme/empty", Limit: 10, IncludeIssues: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.calls != 0 {
		t.Errorf("zero items must mean zero oracle calls, got %d", o.calls)
	}
	if len(artifact.Clusters) != 0 || len(artifact.TopIssues) != 0 || len(artifact.Plans) != 0 {
		t.Errorf("expected empty collections: %+v", artifact)
	}
	if !strings.Contains(artifact.ReportMarkdown, "No open items") {
		t.Errorf("report should say no items: %q", artifact.ReportMarkdown)
	}
	if !s.closed {
		t.Error("item source must be closed")
	}
}

func TestRun_InvalidRepo(t *testing.T) {
	p := newTestPipeline(&fakeOracle{}, &fakeSource{})
	if _, err := p.Run(context.Background(), triage.Request{Repo: "not-a-repo"}); err == nil {
		t.Fatal("expected error for malformed repo")
	}
}

func TestRun_FetchErrorAborts(t *testing.T) {
	s := &fakeSource{fetchErr: errors.New("403 forbidden")}
	p := newTestPipeline(&fakeOracle{}, s)

	_, err := p.Run(context.Background(), triage.Request{Repo: "acme/widgets", IncludeIssues: true})
	if err == nil {
		t.Fatal("expected fetch error to abort the run")
	}
	if !s.closed {
		t.Error("item source must be closed even when the run aborts")
	}
}

func TestRun_OracleTransportErrorAborts(t *testing.T) {
	o := &fakeOracle{replies: fullRunReplies(), errAt: 3}
	s := &fakeSource{items: testItems()}
	p := newTestPipeline(o, s)

	_, err := p.Run(context.Background(), triage.Request{Repo: "acme/widgets", IncludeIssues: true, IncludePRs: true})
	if err == nil {
		t.Fatal("expected transport fault mid-pipeline to abort")
	}
	if !strings.Contains(err.Error(), "prioritize") {
		t.Errorf("error should name the failing stage: %v", err)
	}
	if !s.closed {
		t.Error("item source must be closed on abort")
	}
}

func TestRun_ReportFailureDegrades(t *testing.T) {
	o := &fakeOracle{replies: fullRunReplies(), errAt: 5}
	s := &fakeSource{items: testItems()}
	p := newTestPipeline(o, s)

	artifact, err := p.Run(context.Background(), triage.Request{Repo: "acme/widgets", IncludeIssues: true, IncludePRs: true})
	if err != nil {
		t.Fatalf("report failure must degrade, not abort: %v", err)
	}
	if !strings.Contains(artifact.ReportMarkdown, "# Triage report: acme/widgets") {
		t.Errorf("expected locally rendered report, got %q", artifact.ReportMarkdown)
	}
	found := false
	for _, n := range artifact.Stats.Notes {
		if strings.Contains(n, "oracle unavailable") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a degradation note, got %v", artifact.Stats.Notes)
	}
	if len(artifact.TopIssues) != 3 || len(artifact.Plans) != 3 {
		t.Error("structured results must survive report degradation")
	}
}

func TestRun_DecodeFailureIsEmptyNotFatal(t *testing.T) {
	// Cluster reply is bare source code; the stage yields no clusters
	// and a note, and the run continues.
	replies := fullRunReplies()
	replies[0] = "typescript\nconst clusters = [];"
	// Label is skipped for zero clusters, so the remaining replies
	// shift up.
	replies = []string{replies[0], replies[2], replies[3], replies[4]}

	o := &fakeOracle{replies: replies}
	s := &fakeSource{items: testItems()}
	p := newTestPipeline(o, s)

	artifact, err := p.Run(context.Background(), triage.Request{Repo: "acme/widgets", IncludeIssues: true, IncludePRs: true})
	if err != nil {
		t.Fatalf("decode failure must not abort the run: %v", err)
	}
	if len(artifact.Clusters) != 0 {
		t.Errorf("expected no clusters, got %d", len(artifact.Clusters))
	}
	found := false
	for _, n := range artifact.Stats.Notes {
		if strings.Contains(n, "raw_code_instead_of_structure") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a decode-failure note, got %v", artifact.Stats.Notes)
	}
	if len(artifact.TopIssues) != 3 {
		t.Error("later stages must still run")
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := &fakeOracle{}
	s := &fakeSource{items: testItems()}
	p := newTestPipeline(o, s)

	_, err := p.Run(ctx, triage.Request{Repo: "acme/widgets", IncludeIssues: true})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
	if o.calls != 0 {
		t.Errorf("no oracle calls after cancellation, got %d", o.calls)
	}
}

func TestGeneratePatch(t *testing.T) {
	o := &fakeOracle{replies: []string{`{
		"issue_number": 7,
		"file_path": "internal/sync/pool.go",
		"pseudocode": "guard the map with a mutex",
		"explanation": "the map is written from two goroutines",
		"confidence": 1.4,
		"approach": "mutex",
		"full_code": "..."
	}`}}
	p := newTestPipeline(o, &fakeSource{})

	item := triage.WorkItem{Kind: triage.KindPR, Number: 7, Title: "fix race"}
	patch, err := p.GeneratePatch(context.Background(), triage.PriorityEntry{Number: 7}, triage.FixPlan{Number: 7}, item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patch.Number != 7 || patch.FilePath != "internal/sync/pool.go" {
		t.Errorf("patch: %+v", patch)
	}
	if patch.Confidence != 1.0 {
		t.Errorf("confidence not clamped: %v", patch.Confidence)
	}
	if o.calls != 1 {
		t.Errorf("patch generation is single-shot, got %d calls", o.calls)
	}
}

func TestGeneratePatch_RawCode(t *testing.T) {
	o := &fakeOracle{replies: []string{"go\nfunc main() {}"}}
	p := newTestPipeline(o, &fakeSource{})

	_, err := p.GeneratePatch(context.Background(), triage.PriorityEntry{Number: 1}, triage.FixPlan{}, triage.WorkItem{Number: 1})
	if err == nil {
		t.Fatal("expected error for a bare-code reply")
	}
	if !strings.Contains(err.Error(), "raw_code_instead_of_structure") {
		t.Errorf("error should carry the failure kind: %v", err)
	}
}
