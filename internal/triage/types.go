// Package triage defines the domain records that flow through the
// pipeline: fetched work items, topic clusters, ranked priorities,
// fix plans, and the final artifact returned to the caller.
package triage

import "time"

// ItemKind distinguishes issues from pull requests.
type ItemKind string

const (
	KindIssue ItemKind = "issue"
	KindPR    ItemKind = "pr"
)

// WorkItem is one fetched issue or pull request. Immutable once fetched;
// owned by the orchestrator for the duration of a run.
type WorkItem struct {
	Kind      ItemKind       `json:"type"`
	Number    int            `json:"number"`
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	Labels    []string       `json:"labels"`
	State     string         `json:"state"` // open or closed
	Comments  int            `json:"comments"`
	UpdatedAt string         `json:"updated_at"`
	URL       string         `json:"html_url"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Cluster is a topic grouping of work items. Created by the cluster
// stage; the label stage fills ProposedLabels and may only lower
// Uncertainty, never raise it.
type Cluster struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Members        []int    `json:"members"`
	ProposedLabels []string `json:"proposed_labels"`
	Uncertainty    float64  `json:"uncertainty"` // always in [0,1]
}

// PriorityEntry is one ranked item. At most three survive a run.
type PriorityEntry struct {
	Number        int      `json:"number"`
	Title         string   `json:"title"`
	Severity      int      `json:"severity"` // 1..5
	Impact        int      `json:"impact"`   // 1..5
	Effort        int      `json:"effort"`   // 1..5
	Score         float64  `json:"score"`    // 0..100, as reported by the oracle
	Justification string   `json:"justification"`
	Links         []string `json:"links"`
}

// FixPlan is an actionable remediation plan for one prioritized item.
type FixPlan struct {
	Number             int      `json:"number"`
	Title              string   `json:"title"`
	Steps              []string `json:"plan"`
	FilesLikelyTouched []string `json:"files_likely_touched"`
	EdgeCases          []string `json:"edge_cases"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	TestHints          []string `json:"test_hints"`
	Citations          []string `json:"citations"`
}

// CodePatch is a generated fix sketch for one item. Produced on demand
// after the main pipeline, never as part of a run.
type CodePatch struct {
	Number      int     `json:"issue_number"`
	FilePath    string  `json:"file_path"`
	Pseudocode  string  `json:"pseudocode"`
	Explanation string  `json:"explanation"`
	Confidence  float64 `json:"confidence"` // always in [0,1]
	Approach    string  `json:"approach,omitempty"`
	Notes       string  `json:"notes,omitempty"`
	FullCode    string  `json:"full_code,omitempty"`
}

// RunStats carries per-run bookkeeping: what was fetched, what each
// stage produced, and how long the whole run took.
type RunStats struct {
	SessionID      string    `json:"session_id"`
	ItemsFetched   int       `json:"items_fetched"`
	ClusterCount   int       `json:"clusters_count"`
	PriorityCount  int       `json:"priorities_count"`
	PlanCount      int       `json:"plans_count"`
	Notes          []string  `json:"notes,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// Artifact is the final result of one triage run. Collections may be
// empty but every record present is fully populated.
type Artifact struct {
	Repo           string          `json:"repo"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Clusters       []Cluster       `json:"clusters"`
	TopIssues      []PriorityEntry `json:"top_issues"`
	Plans          []FixPlan       `json:"plans"`
	ReportMarkdown string          `json:"report_markdown"`
	Stats          RunStats        `json:"stats"`
}

// Request describes one triage run.
type Request struct {
	Repo          string `json:"repo"` // "owner/name"
	Limit         int    `json:"limit"`
	IncludeIssues bool   `json:"include_issues"`
	IncludePRs    bool   `json:"include_prs"`
}
