package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/imkarma/clarity/internal/oracle"
	"github.com/imkarma/clarity/internal/triage"
)

// Oracle is the completion surface the stages call. Satisfied by
// *oracle.Client.
type Oracle interface {
	Complete(ctx context.Context, transcript []oracle.Message, temperature float64, maxTokens int) (string, error)
}

// ItemSource supplies work items and the auxiliary context the
// refinement loop requests. Satisfied by *github.Client.
type ItemSource interface {
	FetchItems(ctx context.Context, owner, name string, limit int, includeIssues, includePRs bool) ([]triage.WorkItem, error)
	FetchComments(ctx context.Context, owner, name string, numbers []int) (map[int][]string, error)
	FetchReviews(ctx context.Context, owner, name string, prNumbers []int) (map[int][]string, error)
	Close()
}

// Stage temperatures. Judgment stages run warmer than scoring ones.
const (
	clusterTemp    = 0.7
	labelTemp      = 0.7
	prioritizeTemp = 0.5
	planTemp       = 0.6
	reportTemp     = 0.5
	patchTemp      = 0.4
)

// Output budgets per stage, in tokens.
const (
	clusterBudget    = 2048
	labelBudget      = 1024
	prioritizeBudget = 1536
	planBudget       = 3072
	reportBudget     = 3072
	patchBudget      = 4096
)

// DefaultMaxRetries bounds refinement rounds per stage.
const DefaultMaxRetries = 2

// topLimit caps the ranked priority list.
const topLimit = 3

// Pipeline wires an oracle and an item source into the staged triage
// run. One Pipeline runs one request at a time; the server layer
// serializes calls.
type Pipeline struct {
	oracle     Oracle
	source     ItemSource
	log        *ProgressLog
	archive    Archiver
	maxRetries int
}

func New(o Oracle, source ItemSource, log *ProgressLog, maxRetries int) *Pipeline {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if log == nil {
		log = NewProgressLog()
	}
	return &Pipeline{oracle: o, source: source, log: log, maxRetries: maxRetries}
}

// Log exposes the progress log for readers (HTTP handler, TUI).
func (p *Pipeline) Log() *ProgressLog { return p.log }

// newSession derives a session id from the wall clock.
func newSession() string {
	return time.Now().UTC().Format("20060102-150405.000")
}

// promptItem is the trimmed view of a work item serialized into stage
// prompts. Bodies are cut to keep the transcript inside the budget.
type promptItem struct {
	Type     string   `json:"type"`
	Number   int      `json:"number"`
	Title    string   `json:"title"`
	Body     string   `json:"body,omitempty"`
	Labels   []string `json:"labels,omitempty"`
	Comments int      `json:"comments"`
	URL      string   `json:"url,omitempty"`
}

const promptBodyLimit = 600

func serializeItems(items []triage.WorkItem) string {
	out := make([]promptItem, 0, len(items))
	for _, it := range items {
		body := it.Body
		if len(body) > promptBodyLimit {
			body = body[:promptBodyLimit]
		}
		out = append(out, promptItem{
			Type:     string(it.Kind),
			Number:   it.Number,
			Title:    it.Title,
			Body:     body,
			Labels:   it.Labels,
			Comments: it.Comments,
			URL:      it.URL,
		})
	}
	return mustJSON(out)
}

// mustJSON marshals values built from our own types; a failure here is
// a programming error, so fall back to an empty object.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func transcript(instructions, input string) []oracle.Message {
	return []oracle.Message{
		{Role: oracle.RoleSystem, Content: instructions},
		{Role: oracle.RoleUser, Content: input},
	}
}
