package pipeline

import (
	"context"
	"fmt"

	"github.com/imkarma/clarity/internal/triage"
)

// planInput pairs a priority entry with its full item for the plan
// prompt.
type planInput struct {
	Priority triage.PriorityEntry `json:"priority"`
	Item     promptItem           `json:"item"`
}

// runPlan drafts one fix plan per top-priority item. Plans whose number
// does not match a ranked item are dropped.
func (p *Pipeline) runPlan(ctx context.Context, items []triage.WorkItem, top []triage.PriorityEntry) ([]triage.FixPlan, []string, error) {
	if len(top) == 0 {
		return nil, nil, nil
	}

	byNumber := make(map[int]triage.WorkItem, len(items))
	for _, it := range items {
		byNumber[it.Number] = it
	}
	ranked := make(map[int]bool, len(top))

	inputs := make([]planInput, 0, len(top))
	for _, entry := range top {
		ranked[entry.Number] = true
		it := byNumber[entry.Number]
		body := it.Body
		if len(body) > promptBodyLimit {
			body = body[:promptBodyLimit]
		}
		inputs = append(inputs, planInput{
			Priority: entry,
			Item: promptItem{
				Type:     string(it.Kind),
				Number:   it.Number,
				Title:    it.Title,
				Body:     body,
				Labels:   it.Labels,
				Comments: it.Comments,
				URL:      it.URL,
			},
		})
	}

	msgs := transcript(planInstructions, mustJSON(inputs))
	res, err := p.runRefined(ctx, "plan", msgs, planTemp, planBudget, nil)
	if err != nil {
		return nil, nil, err
	}
	notes := res.notes
	if res.payload == nil {
		notes = append(notes, fmt.Sprintf("plan: undecodable reply (%s): %s", res.failure.Kind, res.failure.Preview))
		return nil, notes, nil
	}

	var plans []triage.FixPlan
	for _, obj := range asObjectSlice(res.payload.Data, "plans") {
		number, ok := asInt(obj, "number")
		if !ok || !ranked[number] {
			notes = append(notes, fmt.Sprintf("plan: dropped plan for unranked item %d", number))
			continue
		}
		plans = append(plans, triage.FixPlan{
			Number:             number,
			Title:              asString(obj, "title"),
			Steps:              asStringSlice(obj, "plan"),
			FilesLikelyTouched: asStringSlice(obj, "files_likely_touched"),
			EdgeCases:          asStringSlice(obj, "edge_cases"),
			AcceptanceCriteria: asStringSlice(obj, "acceptance_criteria"),
			TestHints:          asStringSlice(obj, "test_hints"),
			Citations:          asStringSlice(obj, "citations"),
		})
	}

	return plans, notes, nil
}
