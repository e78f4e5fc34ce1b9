package pipeline

import (
	"context"
	"fmt"

	"github.com/imkarma/clarity/internal/triage"
)

// runPrioritize ranks the run's items and keeps the first three valid
// entries in the oracle's order. Scores are clamped as reported; the
// scoring formula in the prompt is advisory and never recomputed here.
func (p *Pipeline) runPrioritize(ctx context.Context, items []triage.WorkItem) ([]triage.PriorityEntry, []string, error) {
	known := triage.NumbersOf(items)
	msgs := transcript(prioritizeInstructions, serializeItems(items))

	res, err := p.runRefined(ctx, "prioritize", msgs, prioritizeTemp, prioritizeBudget, nil)
	if err != nil {
		return nil, nil, err
	}
	notes := res.notes
	if res.payload == nil {
		notes = append(notes, fmt.Sprintf("prioritize: undecodable reply (%s): %s", res.failure.Kind, res.failure.Preview))
		return nil, notes, nil
	}

	var top []triage.PriorityEntry
	for _, obj := range asObjectSlice(res.payload.Data, "top") {
		if len(top) >= topLimit {
			break
		}
		number, ok := asInt(obj, "number")
		if !ok || !known[number] {
			notes = append(notes, fmt.Sprintf("prioritize: dropped entry with unknown item number %d", number))
			continue
		}

		severity, _ := asInt(obj, "severity")
		impact, _ := asInt(obj, "impact")
		effort, _ := asInt(obj, "effort")
		score, _ := asFloat(obj, "score")

		top = append(top, triage.PriorityEntry{
			Number:        number,
			Title:         asString(obj, "title"),
			Severity:      triage.ClampOrdinal(severity),
			Impact:        triage.ClampOrdinal(impact),
			Effort:        triage.ClampOrdinal(effort),
			Score:         triage.ClampScore(score),
			Justification: asString(obj, "justification"),
			Links:         asStringSlice(obj, "links"),
		})
	}

	return top, notes, nil
}
