package pipeline

import (
	"context"
	"fmt"

	"github.com/imkarma/clarity/internal/oracle"
	"github.com/imkarma/clarity/internal/triage"
)

// GeneratePatch proposes a code change for one prioritized item.
// Single-shot, outside the run pipeline: no refinement loop, no
// progress events.
func (p *Pipeline) GeneratePatch(ctx context.Context, priority triage.PriorityEntry, plan triage.FixPlan, item triage.WorkItem) (*triage.CodePatch, error) {
	input := fmt.Sprintf("Priority:\n%s\n\nFix plan:\n%s\n\nItem:\n%s",
		mustJSON(priority), mustJSON(plan), serializeItems([]triage.WorkItem{item}))
	msgs := transcript(patchInstructions, input)

	raw, err := p.oracle.Complete(ctx, msgs, patchTemp, patchBudget)
	if err != nil {
		return nil, fmt.Errorf("patch stage: %w", err)
	}

	decoded := oracle.Decode(raw)
	if !decoded.OK() {
		return nil, fmt.Errorf("patch stage: undecodable reply (%s): %s", decoded.Failure.Kind, decoded.Failure.Preview)
	}
	data := decoded.Payload.Data

	number, ok := asInt(data, "issue_number")
	if !ok || number != item.Number {
		number = item.Number
	}
	confidence := 0.0
	if c, ok := asFloat(data, "confidence"); ok {
		confidence = triage.Clamp01(c)
	}

	return &triage.CodePatch{
		Number:      number,
		FilePath:    asString(data, "file_path"),
		Pseudocode:  asString(data, "pseudocode"),
		Explanation: asString(data, "explanation"),
		Confidence:  confidence,
		Approach:    asString(data, "approach"),
		Notes:       asString(data, "notes"),
		FullCode:    asString(data, "full_code"),
	}, nil
}
