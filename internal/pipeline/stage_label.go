package pipeline

import (
	"context"
	"fmt"

	"github.com/imkarma/clarity/internal/triage"
)

// runLabel refines each cluster's proposed labels in place. Uncertainty
// only ever decreases: a second opinion narrows, never widens. For PR
// members the refinement fetch includes review states.
func (p *Pipeline) runLabel(ctx context.Context, owner, name string, clusters []triage.Cluster, items []triage.WorkItem) ([]triage.Cluster, []string, error) {
	if len(clusters) == 0 {
		return clusters, nil, nil
	}

	known := triage.NumbersOf(items)
	kinds := make(map[int]triage.ItemKind, len(items))
	for _, it := range items {
		kinds[it.Number] = it.Kind
	}

	input := fmt.Sprintf("Clusters:\n%s\n\nItems:\n%s", mustJSON(clusters), serializeItems(items))
	msgs := transcript(labelInstructions, input)

	fetch := func(ctx context.Context, numbers []int) string {
		valid := known.FilterMembers(numbers)
		var prs []int
		for _, n := range valid {
			if kinds[n] == triage.KindPR {
				prs = append(prs, n)
			}
		}
		comments, err := p.source.FetchComments(ctx, owner, name, valid)
		if err != nil {
			return ""
		}
		var reviews map[int][]string
		if len(prs) > 0 {
			reviews, _ = p.source.FetchReviews(ctx, owner, name, prs)
		}
		return commentContext(comments, reviews)
	}

	res, err := p.runRefined(ctx, "label", msgs, labelTemp, labelBudget, fetch)
	if err != nil {
		return clusters, nil, err
	}
	notes := res.notes
	if res.payload == nil {
		notes = append(notes, fmt.Sprintf("label: undecodable reply (%s), keeping cluster labels", res.failure.Kind))
		return clusters, notes, nil
	}

	if n := asString(res.payload.Data, "notes"); n != "" {
		notes = append(notes, "label: "+n)
	}

	byCluster := asObject(res.payload.Data, "labels_by_cluster")
	for i := range clusters {
		entry, ok := byCluster[clusters[i].ID].(map[string]any)
		if !ok {
			continue
		}
		if labels := asStringSlice(entry, "labels"); len(labels) > 0 {
			clusters[i].ProposedLabels = labels
		}
		if u, ok := asFloat(entry, "uncertainty"); ok {
			u = triage.Clamp01(u)
			if u < clusters[i].Uncertainty {
				clusters[i].Uncertainty = u
			}
		}
	}

	return clusters, notes, nil
}
