package pipeline

import (
	"context"
	"fmt"

	"github.com/imkarma/clarity/internal/triage"
)

// runCluster groups the run's items into topic clusters. Refinement-
// capable: the oracle may flag items whose discussion it needs before
// placing them.
func (p *Pipeline) runCluster(ctx context.Context, owner, name string, items []triage.WorkItem) ([]triage.Cluster, []string, error) {
	known := triage.NumbersOf(items)
	msgs := transcript(clusterInstructions, serializeItems(items))

	fetch := func(ctx context.Context, numbers []int) string {
		comments, err := p.source.FetchComments(ctx, owner, name, known.FilterMembers(numbers))
		if err != nil {
			return ""
		}
		return commentContext(comments, nil)
	}

	res, err := p.runRefined(ctx, "cluster", msgs, clusterTemp, clusterBudget, fetch)
	if err != nil {
		return nil, nil, err
	}
	notes := res.notes
	if res.payload == nil {
		notes = append(notes, fmt.Sprintf("cluster: undecodable reply (%s): %s", res.failure.Kind, res.failure.Preview))
		return nil, notes, nil
	}

	if n := asString(res.payload.Data, "notes"); n != "" {
		notes = append(notes, "cluster: "+n)
	}

	var clusters []triage.Cluster
	for i, obj := range asObjectSlice(res.payload.Data, "clusters") {
		id := asString(obj, "id")
		if id == "" {
			id = fmt.Sprintf("cluster-%d", i+1)
		}
		members := known.FilterMembers(asIntSlice(obj, "members"))
		if len(members) == 0 {
			notes = append(notes, fmt.Sprintf("cluster: dropped %q, no valid members", id))
			continue
		}
		uncertainty := 0.5
		if u, ok := asFloat(obj, "uncertainty"); ok {
			uncertainty = triage.Clamp01(u)
		}
		clusters = append(clusters, triage.Cluster{
			ID:             id,
			Title:          asString(obj, "title"),
			Summary:        asString(obj, "summary"),
			Members:        members,
			ProposedLabels: asStringSlice(obj, "proposed_labels"),
			Uncertainty:    uncertainty,
		})
	}

	return clusters, notes, nil
}
