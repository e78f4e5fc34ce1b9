package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/imkarma/clarity/internal/oracle"
)

// The refinement loop lets a stage ask for more material before
// committing. A reply whose needs_context list is non-empty triggers a
// fetch of the requested items' discussion, which is appended to the
// transcript for another round. Rounds are bounded by maxRetries;
// hitting the ceiling is normal termination, not an error.

// contextFetcher resolves the item numbers a stage asked about into a
// text block for the next user turn. Per-number failures inside the
// fetcher degrade to omissions, never errors.
type contextFetcher func(ctx context.Context, numbers []int) string

// refineResult is the outcome of a bounded refinement run.
type refineResult struct {
	payload     *oracle.Payload
	failure     *oracle.Failure
	invocations int
	notes       []string
}

// runRefined drives the oracle through at most maxRetries+1 calls.
// Transport errors propagate. A decode failure on the first call is
// reported as the failure outcome; a decode failure on a later round
// falls back to the last good payload. Cancellation is checked at
// iteration boundaries and yields the last good payload when one
// exists.
func (p *Pipeline) runRefined(ctx context.Context, stage string, msgs []oracle.Message, temperature float64, maxTokens int, fetch contextFetcher) (refineResult, error) {
	var res refineResult

	for iter := 0; iter <= p.maxRetries; iter++ {
		if err := ctx.Err(); err != nil {
			if res.payload != nil {
				res.notes = append(res.notes, fmt.Sprintf("%s: canceled after %d call(s), keeping last result", stage, res.invocations))
				return res, nil
			}
			return res, err
		}

		raw, err := p.oracle.Complete(ctx, msgs, temperature, maxTokens)
		if err != nil {
			return res, fmt.Errorf("%s stage: %w", stage, err)
		}
		res.invocations++

		decoded := oracle.Decode(raw)
		if !decoded.OK() {
			if res.payload != nil {
				res.notes = append(res.notes, fmt.Sprintf("%s: refinement reply undecodable (%s), keeping previous result", stage, decoded.Failure.Kind))
				return res, nil
			}
			res.failure = decoded.Failure
			return res, nil
		}
		res.payload = decoded.Payload

		needs := asIntSlice(decoded.Payload.Data, "needs_context")
		if len(needs) == 0 || fetch == nil {
			return res, nil
		}
		if iter == p.maxRetries {
			res.notes = append(res.notes, fmt.Sprintf("%s: refinement ceiling reached with %d item(s) still flagged", stage, len(needs)))
			return res, nil
		}

		p.log.Append(stage, "fetching context for %d item(s)", len(needs))
		extra := fetch(ctx, needs)
		if extra == "" {
			res.notes = append(res.notes, fmt.Sprintf("%s: no extra context available for flagged items", stage))
			return res, nil
		}

		msgs = append(msgs,
			oracle.Message{Role: oracle.RoleAssistant, Content: raw},
			oracle.Message{Role: oracle.RoleUser, Content: "Additional context for the items you flagged:\n\n" + extra + "\n\nRevise your previous answer using this context. Same output format."},
		)
	}

	return res, nil
}

// commentContext formats fetched comments for a refinement turn,
// ordered by item number.
func commentContext(comments map[int][]string, reviews map[int][]string) string {
	numbers := make([]int, 0, len(comments)+len(reviews))
	seen := make(map[int]bool)
	for n := range comments {
		numbers = append(numbers, n)
		seen[n] = true
	}
	for n := range reviews {
		if !seen[n] {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)

	var b strings.Builder
	for _, number := range numbers {
		if len(comments[number]) == 0 && len(reviews[number]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "Item #%d:\n", number)
		for _, t := range comments[number] {
			fmt.Fprintf(&b, "  comment: %s\n", strings.ReplaceAll(t, "\n", " "))
		}
		for _, r := range reviews[number] {
			fmt.Fprintf(&b, "  review: %s\n", r)
		}
	}
	return strings.TrimSpace(b.String())
}
