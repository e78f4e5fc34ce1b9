// Package github is the item-store client: it supplies the run's work
// items and the auxiliary context (comments, reviews) the refinement
// loop asks for. The core only sees the narrow fetch contract here;
// transport details stay inside this package.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/imkarma/clarity/internal/triage"
)

const defaultBaseURL = "https://api.github.com"

// maxBatchFetches bounds how many per-item context fetches run at once.
const maxBatchFetches = 4

// commentBodyLimit truncates comment bodies before they are fed back to
// the oracle as auxiliary context.
const commentBodyLimit = 200

// Client talks to the GitHub REST API with a read-through TTL cache.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	cache   *ttlCache
}

// New creates a client. token may be empty (unauthenticated requests).
func New(token string, cacheTTL, timeout time.Duration) *Client {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		cache:   newTTLCache(cacheTTL),
	}
}

// Close releases the underlying HTTP connections. Safe to call on
// every run exit path.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
	c.cache.clear()
}

// get performs a cached GET. A 404 is treated as "not found, empty
// result" and returns (nil, nil); any other non-200 status or transport
// error is a fault.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if cached := c.cache.get(url); cached != nil {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "clarity-triage")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.cache.set(url, body)
	return body, nil
}

// rawItem mirrors the fields we need from the /issues endpoint, which
// returns both issues and pull requests.
type rawItem struct {
	Number      int     `json:"number"`
	Title       string  `json:"title"`
	Body        *string `json:"body"`
	State       string  `json:"state"`
	Comments    int     `json:"comments"`
	UpdatedAt   string  `json:"updated_at"`
	HTMLURL     string  `json:"html_url"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
}

// FetchItems lists open issues and PRs, most recently updated first,
// truncated to limit.
func (c *Client) FetchItems(ctx context.Context, owner, name string, limit int, includeIssues, includePRs bool) ([]triage.WorkItem, error) {
	if limit <= 0 {
		limit = 50
	}
	url := fmt.Sprintf("%s/repos/%s/%s/issues?state=open&per_page=%d&sort=updated&direction=desc",
		c.baseURL, owner, name, limit)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var raw []rawItem
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}

	var items []triage.WorkItem
	for _, r := range raw {
		if len(items) >= limit {
			break
		}
		isPR := r.PullRequest != nil
		if isPR && !includePRs {
			continue
		}
		if !isPR && !includeIssues {
			continue
		}

		kind := triage.KindIssue
		if isPR {
			kind = triage.KindPR
		}
		labels := make([]string, 0, len(r.Labels))
		for _, l := range r.Labels {
			labels = append(labels, l.Name)
		}
		itemBody := ""
		if r.Body != nil {
			itemBody = *r.Body
		}

		items = append(items, triage.WorkItem{
			Kind:      kind,
			Number:    r.Number,
			Title:     r.Title,
			Body:      itemBody,
			Labels:    labels,
			State:     r.State,
			Comments:  r.Comments,
			UpdatedAt: r.UpdatedAt,
			URL:       r.HTMLURL,
		})
	}

	return items, nil
}

// FetchComments fetches issue comments for the given numbers. Fetches
// run concurrently, bounded by maxBatchFetches, and all complete before
// the call returns. A failed fetch for one number yields an empty slice
// for that number rather than failing the batch.
func (c *Client) FetchComments(ctx context.Context, owner, name string, numbers []int) (map[int][]string, error) {
	return c.batchFetch(ctx, numbers, func(ctx context.Context, number int) ([]string, error) {
		url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, owner, name, number)
		body, err := c.get(ctx, url)
		if err != nil || body == nil {
			return nil, err
		}

		var raw []struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("parse comments: %w", err)
		}

		var texts []string
		for _, cm := range raw {
			if len(texts) >= 3 {
				break
			}
			b := cm.Body
			if len(b) > commentBodyLimit {
				b = b[:commentBodyLimit]
			}
			texts = append(texts, b)
		}
		return texts, nil
	})
}

// FetchReviews fetches review states for the given PR numbers, with the
// same concurrency and skip-on-error behavior as FetchComments.
func (c *Client) FetchReviews(ctx context.Context, owner, name string, prNumbers []int) (map[int][]string, error) {
	return c.batchFetch(ctx, prNumbers, func(ctx context.Context, number int) ([]string, error) {
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/reviews", c.baseURL, owner, name, number)
		body, err := c.get(ctx, url)
		if err != nil || body == nil {
			return nil, err
		}

		var raw []struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("parse reviews: %w", err)
		}

		var states []string
		for _, r := range raw {
			states = append(states, r.State)
		}
		return states, nil
	})
}

// batchFetch dispatches one fetch per number, at most maxBatchFetches
// at a time, and waits for all of them. Per-number errors are dropped:
// the number maps to an empty slice.
func (c *Client) batchFetch(ctx context.Context, numbers []int, fetch func(context.Context, int) ([]string, error)) (map[int][]string, error) {
	results := make(map[int][]string, len(numbers))
	if len(numbers) == 0 {
		return results, nil
	}

	sem := make(chan struct{}, maxBatchFetches)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, number := range numbers {
		wg.Add(1)
		sem <- struct{}{}

		go func(n int) {
			defer wg.Done()
			defer func() { <-sem }()

			texts, err := fetch(ctx, n)
			if err != nil {
				texts = nil
			}

			mu.Lock()
			results[n] = texts
			mu.Unlock()
		}(number)
	}

	wg.Wait()
	return results, nil
}
