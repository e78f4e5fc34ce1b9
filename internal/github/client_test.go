package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imkarma/clarity/internal/triage"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New("test-token", time.Minute, 5*time.Second)
	c.baseURL = srv.URL
	return c
}

func TestFetchItems_FiltersAndTruncates(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/issues" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header: %q", got)
		}
		fmt.Fprint(w, `[
			{"number": 5, "title": "crash on start", "body": "trace", "state": "open", "comments": 2, "updated_at": "2026-08-20T10:00:00Z", "html_url": "https://example.com/5", "labels": [{"name": "bug"}]},
			{"number": 4, "title": "add dark mode", "state": "open", "comments": 0, "updated_at": "2026-08-19T10:00:00Z", "html_url": "https://example.com/4", "labels": [], "pull_request": {"url": "https://example.com/pr/4"}},
			{"number": 3, "title": "docs typo", "body": null, "state": "open", "comments": 1, "updated_at": "2026-08-18T10:00:00Z", "html_url": "https://example.com/3", "labels": []}
		]`)
	}))

	items, err := c.FetchItems(context.Background(), "acme", "widgets", 10, true, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 issues after PR filter, got %d", len(items))
	}
	if items[0].Kind != triage.KindIssue || items[0].Number != 5 {
		t.Errorf("first item: %+v", items[0])
	}
	if items[0].Labels[0] != "bug" {
		t.Errorf("labels: %v", items[0].Labels)
	}
	if items[1].Body != "" {
		t.Errorf("null body should map to empty string, got %q", items[1].Body)
	}
}

func TestFetchItems_PRsOnly(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"number": 8, "title": "fix race", "state": "open", "updated_at": "", "html_url": "", "labels": [], "pull_request": {"url": "x"}},
			{"number": 7, "title": "an issue", "state": "open", "updated_at": "", "html_url": "", "labels": []}
		]`)
	}))

	items, err := c.FetchItems(context.Background(), "acme", "widgets", 10, false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Kind != triage.KindPR {
		t.Fatalf("expected only the PR, got %+v", items)
	}
}

func TestFetchItems_NotFoundIsEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	items, err := c.FetchItems(context.Background(), "acme", "gone", 10, true, true)
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}

func TestFetchItems_ServerErrorPropagates(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.FetchItems(context.Background(), "acme", "widgets", 10, true, true)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestFetchItems_Cached(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `[]`)
	}))

	for i := 0; i < 3; i++ {
		if _, err := c.FetchItems(context.Background(), "acme", "widgets", 10, true, true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("expected a single upstream request, got %d", got)
	}
}

func TestFetchComments_TruncatesAndSkipsFailures(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/acme/widgets/issues/1/comments":
			long := strings.Repeat("x", 500)
			fmt.Fprintf(w, `[{"body": "first"}, {"body": %q}, {"body": "third"}, {"body": "fourth"}]`, long)
		case "/repos/acme/widgets/issues/2/comments":
			http.Error(w, "rate limited", http.StatusForbidden)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	got, err := c.FetchComments(context.Background(), "acme", "widgets", []int{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got[1]) != 3 {
		t.Errorf("expected comments capped at 3, got %d", len(got[1]))
	}
	if len(got[1][1]) != commentBodyLimit {
		t.Errorf("expected body truncated to %d, got %d", commentBodyLimit, len(got[1][1]))
	}
	if len(got[2]) != 0 {
		t.Errorf("failed fetch must yield empty slice, got %v", got[2])
	}
}

func TestFetchReviews(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/widgets/pulls/9/reviews" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `[{"state": "APPROVED"}, {"state": "CHANGES_REQUESTED"}]`)
	}))

	got, err := c.FetchReviews(context.Background(), "acme", "widgets", []int{9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got[9]) != 2 || got[9][0] != "APPROVED" {
		t.Errorf("reviews: %v", got[9])
	}
}

func TestBatchFetch_EmptyInput(t *testing.T) {
	c := New("", time.Minute, time.Second)
	got, err := c.FetchComments(context.Background(), "acme", "widgets", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}
