// Package server exposes the triage pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/imkarma/clarity/internal/pipeline"
	"github.com/imkarma/clarity/internal/triage"
)

// Runner is the pipeline surface the handlers call. Satisfied by
// *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, req triage.Request) (*triage.Artifact, error)
	GeneratePatch(ctx context.Context, priority triage.PriorityEntry, plan triage.FixPlan, item triage.WorkItem) (*triage.CodePatch, error)
	Log() *pipeline.ProgressLog
}

// Server routes HTTP requests to the pipeline. A mutex serializes
// triage runs: one run at a time per process, later requests wait.
type Server struct {
	runner Runner
	mux    *http.ServeMux

	runMu sync.Mutex
}

func New(runner Runner) *Server {
	s := &Server{runner: runner, mux: http.NewServeMux()}
	s.mux.HandleFunc("/triage", s.handleTriage)
	s.mux.HandleFunc("/progress", s.handleProgress)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/generate-patch", s.handleGeneratePatch)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe blocks serving on the given port.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	return http.ListenAndServe(addr, s.mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// triageRequest is the POST body for /triage. GET requests carry the
// same fields as query parameters.
type triageRequest struct {
	Repo          string `json:"repo"`
	Limit         int    `json:"limit"`
	IncludeIssues *bool  `json:"include_issues"`
	IncludePRs    *bool  `json:"include_prs"`
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req triageRequest

	switch r.Method {
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
	case http.MethodGet:
		q := r.URL.Query()
		req.Repo = q.Get("repo")
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit %q", v)
				return
			}
			req.Limit = n
		}
		if v := q.Get("include_issues"); v != "" {
			b := v == "true" || v == "1"
			req.IncludeIssues = &b
		}
		if v := q.Get("include_prs"); v != "" {
			b := v == "true" || v == "1"
			req.IncludePRs = &b
		}
	default:
		writeError(w, http.StatusMethodNotAllowed, "method %s not allowed", r.Method)
		return
	}

	if _, _, ok := triage.ParseRepo(req.Repo); !ok {
		writeError(w, http.StatusBadRequest, "repo must be owner/name, got %q", req.Repo)
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}

	run := triage.Request{
		Repo:          req.Repo,
		Limit:         req.Limit,
		IncludeIssues: true,
		IncludePRs:    true,
	}
	if req.IncludeIssues != nil {
		run.IncludeIssues = *req.IncludeIssues
	}
	if req.IncludePRs != nil {
		run.IncludePRs = *req.IncludePRs
	}

	s.runMu.Lock()
	artifact, err := s.runner.Run(r.Context(), run)
	s.runMu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "triage run failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method %s not allowed", r.Method)
		return
	}
	log := s.runner.Log()
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": log.Session(),
		"log":        log.Snapshot(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"oracle_configured": s.runner != nil,
	})
}

// patchRequest is the POST body for /generate-patch.
type patchRequest struct {
	Priority triage.PriorityEntry `json:"priority"`
	Plan     triage.FixPlan       `json:"plan"`
	Item     triage.WorkItem      `json:"item"`
}

func (s *Server) handleGeneratePatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method %s not allowed", r.Method)
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Item.Number == 0 {
		writeError(w, http.StatusBadRequest, "item.number is required")
		return
	}

	patch, err := s.runner.GeneratePatch(r.Context(), req.Priority, req.Plan, req.Item)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"patch":   patch,
	})
}
