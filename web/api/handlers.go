package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/ledger"
	"github.com/repopilot/repo-pilot/internal/registry"
)

// RunResponse is the API response for a pipeline run
type RunResponse struct {
	RunID        string  `json:"run_id"`
	TargetRepo   string  `json:"target_repo"`
	BranchName   string  `json:"branch_name,omitempty"`
	Status       string  `json:"status"`
	StartedAt    string  `json:"started_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
	Duration     string  `json:"duration"`
	Error        string  `json:"error,omitempty"`
	Improvements int     `json:"improvements"`
	Applied      int     `json:"changes_applied"`
	ReviewScore  float64 `json:"review_score,omitempty"`
	MergeStatus  string  `json:"merge_status,omitempty"`
	PRURL        string  `json:"pr_url,omitempty"`
	BeadCount    int     `json:"bead_count"`
}

// BeadResponse is the API response for a bead
type BeadResponse struct {
	ID            string         `json:"id"`
	RunID         string         `json:"run_id"`
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	Status        string         `json:"status"`
	StartedAt     *string        `json:"started_at,omitempty"`
	CompletedAt   *string        `json:"completed_at,omitempty"`
	Duration      string         `json:"duration"`
	InputSummary  string         `json:"input_summary,omitempty"`
	OutputSummary string         `json:"output_summary,omitempty"`
	Error         string         `json:"error,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func runToResponse(run *domain.PipelineRun) RunResponse {
	resp := RunResponse{
		RunID:      run.RunID,
		TargetRepo: run.TargetRepo,
		BranchName: run.BranchName,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt.Format(time.RFC3339),
		Duration:   run.Duration.Round(time.Millisecond).String(),
		Error:      run.Error,
		BeadCount:  len(run.Beads),
	}
	if run.CompletedAt != nil {
		t := run.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &t
	}
	resp.Improvements = len(run.Improvements)
	for _, c := range run.CodeChanges {
		if c.Status == domain.ChangeApplied {
			resp.Applied++
		}
	}
	if run.Review != nil {
		resp.ReviewScore = run.Review.OverallScore
	}
	if run.MergeResult != nil {
		resp.MergeStatus = string(run.MergeResult.Status)
		resp.PRURL = run.MergeResult.URL
	}
	if run.Summary != nil && resp.BeadCount == 0 {
		resp.BeadCount = run.Summary.Total
	}
	return resp
}

func beadToResponse(b *domain.Bead) BeadResponse {
	resp := BeadResponse{
		ID:            b.ID,
		RunID:         b.RunID,
		Name:          b.Name,
		Category:      b.Category,
		Status:        string(b.Status),
		Duration:      b.Duration.Round(time.Millisecond).String(),
		InputSummary:  b.InputSummary,
		OutputSummary: b.OutputSummary,
		Error:         b.Error,
		Metadata:      b.Metadata,
	}
	if b.StartedAt != nil {
		t := b.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &t
	}
	if b.CompletedAt != nil {
		t := b.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &t
	}
	return resp
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "ledger": "ok"}
		if p, ok := s.registry.(interface{ Ping() error }); ok {
			if err := p.Ping(); err != nil {
				status["ledger"] = "unavailable"
			}
		}
		writeJSON(w, status)
	}
}

type startRunRequest struct {
	RepoPath string `json:"repo_path"`
}

func (s *Server) runsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.listRuns(w, r)
		case http.MethodPost:
			s.startRun(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

// defaultRunLimit caps /api/runs responses when no limit is given
const defaultRunLimit = 50

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	opts := ledger.ListOptions{
		Status: domain.RunStatus(r.URL.Query().Get("status")),
		Limit:  defaultRunLimit,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		opts.Limit = n
	}
	runs, err := s.registry.ListRuns(opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	responses := make([]RunResponse, len(runs))
	for i, run := range runs {
		responses[i] = runToResponse(run)
	}
	writeJSON(w, responses)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	if s.launch == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline launcher not available")
		return
	}

	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RepoPath == "" {
		writeError(w, http.StatusBadRequest, "repo_path required")
		return
	}

	go func() {
		run := s.launch(context.Background(), req.RepoPath)
		s.Broadcast(SSEEvent{Type: "run_complete", Data: runToResponse(run)})
	}()

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"status": "started", "repo_path": req.RepoPath})
}

func (s *Server) getRunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		// /api/runs/{id}, /api/runs/{id}/beads, /api/runs/{id}/beads/summary
		path := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		if path == "" {
			writeError(w, http.StatusBadRequest, "run ID required")
			return
		}
		runID, sub, _ := strings.Cut(path, "/")

		switch sub {
		case "":
			s.getRun(w, runID)
		case "beads":
			s.listRunBeads(w, r, runID)
		case "beads/summary", "summary":
			s.getRunSummary(w, runID)
		default:
			writeError(w, http.StatusNotFound, "unknown resource")
		}
	}
}

func (s *Server) getRun(w http.ResponseWriter, runID string) {
	run, err := s.registry.GetRun(runID)
	if err != nil {
		if errors.Is(err, registry.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Full record including phase outputs and beads
	writeJSON(w, run)
}

func (s *Server) listRunBeads(w http.ResponseWriter, r *http.Request, runID string) {
	q := ledger.BeadQuery{
		RunID:    runID,
		Status:   domain.BeadStatus(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
	}
	beads, err := s.registry.ListBeads(q)
	if err != nil {
		if errors.Is(err, registry.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	responses := make([]BeadResponse, len(beads))
	for i, b := range beads {
		responses[i] = beadToResponse(b)
	}
	writeJSON(w, responses)
}

func (s *Server) getRunSummary(w http.ResponseWriter, runID string) {
	summary, err := s.registry.BeadSummary(runID)
	if err != nil {
		if errors.Is(err, registry.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, summary)
}

func (s *Server) getBeadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		beadID := strings.TrimPrefix(r.URL.Path, "/api/beads/")
		if beadID == "" {
			writeError(w, http.StatusBadRequest, "bead ID required")
			return
		}

		bead, err := s.registry.GetBead(beadID)
		if err != nil {
			if errors.Is(err, registry.ErrBeadNotFound) {
				writeError(w, http.StatusNotFound, "bead not found")
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, beadToResponse(bead))
	}
}
