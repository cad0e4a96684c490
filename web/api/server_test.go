package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/ledger"
	"github.com/repopilot/repo-pilot/internal/registry"
)

func TestHealthHandler(t *testing.T) {
	server := NewServer(&mockRegistry{}, nil, ":8080")

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}
}

func TestListRunsHandler(t *testing.T) {
	reg := &mockRegistry{
		runs: []*domain.PipelineRun{
			{RunID: "run-1", TargetRepo: "/repos/a", Status: domain.RunCompleted, StartedAt: time.Now()},
			{RunID: "run-2", TargetRepo: "/repos/b", Status: domain.RunFailed, StartedAt: time.Now()},
		},
	}

	server := NewServer(reg, nil, ":8080")

	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}

	var runs []RunResponse
	json.NewDecoder(w.Body).Decode(&runs)
	if len(runs) != 2 {
		t.Errorf("Run count = %d, want 2", len(runs))
	}
	if runs[0].RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", runs[0].RunID)
	}
}

func TestListRunsLimit(t *testing.T) {
	reg := &mockRegistry{}
	server := NewServer(reg, nil, ":8080")

	req := httptest.NewRequest("GET", "/api/runs", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if reg.lastRunOpts.Limit != 50 {
		t.Errorf("default Limit = %d, want 50", reg.lastRunOpts.Limit)
	}

	req = httptest.NewRequest("GET", "/api/runs?limit=5", nil)
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if reg.lastRunOpts.Limit != 5 {
		t.Errorf("Limit = %d, want 5", reg.lastRunOpts.Limit)
	}

	req = httptest.NewRequest("GET", "/api/runs?limit=banana", nil)
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	server := NewServer(&mockRegistry{}, nil, ":8080")

	req := httptest.NewRequest("GET", "/api/runs/run-missing", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", w.Code)
	}
}

func TestGetRunReturnsFullRecord(t *testing.T) {
	score := 8.5
	reg := &mockRegistry{
		runs: []*domain.PipelineRun{
			{
				RunID:      "run-1",
				TargetRepo: "/repos/a",
				Status:     domain.RunCompleted,
				StartedAt:  time.Now(),
				Review:     &domain.ReviewResult{OverallScore: score, Passed: true},
			},
		},
	}

	server := NewServer(reg, nil, ":8080")

	req := httptest.NewRequest("GET", "/api/runs/run-1", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}

	var run domain.PipelineRun
	json.NewDecoder(w.Body).Decode(&run)
	if run.Review == nil || run.Review.OverallScore != score {
		t.Errorf("Review = %+v, want score %.1f", run.Review, score)
	}
}

func TestListRunBeadsHandler(t *testing.T) {
	started := time.Now()
	reg := &mockRegistry{
		runs: []*domain.PipelineRun{
			{RunID: "run-1", TargetRepo: "/repos/a", Status: domain.RunCompleted, StartedAt: started},
		},
		beads: []*domain.Bead{
			{ID: "bead-1", RunID: "run-1", Name: "Analyze Repository", Category: "analysis", Status: domain.BeadCompleted},
			{ID: "bead-2", RunID: "run-1", Name: "Code Review", Category: "review", Status: domain.BeadCompleted},
		},
	}

	server := NewServer(reg, nil, ":8080")

	req := httptest.NewRequest("GET", "/api/runs/run-1/beads", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}

	var beads []BeadResponse
	json.NewDecoder(w.Body).Decode(&beads)
	if len(beads) != 2 {
		t.Errorf("Bead count = %d, want 2", len(beads))
	}
	if reg.lastBeadQuery.RunID != "run-1" {
		t.Errorf("Query RunID = %q, want run-1", reg.lastBeadQuery.RunID)
	}
}

func TestGetBeadNotFound(t *testing.T) {
	server := NewServer(&mockRegistry{}, nil, ":8080")

	req := httptest.NewRequest("GET", "/api/beads/bead-missing", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", w.Code)
	}
}

func TestStartRunAccepted(t *testing.T) {
	launched := make(chan string, 1)
	launch := func(ctx context.Context, repoPath string) *domain.PipelineRun {
		launched <- repoPath
		return &domain.PipelineRun{RunID: "run-new", TargetRepo: repoPath, Status: domain.RunCompleted, StartedAt: time.Now()}
	}

	server := NewServer(&mockRegistry{}, launch, ":8080")
	go server.sseHub.Run()

	req := httptest.NewRequest("POST", "/api/runs", strings.NewReader(`{"repo_path": "/repos/a"}`))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status = %d, want 202", w.Code)
	}

	select {
	case path := <-launched:
		if path != "/repos/a" {
			t.Errorf("Launched repo = %q, want /repos/a", path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Launcher was not invoked")
	}
}

func TestStartRunRequiresRepoPath(t *testing.T) {
	launch := func(ctx context.Context, repoPath string) *domain.PipelineRun {
		t.Fatal("Launcher should not be invoked")
		return nil
	}

	server := NewServer(&mockRegistry{}, launch, ":8080")

	req := httptest.NewRequest("POST", "/api/runs", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestStartRunWithoutLauncher(t *testing.T) {
	server := NewServer(&mockRegistry{}, nil, ":8080")

	req := httptest.NewRequest("POST", "/api/runs", strings.NewReader(`{"repo_path": "/repos/a"}`))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", w.Code)
	}
}

type mockRegistry struct {
	runs          []*domain.PipelineRun
	beads         []*domain.Bead
	lastRunOpts   ledger.ListOptions
	lastBeadQuery ledger.BeadQuery
}

func (m *mockRegistry) GetRun(runID string) (*domain.PipelineRun, error) {
	for _, r := range m.runs {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, registry.ErrRunNotFound
}

func (m *mockRegistry) ListRuns(opts ledger.ListOptions) ([]*domain.PipelineRun, error) {
	m.lastRunOpts = opts
	return m.runs, nil
}

func (m *mockRegistry) GetBead(beadID string) (*domain.Bead, error) {
	for _, b := range m.beads {
		if b.ID == beadID {
			return b, nil
		}
	}
	return nil, registry.ErrBeadNotFound
}

func (m *mockRegistry) ListBeads(q ledger.BeadQuery) ([]*domain.Bead, error) {
	m.lastBeadQuery = q
	var out []*domain.Bead
	for _, b := range m.beads {
		if b.RunID == q.RunID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockRegistry) BeadSummary(runID string) (*domain.BeadSummary, error) {
	return &domain.BeadSummary{RunID: runID, Total: len(m.beads)}, nil
}
