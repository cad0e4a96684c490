package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/ledger"
)

// Reads is the registry surface the API serves from
type Reads interface {
	GetRun(runID string) (*domain.PipelineRun, error)
	ListRuns(opts ledger.ListOptions) ([]*domain.PipelineRun, error)
	GetBead(beadID string) (*domain.Bead, error)
	ListBeads(q ledger.BeadQuery) ([]*domain.Bead, error)
	BeadSummary(runID string) (*domain.BeadSummary, error)
}

// Launcher starts a pipeline run against a repository. It blocks until
// the run finishes; the server invokes it on its own goroutine.
type Launcher func(ctx context.Context, repoPath string) *domain.PipelineRun

// Server is the HTTP API server
type Server struct {
	registry Reads
	launch   Launcher
	addr     string
	mux      *http.ServeMux
	sseHub   *SSEHub
}

// NewServer creates a new API server. launch may be nil for a
// read-only server.
func NewServer(registry Reads, launch Launcher, addr string) *Server {
	s := &Server{
		registry: registry,
		launch:   launch,
		addr:     addr,
		mux:      http.NewServeMux(),
		sseHub:   NewSSEHub(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.healthHandler())
	s.mux.HandleFunc("/api/runs", s.runsHandler())
	s.mux.HandleFunc("/api/runs/", s.getRunHandler())
	s.mux.HandleFunc("/api/beads/", s.getBeadHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
}

// Handler returns the server's root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

// Broadcast sends an event to all SSE clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
