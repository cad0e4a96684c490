// Package registry is the read side of the ledger: it resolves runs
// and beads from the database, falling back to the flat-file store
// when the database is unavailable.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/ledger"
)

// ErrRunNotFound is returned when a run exists in neither backend
var ErrRunNotFound = errors.New("run not found")

// ErrBeadNotFound is returned when a bead does not exist
var ErrBeadNotFound = errors.New("bead not found")

// Registry reads runs and beads. store may be nil when the pipeline
// runs memory-only; files is always present.
type Registry struct {
	store  ledger.Store
	files  *ledger.FileStore
	logger *slog.Logger
}

// New creates a registry
func New(store ledger.Store, files *ledger.FileStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, files: files, logger: logger}
}

// GetRun returns a run with its beads and bead summary attached.
// The database is tried first, then the flat-file store.
func (r *Registry) GetRun(runID string) (*domain.PipelineRun, error) {
	if r.store != nil {
		run, err := r.store.GetRun(runID)
		if err == nil {
			r.attachBeads(run)
			return run, nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			r.logger.Warn("database lookup failed, trying file store", "run_id", runID, "error", err)
		}
	}

	run, err := r.files.LoadRun(runID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	return run, nil
}

// ListRuns lists runs newest first, from the database when reachable,
// otherwise from the flat-file store.
func (r *Registry) ListRuns(opts ledger.ListOptions) ([]*domain.PipelineRun, error) {
	if r.store != nil {
		runs, err := r.store.ListRuns(opts)
		if err == nil {
			return runs, nil
		}
		r.logger.Warn("database list failed, using file store", "error", err)
	}
	return r.files.ListRuns(opts)
}

// GetBead returns one bead by ID
func (r *Registry) GetBead(beadID string) (*domain.Bead, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrBeadNotFound, beadID)
	}
	bead, err := r.store.GetBead(beadID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBeadNotFound, beadID)
		}
		return nil, err
	}
	return bead, nil
}

// ListBeads lists a run's beads in creation order
func (r *Registry) ListBeads(q ledger.BeadQuery) ([]*domain.Bead, error) {
	if r.store == nil {
		// Beads travel inside the run document in file-only mode
		run, err := r.GetRun(q.RunID)
		if err != nil {
			return nil, err
		}
		return filterBeads(run.Beads, q), nil
	}
	return r.store.ListBeads(q)
}

// BeadSummary aggregates a run's bead counts by status
func (r *Registry) BeadSummary(runID string) (*domain.BeadSummary, error) {
	if r.store == nil {
		run, err := r.GetRun(runID)
		if err != nil {
			return nil, err
		}
		if run.Summary != nil {
			return run.Summary, nil
		}
		return summarize(runID, run.Beads), nil
	}
	return r.store.BeadSummary(runID)
}

// Ping reports database liveness. File-only mode is always healthy.
func (r *Registry) Ping() error {
	if r.store == nil {
		return nil
	}
	return r.store.Ping()
}

func (r *Registry) attachBeads(run *domain.PipelineRun) {
	beads, err := r.store.ListBeads(ledger.BeadQuery{RunID: run.RunID})
	if err != nil {
		r.logger.Warn("failed to load beads", "run_id", run.RunID, "error", err)
		return
	}
	if len(beads) > 0 {
		run.Beads = beads
	}
	if summary, err := r.store.BeadSummary(run.RunID); err == nil {
		run.Summary = summary
	}
}

func filterBeads(beads []*domain.Bead, q ledger.BeadQuery) []*domain.Bead {
	var out []*domain.Bead
	for _, b := range beads {
		if q.Status != "" && b.Status != q.Status {
			continue
		}
		if q.Category != "" && b.Category != q.Category {
			continue
		}
		out = append(out, b)
	}
	return out
}

func summarize(runID string, beads []*domain.Bead) *domain.BeadSummary {
	summary := &domain.BeadSummary{RunID: runID, Statuses: make(map[string]int)}
	for _, b := range beads {
		summary.Total++
		summary.Statuses[string(b.Status)]++
		summary.TotalDuration += b.Duration
	}
	return summary
}
