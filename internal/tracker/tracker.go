// Package tracker manages the bead lifecycle for a single pipeline run.
//
// Every transition is recorded in memory and written through to the
// ledger. Persistence is best effort: a store failure is logged and never
// surfaced to the caller, so an audit-store outage cannot abort the
// pipeline. With a nil store the tracker is memory-only.
package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/repopilot/repo-pilot/internal/domain"
)

// BeadSink is the narrow persistence port the tracker writes through to
type BeadSink interface {
	UpsertBead(bead *domain.Bead) error
}

// BeadTracker tracks the beads of one run
type BeadTracker struct {
	runID  string
	store  BeadSink // nil = memory only
	logger *slog.Logger

	mu     sync.Mutex
	beads  []*domain.Bead
	active map[string]time.Time // bead id → monotonic start marker
}

// New creates a tracker for runID. store may be nil.
func New(runID string, store BeadSink, logger *slog.Logger) *BeadTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &BeadTracker{
		runID:  runID,
		store:  store,
		logger: logger,
		active: make(map[string]time.Time),
	}
}

// RunID returns the run this tracker belongs to
func (t *BeadTracker) RunID() string {
	return t.runID
}

func (t *BeadTracker) persist(bead *domain.Bead) {
	if t.store == nil {
		return
	}
	if err := t.store.UpsertBead(bead); err != nil {
		t.logger.Warn("failed to persist bead", "bead", bead.ID, "name", bead.Name, "error", err)
	}
}

// Create allocates a new pending bead and appends it to the run's chain.
// The sequence number records the bead's position in the chain, so the
// ledger can reproduce creation order without trusting timestamps.
func (t *BeadTracker) Create(name, category, inputSummary string) *domain.Bead {
	bead := domain.NewBead(t.runID, name, category)
	bead.InputSummary = inputSummary

	t.mu.Lock()
	t.beads = append(t.beads, bead)
	bead.Seq = len(t.beads)
	t.mu.Unlock()

	t.logger.Info("bead created", "bead", bead.ID, "name", name, "category", category)
	t.persist(bead)
	return bead
}

// Start marks a bead running and records its monotonic start marker
func (t *BeadTracker) Start(bead *domain.Bead) {
	t.mu.Lock()
	if !bead.CanTransition(domain.BeadRunning) {
		t.mu.Unlock()
		t.logger.Warn("illegal bead transition ignored", "bead", bead.ID, "from", bead.Status, "to", domain.BeadRunning)
		return
	}
	bead.Status = domain.BeadRunning
	now := time.Now().UTC()
	bead.StartedAt = &now
	t.active[bead.ID] = now
	t.mu.Unlock()

	t.logger.Info("bead started", "bead", bead.ID, "name", bead.Name)
	t.persist(bead)
}

// Complete marks a bead completed, merging metadata and computing its
// duration from the start marker. A bead completed without ever starting
// records zero duration.
func (t *BeadTracker) Complete(bead *domain.Bead, outputSummary string, metadata map[string]any) {
	t.mu.Lock()
	if !bead.CanTransition(domain.BeadCompleted) {
		t.mu.Unlock()
		t.logger.Warn("illegal bead transition ignored", "bead", bead.ID, "from", bead.Status, "to", domain.BeadCompleted)
		return
	}
	bead.Status = domain.BeadCompleted
	now := time.Now().UTC()
	bead.CompletedAt = &now
	bead.OutputSummary = outputSummary
	for k, v := range metadata {
		bead.Metadata[k] = v
	}
	if start, ok := t.active[bead.ID]; ok {
		bead.Duration = now.Sub(start)
		delete(t.active, bead.ID)
	}
	t.mu.Unlock()

	t.logger.Info("bead completed", "bead", bead.ID, "name", bead.Name, "duration", bead.Duration)
	t.persist(bead)
}

// Fail marks a bead failed with the domain error that caused it. The
// error string here is the represented task's failure, always visible to
// callers; store outages are only ever logged.
func (t *BeadTracker) Fail(bead *domain.Bead, errText string) {
	t.mu.Lock()
	if !bead.CanTransition(domain.BeadFailed) {
		t.mu.Unlock()
		t.logger.Warn("illegal bead transition ignored", "bead", bead.ID, "from", bead.Status, "to", domain.BeadFailed)
		return
	}
	bead.Status = domain.BeadFailed
	now := time.Now().UTC()
	bead.CompletedAt = &now
	bead.Error = errText
	if start, ok := t.active[bead.ID]; ok {
		bead.Duration = now.Sub(start)
		delete(t.active, bead.ID)
	}
	t.mu.Unlock()

	t.logger.Error("bead failed", "bead", bead.ID, "name", bead.Name, "error", errText)
	t.persist(bead)
}

// Skip marks a pending bead skipped with a reason
func (t *BeadTracker) Skip(bead *domain.Bead, reason string) {
	t.mu.Lock()
	if !bead.CanTransition(domain.BeadSkipped) {
		t.mu.Unlock()
		t.logger.Warn("illegal bead transition ignored", "bead", bead.ID, "from", bead.Status, "to", domain.BeadSkipped)
		return
	}
	bead.Status = domain.BeadSkipped
	bead.OutputSummary = reason
	t.mu.Unlock()

	t.logger.Info("bead skipped", "bead", bead.ID, "name", bead.Name, "reason", reason)
	t.persist(bead)
}

// List returns the run's beads in creation order
func (t *BeadTracker) List() []*domain.Bead {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*domain.Bead, len(t.beads))
	copy(out, t.beads)
	return out
}

// Summary aggregates the chain for end-of-run reporting
func (t *BeadTracker) Summary() *domain.BeadSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := &domain.BeadSummary{
		RunID:    t.runID,
		Total:    len(t.beads),
		Statuses: make(map[string]int),
	}
	for _, b := range t.beads {
		summary.Statuses[string(b.Status)]++
		summary.TotalDuration += b.Duration
	}
	return summary
}
