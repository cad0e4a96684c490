package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bead is a single tracked unit of work within a pipeline run.
// It is created pending, transitions through the state machine
// pending → running → completed|failed (or pending → skipped),
// and is never deleted; it is a permanent audit record for its run.
type Bead struct {
	ID            string         `json:"id"`
	RunID         string         `json:"run_id"`
	Seq           int            `json:"seq"`
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	Status        BeadStatus     `json:"status"`
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Duration      time.Duration  `json:"duration_ns"`
	InputSummary  string         `json:"input_summary,omitempty"`
	OutputSummary string         `json:"output_summary,omitempty"`
	Error         string         `json:"error,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// NewBead creates a pending bead with a fresh ID
func NewBead(runID, name, category string) *Bead {
	return &Bead{
		ID:       NewBeadID(),
		RunID:    runID,
		Name:     name,
		Category: category,
		Status:   BeadPending,
		Metadata: make(map[string]any),
	}
}

// NewBeadID returns a short unique bead identifier
func NewBeadID() string {
	return fmt.Sprintf("bead-%s", uuid.NewString()[:8])
}

// CanTransition reports whether moving to next is a legal state change.
// Transitions are monotonic: no bead leaves a terminal state.
func (b *Bead) CanTransition(next BeadStatus) bool {
	if b.Status.Terminal() {
		return false
	}
	switch next {
	case BeadRunning:
		return b.Status == BeadPending
	case BeadCompleted, BeadFailed:
		return b.Status == BeadPending || b.Status == BeadRunning
	case BeadSkipped:
		return b.Status == BeadPending
	}
	return false
}

// BeadSummary aggregates the beads of one run for end-of-run reporting
type BeadSummary struct {
	RunID         string         `json:"run_id"`
	Total         int            `json:"total_beads"`
	Statuses      map[string]int `json:"statuses"`
	TotalDuration time.Duration  `json:"total_duration_ns"`
}
