// Package ledger provides durable storage for pipeline runs and beads.
//
// The primary backend is a SQL database (SQLite by default, Postgres via
// the pgx driver). A flat-file store under the runs directory serves as a
// fallback when the database is unreachable.
package ledger

import (
	"errors"
	"fmt"

	"github.com/repopilot/repo-pilot/internal/domain"
)

// ErrNotFound is returned when a run or bead does not exist
var ErrNotFound = errors.New("not found")

// ListOptions specifies filters for listing runs
type ListOptions struct {
	Status domain.RunStatus
	Limit  int
}

// BeadQuery specifies filters for fetching beads
type BeadQuery struct {
	RunID    string
	Status   domain.BeadStatus
	Category string
}

// Store is the durable ledger of runs and beads
type Store interface {
	UpsertRun(run *domain.PipelineRun) error
	GetRun(runID string) (*domain.PipelineRun, error)
	ListRuns(opts ListOptions) ([]*domain.PipelineRun, error)

	UpsertBead(bead *domain.Bead) error
	GetBead(beadID string) (*domain.Bead, error)
	ListBeads(q BeadQuery) ([]*domain.Bead, error)
	BeadSummary(runID string) (*domain.BeadSummary, error)

	Ping() error
	Close() error
}

// Config selects and configures the database backend
type Config struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // file path for sqlite, URL for postgres
}

// Validate checks the config
func (c Config) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown ledger driver: %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("ledger DSN is required")
	}
	return nil
}
