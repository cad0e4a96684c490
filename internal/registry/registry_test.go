package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/ledger"
)

func openStore(t *testing.T) ledger.Store {
	t.Helper()
	store, err := ledger.Open(ledger.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string) *domain.PipelineRun {
	return &domain.PipelineRun{
		RunID:      id,
		TargetRepo: "/tmp/repo",
		Status:     domain.RunCompleted,
		StartedAt:  time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestGetRunFromDatabase(t *testing.T) {
	store := openStore(t)
	files := ledger.NewFileStore(t.TempDir())
	reg := New(store, files, nil)

	run := sampleRun("run-20260901-120000-aaaaaa")
	require.NoError(t, store.UpsertRun(run))

	bead := domain.NewBead(run.RunID, "Analyze Repository", "analysis")
	bead.Status = domain.BeadCompleted
	require.NoError(t, store.UpsertBead(bead))

	got, err := reg.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	require.Len(t, got.Beads, 1)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 1, got.Summary.Total)
}

func TestGetRunFallsBackToFileStore(t *testing.T) {
	files := ledger.NewFileStore(t.TempDir())
	run := sampleRun("run-20260901-120000-bbbbbb")
	_, err := files.SaveRun(run)
	require.NoError(t, err)

	reg := New(nil, files, nil)
	got, err := reg.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
}

func TestGetRunNotFound(t *testing.T) {
	reg := New(openStore(t), ledger.NewFileStore(t.TempDir()), nil)

	_, err := reg.GetRun("run-20260901-120000-missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetBeadNotFound(t *testing.T) {
	reg := New(openStore(t), ledger.NewFileStore(t.TempDir()), nil)

	_, err := reg.GetBead("bead-deadbeef")
	assert.ErrorIs(t, err, ErrBeadNotFound)
}

func TestListRunsPrefersDatabase(t *testing.T) {
	store := openStore(t)
	files := ledger.NewFileStore(t.TempDir())
	reg := New(store, files, nil)

	require.NoError(t, store.UpsertRun(sampleRun("run-20260901-120000-cccccc")))

	runs, err := reg.ListRuns(ledger.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestListBeadsFileOnlyMode(t *testing.T) {
	files := ledger.NewFileStore(t.TempDir())
	run := sampleRun("run-20260901-120000-dddddd")
	b1 := domain.NewBead(run.RunID, "Analyze Repository", "analysis")
	b2 := domain.NewBead(run.RunID, "Suggest Improvements", "planning")
	b2.Status = domain.BeadFailed
	run.Beads = []*domain.Bead{b1, b2}
	_, err := files.SaveRun(run)
	require.NoError(t, err)

	reg := New(nil, files, nil)
	beads, err := reg.ListBeads(ledger.BeadQuery{RunID: run.RunID, Status: domain.BeadFailed})
	require.NoError(t, err)
	require.Len(t, beads, 1)
	assert.Equal(t, "Suggest Improvements", beads[0].Name)
}

func TestBeadSummaryFileOnlyMode(t *testing.T) {
	files := ledger.NewFileStore(t.TempDir())
	run := sampleRun("run-20260901-120000-eeeeee")
	b := domain.NewBead(run.RunID, "Analyze Repository", "analysis")
	b.Status = domain.BeadCompleted
	b.Duration = 2 * time.Second
	run.Beads = []*domain.Bead{b}
	_, err := files.SaveRun(run)
	require.NoError(t, err)

	reg := New(nil, files, nil)
	summary, err := reg.BeadSummary(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Statuses["completed"])
	assert.Equal(t, 2*time.Second, summary.TotalDuration)
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrRunNotFound, ErrBeadNotFound))
}
