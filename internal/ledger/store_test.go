package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopilot/repo-pilot/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(id string) *domain.PipelineRun {
	return &domain.PipelineRun{
		RunID:      id,
		TargetRepo: "/tmp/target",
		BranchName: "repo-pilot/" + id,
		Status:     domain.RunRunning,
		StartedAt:  time.Now().UTC(),
	}
}

func TestDB_UpsertAndGetRun(t *testing.T) {
	db := openTestDB(t)

	run := testRun("run-20260901-120000-abc123")
	run.Improvements = []domain.Improvement{
		{ID: "IMP-001", Category: domain.CategorySecurity, Title: "Add rate limiting"},
	}
	run.Review = &domain.ReviewResult{OverallScore: 8.5, Passed: true}
	require.NoError(t, db.UpsertRun(run))

	got, err := db.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, run.TargetRepo, got.TargetRepo)
	assert.Equal(t, run.BranchName, got.BranchName)
	assert.Equal(t, domain.RunRunning, got.Status)
	require.Len(t, got.Improvements, 1)
	assert.Equal(t, "IMP-001", got.Improvements[0].ID)
	require.NotNil(t, got.Review)
	assert.Equal(t, 8.5, got.Review.OverallScore)
}

func TestDB_GetRun_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetRun("run-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDB_UpsertRun_Idempotent(t *testing.T) {
	db := openTestDB(t)

	run := testRun("run-20260901-120000-abc123")
	require.NoError(t, db.UpsertRun(run))

	now := time.Now().UTC()
	run.Status = domain.RunCompleted
	run.CompletedAt = &now
	run.Duration = 42 * time.Second
	require.NoError(t, db.UpsertRun(run))

	runs, err := db.ListRuns(ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1, "upserting the same run id twice must leave one row")
	assert.Equal(t, domain.RunCompleted, runs[0].Status)
	assert.Equal(t, 42*time.Second, runs[0].Duration)
}

func TestDB_ListRuns(t *testing.T) {
	db := openTestDB(t)

	for i, status := range []domain.RunStatus{domain.RunCompleted, domain.RunFailed, domain.RunCompleted} {
		run := testRun(fmt.Sprintf("run-20260901-12000%d-abc123", i))
		run.Status = status
		require.NoError(t, db.UpsertRun(run))
	}

	all, err := db.ListRuns(ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first: run IDs embed the start timestamp
	assert.Equal(t, "run-20260901-120002-abc123", all[0].RunID)

	completed, err := db.ListRuns(ListOptions{Status: domain.RunCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	limited, err := db.ListRuns(ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDB_UpsertAndGetBead(t *testing.T) {
	db := openTestDB(t)

	run := testRun("run-20260901-120000-abc123")
	require.NoError(t, db.UpsertRun(run))

	started := time.Now().UTC()
	bead := domain.NewBead(run.RunID, "Analyze Repository", "analysis")
	bead.Status = domain.BeadRunning
	bead.StartedAt = &started
	bead.InputSummary = "Scanning /tmp/target"
	bead.Metadata["improvement_id"] = "IMP-001"
	require.NoError(t, db.UpsertBead(bead))

	got, err := db.GetBead(bead.ID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.Equal(t, domain.BeadRunning, got.Status)
	assert.Equal(t, "IMP-001", got.Metadata["improvement_id"])
	require.NotNil(t, got.StartedAt)

	// Update on conflict
	bead.Status = domain.BeadCompleted
	bead.OutputSummary = "3 docs generated"
	bead.Duration = 5 * time.Second
	require.NoError(t, db.UpsertBead(bead))

	got, err = db.GetBead(bead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BeadCompleted, got.Status)
	assert.Equal(t, "3 docs generated", got.OutputSummary)
	assert.Equal(t, 5*time.Second, got.Duration)
}

func TestDB_ListBeads_Filters(t *testing.T) {
	db := openTestDB(t)

	run := testRun("run-20260901-120000-abc123")
	require.NoError(t, db.UpsertRun(run))

	specs := []struct {
		name     string
		category string
		status   domain.BeadStatus
	}{
		{"Analyze Repository", "analysis", domain.BeadCompleted},
		{"Suggest Improvements", "suggestions", domain.BeadCompleted},
		{"Task: Add rate limiting", "security", domain.BeadSkipped},
	}
	for _, s := range specs {
		b := domain.NewBead(run.RunID, s.name, s.category)
		b.Status = s.status
		require.NoError(t, db.UpsertBead(b))
	}

	all, err := db.ListBeads(BeadQuery{RunID: run.RunID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	completed, err := db.ListBeads(BeadQuery{RunID: run.RunID, Status: domain.BeadCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	security, err := db.ListBeads(BeadQuery{RunID: run.RunID, Category: "security"})
	require.NoError(t, err)
	require.Len(t, security, 1)
	assert.Equal(t, "Task: Add rate limiting", security[0].Name)
}

func TestDB_ListBeads_CreationOrder(t *testing.T) {
	db := openTestDB(t)

	run := testRun("run-20260901-120000-abc123")
	require.NoError(t, db.UpsertRun(run))

	// Beads land in the same timestamp tick, with random IDs that sort
	// against their creation order. Only the sequence number orders them.
	names := []string{"Analyze Repository", "Suggest Improvements", "Apply Changes", "Code Review"}
	ids := []string{"bead-zz000001", "bead-mm000002", "bead-ff000003", "bead-aa000004"}
	for i, name := range names {
		b := domain.NewBead(run.RunID, name, "pipeline")
		b.ID = ids[i]
		b.Seq = i + 1
		require.NoError(t, db.UpsertBead(b))
	}

	got, err := db.ListBeads(BeadQuery{RunID: run.RunID})
	require.NoError(t, err)
	require.Len(t, got, len(names))
	for i, b := range got {
		assert.Equal(t, names[i], b.Name)
		assert.Equal(t, i+1, b.Seq)
	}
}

func TestDB_BeadSummary(t *testing.T) {
	db := openTestDB(t)

	run := testRun("run-20260901-120000-abc123")
	require.NoError(t, db.UpsertRun(run))

	for _, status := range []domain.BeadStatus{domain.BeadCompleted, domain.BeadCompleted, domain.BeadFailed} {
		b := domain.NewBead(run.RunID, "step", "execution")
		b.Status = status
		b.Duration = time.Second
		require.NoError(t, db.UpsertBead(b))
	}

	summary, err := db.BeadSummary(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Statuses["completed"])
	assert.Equal(t, 1, summary.Statuses["failed"])
	assert.Equal(t, 3*time.Second, summary.TotalDuration)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(Config{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)

	_, err = Open(Config{Driver: "sqlite"})
	assert.Error(t, err)
}
