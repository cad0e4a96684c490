package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/repopilot/repo-pilot/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DB is the SQL-backed ledger. One implementation serves both SQLite
// and Postgres; queries are written with ? placeholders and rebound
// for Postgres.
type DB struct {
	db     *sql.DB
	driver string
}

// Open opens the database for the configured backend and runs migrations
func Open(cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var driverName, schema string
	switch cfg.Driver {
	case "sqlite":
		driverName, schema = "sqlite", sqliteSchema
	case "postgres":
		driverName, schema = "pgx", postgresSchema
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, err
		}
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &DB{db: db, driver: cfg.Driver}, nil
}

// Ping checks database liveness
func (d *DB) Ping() error {
	return d.db.Ping()
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// rebind converts ? placeholders to $N for Postgres
func (d *DB) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// UpsertRun inserts or updates a run record. Mutable fields are
// overwritten on conflict; the row is never removed.
func (d *DB) UpsertRun(run *domain.PipelineRun) error {
	_, err := d.db.Exec(d.rebind(`
		INSERT INTO pipeline_runs (
			run_id, target_repo, branch_name, status,
			started_at, completed_at, duration_ns, error,
			repo_analysis, improvements, code_changes, review,
			tests_generated, test_results, merge_result, docs_updated, log_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at,
			duration_ns = excluded.duration_ns,
			error = excluded.error,
			repo_analysis = excluded.repo_analysis,
			improvements = excluded.improvements,
			code_changes = excluded.code_changes,
			review = excluded.review,
			tests_generated = excluded.tests_generated,
			test_results = excluded.test_results,
			merge_result = excluded.merge_result,
			docs_updated = excluded.docs_updated,
			log_file = excluded.log_file
	`),
		run.RunID,
		run.TargetRepo,
		run.BranchName,
		string(run.Status),
		run.StartedAt,
		run.CompletedAt,
		int64(run.Duration),
		nullString(run.Error),
		marshalJSON(run.RepoAnalysis),
		marshalJSON(run.Improvements),
		marshalJSON(run.CodeChanges),
		marshalJSON(run.Review),
		marshalJSON(run.TestsGenerated),
		marshalJSON(run.TestResults),
		marshalJSON(run.MergeResult),
		marshalJSON(run.DocsUpdated),
		run.LogFile,
	)
	return err
}

const runColumns = `run_id, target_repo, branch_name, status, started_at, completed_at,
	duration_ns, error, repo_analysis, improvements, code_changes, review,
	tests_generated, test_results, merge_result, docs_updated, log_file`

// GetRun retrieves a run by ID. Returns ErrNotFound for a missing run.
func (d *DB) GetRun(runID string) (*domain.PipelineRun, error) {
	row := d.db.QueryRow(d.rebind(
		`SELECT `+runColumns+` FROM pipeline_runs WHERE run_id = ?`), runID)

	run, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// ListRuns returns runs matching the options, newest first
func (d *DB) ListRuns(opts ListOptions) ([]*domain.PipelineRun, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs WHERE 1=1`
	var args []any

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}

	query += " ORDER BY run_id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := d.db.Query(d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpsertBead inserts or updates a bead. Called on every state change.
func (d *DB) UpsertBead(bead *domain.Bead) error {
	_, err := d.db.Exec(d.rebind(`
		INSERT INTO beads (
			id, run_id, seq, name, category, status,
			started_at, completed_at, duration_ns,
			input_summary, output_summary, error, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			duration_ns = excluded.duration_ns,
			output_summary = excluded.output_summary,
			error = excluded.error,
			metadata = excluded.metadata
	`),
		bead.ID,
		bead.RunID,
		bead.Seq,
		bead.Name,
		bead.Category,
		string(bead.Status),
		bead.StartedAt,
		bead.CompletedAt,
		int64(bead.Duration),
		bead.InputSummary,
		bead.OutputSummary,
		nullString(bead.Error),
		marshalJSON(bead.Metadata),
	)
	return err
}

const beadColumns = `id, run_id, seq, name, category, status, started_at, completed_at,
	duration_ns, input_summary, output_summary, error, metadata`

// GetBead retrieves a single bead by ID
func (d *DB) GetBead(beadID string) (*domain.Bead, error) {
	row := d.db.QueryRow(d.rebind(
		`SELECT `+beadColumns+` FROM beads WHERE id = ?`), beadID)

	bead, err := scanBead(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return bead, err
}

// ListBeads returns beads matching the query, in creation order
func (d *DB) ListBeads(q BeadQuery) ([]*domain.Bead, error) {
	query := `SELECT ` + beadColumns + ` FROM beads WHERE 1=1`
	var args []any

	if q.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, q.RunID)
	}
	if q.Status != "" {
		query += " AND status = ?"
		args = append(args, string(q.Status))
	}
	if q.Category != "" {
		query += " AND category = ?"
		args = append(args, q.Category)
	}

	query += " ORDER BY seq ASC, id ASC"

	rows, err := d.db.Query(d.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beads []*domain.Bead
	for rows.Next() {
		bead, err := scanBead(rows.Scan)
		if err != nil {
			return nil, err
		}
		beads = append(beads, bead)
	}

	return beads, rows.Err()
}

// BeadSummary aggregates bead counts and total duration for a run
func (d *DB) BeadSummary(runID string) (*domain.BeadSummary, error) {
	rows, err := d.db.Query(d.rebind(`
		SELECT status, count(*), coalesce(sum(duration_ns), 0)
		FROM beads WHERE run_id = ? GROUP BY status
	`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &domain.BeadSummary{
		RunID:    runID,
		Statuses: make(map[string]int),
	}
	for rows.Next() {
		var status string
		var count int
		var durationNS int64
		if err := rows.Scan(&status, &count, &durationNS); err != nil {
			return nil, err
		}
		summary.Statuses[status] = count
		summary.Total += count
		summary.TotalDuration += time.Duration(durationNS)
	}

	return summary, rows.Err()
}

func scanRun(scan func(dest ...any) error) (*domain.PipelineRun, error) {
	var run domain.PipelineRun
	var status string
	var startedAt, completedAt sql.NullTime
	var durationNS sql.NullInt64
	var errText, branch, logFile sql.NullString
	var analysis, improvements, changes, review, testsGen, testResults, merge, docs string

	err := scan(
		&run.RunID, &run.TargetRepo, &branch, &status, &startedAt, &completedAt,
		&durationNS, &errText, &analysis, &improvements, &changes, &review,
		&testsGen, &testResults, &merge, &docs, &logFile,
	)
	if err != nil {
		return nil, err
	}

	run.Status = domain.RunStatus(status)
	run.BranchName = branch.String
	run.Error = errText.String
	run.LogFile = logFile.String
	if startedAt.Valid {
		run.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if durationNS.Valid {
		run.Duration = time.Duration(durationNS.Int64)
	}

	if err := unmarshalJSON(analysis, &run.RepoAnalysis); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(improvements, &run.Improvements); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(changes, &run.CodeChanges); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(review, &run.Review); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(testsGen, &run.TestsGenerated); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(testResults, &run.TestResults); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(merge, &run.MergeResult); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(docs, &run.DocsUpdated); err != nil {
		return nil, err
	}

	return &run, nil
}

func scanBead(scan func(dest ...any) error) (*domain.Bead, error) {
	var bead domain.Bead
	var status string
	var startedAt, completedAt sql.NullTime
	var durationNS sql.NullInt64
	var errText sql.NullString
	var metadata string

	err := scan(
		&bead.ID, &bead.RunID, &bead.Seq, &bead.Name, &bead.Category, &status,
		&startedAt, &completedAt, &durationNS,
		&bead.InputSummary, &bead.OutputSummary, &errText, &metadata,
	)
	if err != nil {
		return nil, err
	}

	bead.Status = domain.BeadStatus(status)
	bead.Error = errText.String
	if startedAt.Valid {
		t := startedAt.Time
		bead.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		bead.CompletedAt = &t
	}
	if durationNS.Valid {
		bead.Duration = time.Duration(durationNS.Int64)
	}
	if err := unmarshalJSON(metadata, &bead.Metadata); err != nil {
		return nil, err
	}

	return &bead, nil
}

func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func unmarshalJSON(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
