package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PipelineRun is the complete record of one pipeline execution against
// one target repository. Phase fields are populated in step order and
// never retroactively cleared.
type PipelineRun struct {
	RunID       string        `json:"run_id"`
	TargetRepo  string        `json:"target_repo"`
	BranchName  string        `json:"branch_name"`
	Status      RunStatus     `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
	Error       string        `json:"error,omitempty"`

	// Phase outputs
	RepoAnalysis   *Analysis      `json:"repo_analysis,omitempty"`
	Improvements   []Improvement  `json:"improvements,omitempty"`
	CodeChanges    []ChangeResult `json:"code_changes,omitempty"`
	Review         *ReviewResult  `json:"review,omitempty"`
	TestsGenerated []TestFile     `json:"tests_generated,omitempty"`
	TestResults    []TestResult   `json:"test_results,omitempty"`
	MergeResult    *MergeResult   `json:"merge_result,omitempty"`
	DocsUpdated    []string       `json:"docs_updated,omitempty"`

	Beads   []*Bead      `json:"beads,omitempty"`
	Summary *BeadSummary `json:"bead_summary,omitempty"`
	LogFile string       `json:"log_file,omitempty"`
}

// NewRunID returns a human-readable, time-sortable run identifier,
// e.g. run-20260901-153012-a1b2c3.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("run-%s-%s", now.UTC().Format("20060102-150405"), suffix)
}

// Analysis holds the documentation artifacts produced by repository analysis
type Analysis struct {
	Specification string    `json:"specification,omitempty"`
	Graph         string    `json:"graph,omitempty"`
	Architecture  string    `json:"architecture,omitempty"`
	Stats         ScanStats `json:"stats"`
}

// ScanStats are aggregate statistics from a repository scan
type ScanStats struct {
	TotalFiles      int            `json:"total_files"`
	AnalyzableFiles int            `json:"analyzable_files"`
	TotalLines      int            `json:"total_lines"`
	Languages       map[string]int `json:"languages,omitempty"`
}
