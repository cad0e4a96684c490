package domain

// Improvement is a suggested code improvement produced by the advisor.
// The orchestrator treats the inner shape as opaque beyond id, category
// and title, which it needs for bead bookkeeping.
type Improvement struct {
	ID            string              `json:"id"`
	Category      ImprovementCategory `json:"category"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Priority      string              `json:"priority,omitempty"`
	FilesAffected []string            `json:"files_affected,omitempty"`
	Changes       []Change            `json:"changes,omitempty"`
}

// Change is one atomic change descriptor within an improvement
type Change struct {
	File        string `json:"file"`
	Description string `json:"description"`
	CodeHint    string `json:"code_hint,omitempty"`
}

// ChangeResult records the outcome of applying one change
type ChangeResult struct {
	ImprovementID string       `json:"improvement_id"`
	File          string       `json:"file"`
	Action        string       `json:"action"`
	Status        ChangeStatus `json:"status"`
	DiffSummary   string       `json:"diff_summary,omitempty"`
}

// ReviewResult is a scored code review assessment
type ReviewResult struct {
	OverallScore float64            `json:"overall_score"`
	Scores       map[string]float64 `json:"scores,omitempty"`
	Issues       []ReviewIssue      `json:"issues,omitempty"`
	Strengths    []string           `json:"strengths,omitempty"`
	Passed       bool               `json:"passed"`
	Summary      string             `json:"summary,omitempty"`
}

// ReviewIssue is a single finding from the review
type ReviewIssue struct {
	Severity    string `json:"severity"`
	File        string `json:"file,omitempty"`
	Line        string `json:"line,omitempty"`
	Description string `json:"description"`
}

// TestFile is one generated test file for a test group
type TestFile struct {
	Group     ImprovementCategory `json:"group"`
	File      string              `json:"file"`
	TestCount int                 `json:"test_count"`
	TestNames []string            `json:"test_names,omitempty"`
	Content   string              `json:"content,omitempty"`
}

// TestResult is the outcome of executing one generated test group
type TestResult struct {
	Group    ImprovementCategory `json:"group"`
	File     string              `json:"file"`
	Total    int                 `json:"total"`
	Passed   int                 `json:"passed"`
	Failed   int                 `json:"failed"`
	Errors   []string            `json:"errors,omitempty"`
	Output   string              `json:"output,omitempty"`
	ExitCode int                 `json:"exit_code"`
}

// MergeResult records the push/PR/auto-merge outcome
type MergeResult struct {
	Status    MergeStatus `json:"status"`
	Branch    string      `json:"branch,omitempty"`
	URL       string      `json:"url,omitempty"`
	SHA       string      `json:"sha,omitempty"`
	Score     float64     `json:"score,omitempty"`
	Threshold float64     `json:"threshold,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Error     string      `json:"error,omitempty"`
}
