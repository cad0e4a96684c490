package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/tracker"
)

// execution is the mutable state threaded through one run's steps
type execution struct {
	runner  *Runner
	run     *domain.PipelineRun
	tracker *tracker.BeadTracker
	git     Git

	applied     int
	totalTests  int
	testsPassed int
	testsFailed int
	score       float64
}

// step is one tracked unit of pipeline work. input renders the bead's
// input summary from the current state; skip, when set, is evaluated
// before the bead starts so a designed skip happens from pending; run
// does the work.
type step struct {
	name     string
	category string
	timeout  time.Duration
	input    func(e *execution) string
	skip     func(e *execution) (reason string, ok bool)
	run      func(ctx context.Context, e *execution) (output string, metadata map[string]any, err error)
}

func steps() []step {
	return []step{
		{
			name:     "Analyze Repository",
			category: "analysis",
			timeout:  5 * time.Minute,
			input:    func(e *execution) string { return "Scanning " + e.run.TargetRepo },
			run:      stepAnalyze,
		},
		{
			name:     "Write Initial Docs",
			category: "analysis",
			timeout:  time.Minute,
			input:    func(e *execution) string { return "Writing specification.md, graph.md, architecture.md" },
			run:      stepWriteInitialDocs,
		},
		{
			name:     "Suggest Improvements",
			category: "suggestions",
			timeout:  5 * time.Minute,
			input:    func(e *execution) string { return "Analyzing for features, security, compliance, integration" },
			run:      stepSuggest,
		},
		{
			name:     "Create Branch",
			category: "git",
			timeout:  time.Minute,
			input:    func(e *execution) string { return e.run.BranchName },
			run:      stepCreateBranch,
		},
		{
			name:     "Execute Code Changes",
			category: "execution",
			timeout:  10 * time.Minute,
			input: func(e *execution) string {
				return fmt.Sprintf("Applying %d improvements", len(e.run.Improvements))
			},
			run: stepApplyChanges,
		},
		{
			name:     "Commit Changes",
			category: "git",
			timeout:  time.Minute,
			input:    func(e *execution) string { return "Committing applied improvements" },
			run:      stepCommitChanges,
		},
		{
			name:     "Code Review",
			category: "review",
			timeout:  5 * time.Minute,
			input:    func(e *execution) string { return fmt.Sprintf("Reviewing %d changes", e.applied) },
			run:      stepReview,
		},
		{
			name:     "Generate Tests",
			category: "testing",
			timeout:  10 * time.Minute,
			input:    func(e *execution) string { return "Generating tests in 4 groups" },
			run:      stepGenerateTests,
		},
		{
			name:     "Execute Tests",
			category: "testing",
			timeout:  10 * time.Minute,
			input:    func(e *execution) string { return fmt.Sprintf("Running %d tests", e.totalTests) },
			run:      stepRunTests,
		},
		{
			name:     "Push & Create PR",
			category: "git",
			timeout:  2 * time.Minute,
			input:    func(e *execution) string { return "Pushing " + e.run.BranchName },
			skip:     skipWithoutRemote,
			run:      stepPushAndPR,
		},
		{
			name:     "Auto-Merge Decision",
			category: "git",
			timeout:  time.Minute,
			input: func(e *execution) string {
				return fmt.Sprintf("Score %.1f vs threshold %.1f", e.score, e.runner.opts.AutoMergeThreshold)
			},
			skip: skipWithoutPullRequest,
			run:  stepAutoMerge,
		},
		{
			name:     "Update Documentation",
			category: "documentation",
			timeout:  5 * time.Minute,
			input:    func(e *execution) string { return "Regenerating specification.md, graph.md, architecture.md" },
			run:      stepUpdateDocs,
		},
	}
}

func stepAnalyze(ctx context.Context, e *execution) (string, map[string]any, error) {
	analysis, err := e.runner.advisor.Analyze(ctx, e.run.TargetRepo)
	if err != nil {
		return "", nil, err
	}
	e.run.RepoAnalysis = analysis
	return fmt.Sprintf("Generated 3 docs, %d files scanned", analysis.Stats.TotalFiles),
		map[string]any{"stats": analysis.Stats}, nil
}

func stepWriteInitialDocs(ctx context.Context, e *execution) (string, map[string]any, error) {
	written, err := writeAnalysisDocs(e.run.TargetRepo, e.run.RepoAnalysis)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Wrote %d docs", len(written)), nil, nil
}

func stepSuggest(ctx context.Context, e *execution) (string, map[string]any, error) {
	improvements, err := e.runner.advisor.Suggest(ctx, e.run.TargetRepo)
	if err != nil {
		return "", nil, err
	}
	e.run.Improvements = improvements

	// Register one pending task bead per improvement; they resolve
	// after changes are applied.
	for _, imp := range improvements {
		task := e.tracker.Create("Task: "+imp.Title, string(imp.Category), imp.Description)
		task.Metadata["improvement_id"] = imp.ID
		task.Metadata["priority"] = imp.Priority
		task.Metadata["files"] = imp.FilesAffected
	}

	return fmt.Sprintf("%d improvements suggested", len(improvements)),
		map[string]any{"count": len(improvements)}, nil
}

func stepCreateBranch(ctx context.Context, e *execution) (string, map[string]any, error) {
	if err := e.git.CreateBranch(ctx, e.run.BranchName); err != nil {
		return "", nil, err
	}
	return "Branch: " + e.run.BranchName, nil, nil
}

func stepApplyChanges(ctx context.Context, e *execution) (string, map[string]any, error) {
	changes, err := e.runner.advisor.Apply(ctx, e.run.TargetRepo, e.run.Improvements)
	if err != nil {
		return "", nil, err
	}
	e.run.CodeChanges = changes
	for _, c := range changes {
		if c.Status == domain.ChangeApplied {
			e.applied++
		}
	}

	// Resolve the task beads registered during suggestion
	for _, bead := range e.tracker.List() {
		impID, ok := bead.Metadata["improvement_id"].(string)
		if !ok {
			continue
		}
		if anyApplied(changes, impID) {
			e.tracker.Complete(bead, "Changes applied", nil)
		} else {
			e.tracker.Skip(bead, "No changes applied")
		}
	}

	return fmt.Sprintf("%d/%d changes applied", e.applied, len(changes)),
		map[string]any{"applied": e.applied, "total": len(changes)}, nil
}

func anyApplied(changes []domain.ChangeResult, improvementID string) bool {
	for _, c := range changes {
		if c.ImprovementID == improvementID && c.Status == domain.ChangeApplied {
			return true
		}
	}
	return false
}

func stepCommitChanges(ctx context.Context, e *execution) (string, map[string]any, error) {
	message := fmt.Sprintf("repo-pilot: apply %d improvements (%s)", e.applied, e.run.RunID)
	sha, committed, err := e.git.CommitAll(ctx, message)
	if err != nil {
		return "", nil, err
	}
	if !committed {
		return "no commit", map[string]any{"status": "nothing_to_commit"}, nil
	}
	return sha, map[string]any{"status": "committed", "sha": sha}, nil
}

func stepReview(ctx context.Context, e *execution) (string, map[string]any, error) {
	review, err := e.runner.advisor.Review(ctx, e.run.TargetRepo, e.run.CodeChanges)
	if err != nil {
		return "", nil, err
	}
	e.run.Review = review
	e.score = review.OverallScore

	verdict := "FAIL"
	if review.Passed {
		verdict = "PASS"
	}
	return fmt.Sprintf("Score: %.1f/10 - %s", review.OverallScore, verdict),
		map[string]any{"score": review.OverallScore, "passed": review.Passed}, nil
}

func stepGenerateTests(ctx context.Context, e *execution) (string, map[string]any, error) {
	files, err := e.runner.advisor.GenerateTests(ctx, e.run.TargetRepo, e.run.CodeChanges)
	if err != nil {
		return "", nil, err
	}
	e.run.TestsGenerated = files
	for _, f := range files {
		e.totalTests += f.TestCount
	}
	return fmt.Sprintf("%d tests in %d groups", e.totalTests, len(files)),
		map[string]any{"total_tests": e.totalTests}, nil
}

func stepRunTests(ctx context.Context, e *execution) (string, map[string]any, error) {
	if err := e.runner.tests.WriteFiles(e.run.TargetRepo, e.run.TestsGenerated); err != nil {
		return "", nil, err
	}
	results := e.runner.tests.Run(ctx, e.run.TargetRepo, e.run.TestsGenerated)
	e.run.TestResults = results
	for _, r := range results {
		e.testsPassed += r.Passed
		e.testsFailed += r.Failed
	}

	// Commit the test suite on the run branch
	message := fmt.Sprintf("repo-pilot: add test suite (%s)", e.run.RunID)
	if _, _, err := e.git.CommitAll(ctx, message); err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("%d passed, %d failed", e.testsPassed, e.testsFailed),
		map[string]any{"passed": e.testsPassed, "failed": e.testsFailed}, nil
}

func skipWithoutRemote(e *execution) (string, bool) {
	if !e.git.EnsureRemote() {
		return "no origin remote configured", true
	}
	return "", false
}

func stepPushAndPR(ctx context.Context, e *execution) (string, map[string]any, error) {
	if err := e.git.PushBranch(ctx, e.run.BranchName); err != nil {
		return "", nil, err
	}

	title := fmt.Sprintf("repo-pilot: %d improvements (%s)", e.applied, e.run.RunID)
	result := e.git.CreatePullRequest(ctx, e.run.BranchName, title, prBody(e))
	e.run.MergeResult = result
	if result.Status == domain.MergeFailed {
		return result.Error, map[string]any{"status": string(result.Status)}, nil
	}
	return result.URL, map[string]any{"url": result.URL}, nil
}

func prBody(e *execution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Repo Pilot - Automated Improvements\n\n")
	fmt.Fprintf(&b, "**Run ID:** `%s`\n", e.run.RunID)
	fmt.Fprintf(&b, "**Improvements Applied:** %d\n", e.applied)
	fmt.Fprintf(&b, "**Review Score:** %.1f/10\n", e.score)
	fmt.Fprintf(&b, "**Tests:** %d passed, %d failed\n\n", e.testsPassed, e.testsFailed)
	b.WriteString("### Changes\n")
	for _, c := range e.run.CodeChanges {
		if c.Status != domain.ChangeApplied {
			continue
		}
		fmt.Fprintf(&b, "- [%s] %s: %s\n", c.ImprovementID, c.File, c.DiffSummary)
	}
	return b.String()
}

func skipWithoutPullRequest(e *execution) (string, bool) {
	if e.run.MergeResult == nil {
		return "no pull request to merge", true
	}
	if e.run.MergeResult.Status == domain.MergeFailed {
		return "pull request creation failed", true
	}
	return "", false
}

func stepAutoMerge(ctx context.Context, e *execution) (string, map[string]any, error) {
	result := e.git.AutoMerge(ctx, e.score, e.runner.opts.AutoMergeThreshold)
	result.Branch = e.run.BranchName
	result.URL = e.run.MergeResult.URL
	e.run.MergeResult = result

	if result.Status == domain.MergeMerged {
		if err := e.git.CheckoutMain(ctx); err != nil {
			return "", nil, err
		}
	}
	return string(result.Status), map[string]any{
		"status": string(result.Status), "score": result.Score, "threshold": result.Threshold,
	}, nil
}

func stepUpdateDocs(ctx context.Context, e *execution) (string, map[string]any, error) {
	updated, err := e.runner.advisor.WriteDocs(ctx, e.run.TargetRepo)
	if err != nil {
		return "", nil, err
	}
	e.run.DocsUpdated = updated

	message := fmt.Sprintf("repo-pilot: update docs after improvements (%s)", e.run.RunID)
	if _, _, err := e.git.CommitAll(ctx, message); err != nil {
		return "", nil, err
	}
	if e.run.MergeResult != nil && e.run.MergeResult.Status == domain.MergeMerged {
		if err := e.git.PushBranch(ctx, "main"); err != nil {
			return "", nil, err
		}
	}
	return fmt.Sprintf("Updated %d docs", len(updated)), nil, nil
}

// writeAnalysisDocs writes the already-generated analysis documents
// into the target repo's docs directory.
func writeAnalysisDocs(repoPath string, analysis *domain.Analysis) ([]string, error) {
	if analysis == nil {
		return nil, nil
	}
	docsDir := filepath.Join(repoPath, "docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating docs dir: %w", err)
	}

	var written []string
	for _, doc := range []struct {
		name    string
		content string
	}{
		{"specification.md", analysis.Specification},
		{"graph.md", analysis.Graph},
		{"architecture.md", analysis.Architecture},
	} {
		if doc.content == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(docsDir, doc.name), []byte(doc.content), 0o644); err != nil {
			return written, fmt.Errorf("writing %s: %w", doc.name, err)
		}
		written = append(written, "docs/"+doc.name)
	}
	return written, nil
}
