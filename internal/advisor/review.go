package advisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/repopilot/repo-pilot/internal/domain"
)

const maxReviewChars = 40_000

const reviewSystemPrompt = `You are a principal engineer conducting a thorough code review. Review the changes made to this codebase and score them.

Respond with JSON:
{
  "overall_score": float (1-10, where 7+ means production-ready),
  "scores": {
    "code_quality": float,
    "features": float,
    "security": float,
    "compliance": float,
    "integration": float,
    "test_coverage_potential": float
  },
  "issues": [
    {"severity": "critical|high|medium|low", "file": "path", "line": "approx", "description": "..."}
  ],
  "strengths": ["..."],
  "summary": "2-3 sentence overall assessment"
}

Be rigorous but fair. Score each dimension 1-10.`

// Review scores the applied changes. Passed is true when the overall
// score meets the configured threshold.
func (a *Advisor) Review(ctx context.Context, repoPath string, changes []domain.ChangeResult) (*domain.ReviewResult, error) {
	a.logger.Info("reviewing applied changes", "count", len(changes))

	var sections []string
	for _, change := range changes {
		if change.Status != domain.ChangeApplied {
			continue
		}
		content, err := os.ReadFile(filepath.Join(repoPath, change.File))
		if err != nil {
			continue
		}
		body := string(content)
		if len(body) > 3000 {
			body = body[:3000]
		}
		sections = append(sections, fmt.Sprintf(
			"### %s (%s)\nImprovement: %s\nSummary: %s\n```\n%s\n```",
			change.File, change.Action, change.ImprovementID, change.DiffSummary, body))
	}

	changesText := strings.Join(sections, "\n\n")
	if len(changesText) > maxReviewChars {
		changesText = changesText[:maxReviewChars] + "\n\n... [TRUNCATED]"
	}

	var result domain.ReviewResult
	err := a.llm.ChatJSON(ctx, reviewSystemPrompt,
		"Review these code changes:\n\n## Changes Applied\n"+changesText, &result)
	if err != nil {
		return nil, fmt.Errorf("reviewing changes: %w", err)
	}

	result.Passed = result.OverallScore >= a.threshold
	a.logger.Info("review complete",
		"score", result.OverallScore, "passed", result.Passed, "issues", len(result.Issues))
	return &result, nil
}
