package advisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/repopilot/repo-pilot/internal/domain"
)

const newFilePrompt = `You are a senior software developer. Generate the complete file content for a new file to be added to the codebase. Return ONLY the file content, no markdown fences or explanation. The code must be production-quality, well-documented, and follow the existing codebase conventions.`

const modifyFilePrompt = `You are a senior software developer. Given an existing file and a requested improvement, produce the modified file content.

Respond with JSON: {"new_content": "...full file content...", "summary": "brief description of changes"}

IMPORTANT:
- Return the COMPLETE file content (not a diff)
- Preserve all existing functionality
- Follow the existing code style
- Add imports at the top if needed
- Do not remove or weaken existing features`

type modifyReply struct {
	NewContent string `json:"new_content"`
	Summary    string `json:"summary"`
}

// Apply generates concrete code for each improvement's changes and
// writes them into the repository. Per-change failures are recorded as
// failed results rather than aborting the pass.
func (a *Advisor) Apply(ctx context.Context, repoPath string, improvements []domain.Improvement) ([]domain.ChangeResult, error) {
	a.logger.Info("applying improvements", "count", len(improvements), "path", repoPath)
	var results []domain.ChangeResult

	for _, imp := range improvements {
		a.logger.Info("executing improvement", "id", imp.ID, "title", imp.Title)
		for _, change := range imp.Changes {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			results = append(results, a.applyChange(ctx, repoPath, imp, change))
		}
	}

	applied := 0
	for _, r := range results {
		if r.Status == domain.ChangeApplied {
			applied++
		}
	}
	a.logger.Info("changes applied", "applied", applied, "total", len(results))
	return results, nil
}

func (a *Advisor) applyChange(ctx context.Context, repoPath string, imp domain.Improvement, change domain.Change) domain.ChangeResult {
	target := filepath.Join(repoPath, change.File)
	original, readErr := os.ReadFile(target)

	if readErr != nil {
		// New file
		content, err := a.llm.Chat(ctx, newFilePrompt, fmt.Sprintf(
			"Create a new file for this improvement:\n\n"+
				"**Improvement:** %s\n**Description:** %s\n**File:** %s\n"+
				"**What it should do:** %s\n**Code hint:** %s",
			imp.Title, imp.Description, change.File, change.Description, orNA(change.CodeHint)), false)
		if err != nil || content == "" {
			a.logger.Error("failed to generate new file", "file", change.File, "error", err)
			return domain.ChangeResult{
				ImprovementID: imp.ID, File: change.File, Action: "create",
				Status: domain.ChangeFailed, DiffSummary: "Failed to generate file content",
			}
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return domain.ChangeResult{
				ImprovementID: imp.ID, File: change.File, Action: "create",
				Status: domain.ChangeFailed, DiffSummary: "Failed to create directory: " + err.Error(),
			}
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return domain.ChangeResult{
				ImprovementID: imp.ID, File: change.File, Action: "create",
				Status: domain.ChangeFailed, DiffSummary: "Failed to write file: " + err.Error(),
			}
		}
		a.logger.Info("created new file", "file", change.File)
		return domain.ChangeResult{
			ImprovementID: imp.ID, File: change.File, Action: "created",
			Status: domain.ChangeApplied, DiffSummary: fmt.Sprintf("New file: %d chars", len(content)),
		}
	}

	// Existing file
	var reply modifyReply
	err := a.llm.ChatJSON(ctx, modifyFilePrompt, fmt.Sprintf(
		"Modify this file for the improvement:\n\n"+
			"**Improvement:** %s\n**Description:** %s\n**What to change:** %s\n**Code hint:** %s\n\n"+
			"**Current file (%s):**\n```\n%s\n```",
		imp.Title, imp.Description, change.Description, orNA(change.CodeHint),
		change.File, string(original)), &reply)
	if err != nil || reply.NewContent == "" {
		a.logger.Error("failed to generate modifications", "file", change.File, "error", err)
		return domain.ChangeResult{
			ImprovementID: imp.ID, File: change.File, Action: "modify",
			Status: domain.ChangeFailed, DiffSummary: "Failed to generate modifications",
		}
	}
	if reply.NewContent == string(original) {
		return domain.ChangeResult{
			ImprovementID: imp.ID, File: change.File, Action: "modify",
			Status: domain.ChangeSkipped, DiffSummary: "No changes needed",
		}
	}
	if err := os.WriteFile(target, []byte(reply.NewContent), 0o644); err != nil {
		return domain.ChangeResult{
			ImprovementID: imp.ID, File: change.File, Action: "modify",
			Status: domain.ChangeFailed, DiffSummary: "Failed to write file: " + err.Error(),
		}
	}
	summary := reply.Summary
	if summary == "" {
		summary = "Modified"
	}
	a.logger.Info("modified file", "file", change.File)
	return domain.ChangeResult{
		ImprovementID: imp.ID, File: change.File, Action: "modified",
		Status: domain.ChangeApplied, DiffSummary: summary,
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
