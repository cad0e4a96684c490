package advisor

import (
	"context"
	"fmt"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/scanner"
)

const suggestSystemPrompt = `You are a senior software engineer performing a code review. You MUST respond with valid JSON in this exact format:
{"improvements": [
  {"title": "...", "description": "...", "priority": "high|medium|low",
   "files_affected": ["path/to/file"],
   "changes": [{"file": "path/to/file", "description": "what to change", "code_hint": "brief code snippet or approach"}]}
]}

Suggest 2-4 concrete, actionable improvements. Each change must reference specific files and describe exactly what to modify.

FOCUS: %s`

type suggestReply struct {
	Improvements []domain.Improvement `json:"improvements"`
}

// Suggest analyzes the repository and proposes improvements in each
// category. Improvement IDs are assigned sequentially across categories.
func (a *Advisor) Suggest(ctx context.Context, repoPath string) ([]domain.Improvement, error) {
	a.logger.Info("scanning repository for improvement suggestions", "path", repoPath)
	scan, err := scanner.Scan(repoPath)
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}
	fileSummary := scan.FileSummary(scanner.MaxContextChars)

	var all []domain.Improvement
	counter := 1
	for _, category := range domain.Categories() {
		a.logger.Info("generating improvements", "category", category)
		var reply suggestReply
		err := a.llm.ChatJSON(ctx,
			fmt.Sprintf(suggestSystemPrompt, categoryPrompts[category]),
			fmt.Sprintf("Analyze this codebase and suggest %s improvements:\n\n%s", category, fileSummary),
			&reply)
		if err != nil {
			return nil, fmt.Errorf("suggesting %s improvements: %w", category, err)
		}
		for _, imp := range reply.Improvements {
			imp.ID = fmt.Sprintf("IMP-%03d", counter)
			imp.Category = category
			counter++
			all = append(all, imp)
		}
	}

	a.logger.Info("generated improvements", "total", len(all), "categories", len(domain.Categories()))
	return all, nil
}
