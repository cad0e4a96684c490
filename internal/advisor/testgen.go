package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/scanner"
)

const testGenSystemPrompt = `You are a senior QA engineer. Generate a complete pytest test file.

Respond with JSON:
{"test_file_content": "...complete Python test file...", "test_count": int, "test_names": ["test_name_1", "test_name_2"]}

REQUIREMENTS:
- Use pytest conventions (functions starting with test_)
- Import from the target repo's modules correctly
- Use fixtures where appropriate
- Include docstrings for each test
- Tests should be runnable standalone
- Mock external API calls, never call real services in tests

FOCUS: %s`

type testGenReply struct {
	TestFileContent string   `json:"test_file_content"`
	TestCount       int      `json:"test_count"`
	TestNames       []string `json:"test_names"`
}

// GenerateTests produces one test file per category covering the
// applied changes.
func (a *Advisor) GenerateTests(ctx context.Context, repoPath string, changes []domain.ChangeResult) ([]domain.TestFile, error) {
	a.logger.Info("generating tests", "path", repoPath)
	scan, err := scanner.Scan(repoPath)
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}
	fileSummary := scan.FileSummary(30_000)

	var lines []string
	for _, c := range changes {
		if c.Status != domain.ChangeApplied {
			continue
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s", c.ImprovementID, c.File, c.DiffSummary))
	}
	changesCtx := strings.Join(lines, "\n")

	var files []domain.TestFile
	for _, group := range domain.Categories() {
		a.logger.Info("generating test group", "group", group)
		var reply testGenReply
		err := a.llm.ChatJSON(ctx,
			fmt.Sprintf(testGenSystemPrompt, groupPrompts[group]),
			fmt.Sprintf("Generate %s tests for this codebase:\n\n## Applied Changes\n%s\n\n## Codebase (key files)\n%s",
				group, changesCtx, fileSummary),
			&reply)
		if err != nil {
			return nil, fmt.Errorf("generating %s tests: %w", group, err)
		}
		files = append(files, domain.TestFile{
			Group:     group,
			File:      fmt.Sprintf("tests/test_%s.py", group),
			TestCount: reply.TestCount,
			TestNames: reply.TestNames,
			Content:   reply.TestFileContent,
		})
	}

	total := 0
	for _, f := range files {
		total += f.TestCount
	}
	a.logger.Info("generated test files", "files", len(files), "tests", total)
	return files, nil
}
