// Package advisor drives the model-assisted phases of a pipeline run:
// repository analysis, improvement suggestions, code changes, review,
// and test generation.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/scanner"
)

// Chat is the subset of the llm client the advisor needs
type Chat interface {
	Chat(ctx context.Context, system, user string, jsonMode bool) (string, error)
	ChatJSON(ctx context.Context, system, user string, out any) error
}

// Advisor produces analysis, suggestions, changes, reviews and tests
// for a target repository
type Advisor struct {
	llm       Chat
	threshold float64
	logger    *slog.Logger
}

// New creates an advisor. threshold is the review score required to pass.
func New(llm Chat, threshold float64, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{llm: llm, threshold: threshold, logger: logger}
}

// Analyze scans the repository and generates three documentation
// artifacts: a specification, a relationship graph, and an
// architecture overview.
func (a *Advisor) Analyze(ctx context.Context, repoPath string) (*domain.Analysis, error) {
	a.logger.Info("analyzing repository", "path", repoPath)
	scan, err := scanner.Scan(repoPath)
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}

	repoContext := fmt.Sprintf(
		"## Repository Structure\n```\n%s\n```\n\n## Repository Stats\n%+v\n\n## File Contents\n%s",
		scan.TreeString(), scan.Stats, scan.FileSummary(scanner.MaxContextChars))

	analysis := &domain.Analysis{Stats: scan.Stats}

	docs := []struct {
		name   string
		system string
		dest   *string
	}{
		{"specification", specificationPrompt, &analysis.Specification},
		{"graph", graphPrompt, &analysis.Graph},
		{"architecture", architecturePrompt, &analysis.Architecture},
	}
	for _, doc := range docs {
		a.logger.Info("generating document", "name", doc.name)
		content, err := a.llm.Chat(ctx, doc.system,
			"Analyze this repository and generate the document:\n\n"+repoContext, false)
		if err != nil {
			return nil, fmt.Errorf("generating %s: %w", doc.name, err)
		}
		*doc.dest = content
	}
	return analysis, nil
}

// WriteDocs regenerates the three documentation files under the target
// repository's docs directory and returns the relative paths written.
func (a *Advisor) WriteDocs(ctx context.Context, repoPath string) ([]string, error) {
	analysis, err := a.Analyze(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	docsDir := filepath.Join(repoPath, "docs")
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating docs dir: %w", err)
	}

	var updated []string
	for _, doc := range []struct {
		name    string
		content string
	}{
		{"specification.md", analysis.Specification},
		{"graph.md", analysis.Graph},
		{"architecture.md", analysis.Architecture},
	} {
		if doc.content == "" {
			a.logger.Warn("no content generated", "doc", doc.name)
			continue
		}
		path := filepath.Join(docsDir, doc.name)
		if err := os.WriteFile(path, []byte(doc.content), 0o644); err != nil {
			return updated, fmt.Errorf("writing %s: %w", doc.name, err)
		}
		updated = append(updated, filepath.Join("docs", doc.name))
		a.logger.Info("updated document", "doc", doc.name, "chars", len(doc.content))
	}
	return updated, nil
}
