// Package scaffold audits a repository against a best-practice file
// checklist and generates what is missing: docs, CI workflow, PR and
// issue templates, tooling, and a test skeleton.
package scaffold

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/repopilot/repo-pilot/internal/advisor"
	"github.com/repopilot/repo-pilot/internal/scanner"
)

// Item is one best-practice checklist entry
type Item struct {
	Path        string `json:"path"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Note        string `json:"note,omitempty"`
}

var checklist = []Item{
	{Path: "README.md", Category: "docs", Description: "Project overview, setup, usage"},
	{Path: "CONTRIBUTING.md", Category: "docs", Description: "Contribution guidelines"},
	{Path: "SECURITY.md", Category: "docs", Description: "Vulnerability reporting process"},
	{Path: "CODE_OF_CONDUCT.md", Category: "docs", Description: "Community standards"},
	{Path: "CHANGELOG.md", Category: "docs", Description: "Version history"},
	{Path: "LICENSE", Category: "legal", Description: "License file"},
	{Path: ".env.example", Category: "config", Description: "Required environment variables"},
	{Path: "Makefile", Category: "tooling", Description: "Common commands"},
	{Path: "docs/specification.md", Category: "docs", Description: "Functional specification"},
	{Path: "docs/architecture.md", Category: "docs", Description: "System architecture"},
	{Path: "docs/graph.md", Category: "docs", Description: "Dependency/flow graphs"},
	{Path: "docs/adr/001-template.md", Category: "docs", Description: "Architecture decision record template"},
	{Path: ".github/workflows/ci.yml", Category: "ci", Description: "CI pipeline"},
	{Path: ".github/PULL_REQUEST_TEMPLATE.md", Category: "ci", Description: "PR template"},
	{Path: ".github/ISSUE_TEMPLATE/bug_report.md", Category: "ci", Description: "Bug report template"},
	{Path: ".github/ISSUE_TEMPLATE/feature_request.md", Category: "ci", Description: "Feature request template"},
}

// Stack is what was detected about the repository's toolchain
type Stack struct {
	Languages      []string `json:"languages"`
	Frameworks     []string `json:"frameworks"`
	PackageManager string   `json:"package_manager,omitempty"`
	TestFramework  string   `json:"test_framework,omitempty"`
	HasTests       bool     `json:"has_tests"`
	HasCI          bool     `json:"has_ci"`
	HasDocker      bool     `json:"has_docker"`
}

// PrimaryLanguage returns the dominant language, defaulting to python
func (s Stack) PrimaryLanguage() string {
	if len(s.Languages) > 0 {
		return s.Languages[0]
	}
	return "python"
}

// Audit lists which checklist files exist and which are missing
type Audit struct {
	Existing []Item `json:"existing"`
	Missing  []Item `json:"missing"`
}

// Report is the outcome of a scaffolding pass
type Report struct {
	Stack   Stack    `json:"stack"`
	Audit   Audit    `json:"audit"`
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// Scaffolder generates missing best-practice files
type Scaffolder struct {
	llm    advisor.Chat
	logger *slog.Logger
}

// New creates a scaffolder
func New(llm advisor.Chat, logger *slog.Logger) *Scaffolder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scaffolder{llm: llm, logger: logger}
}

// Scaffold audits repoPath and generates every missing checklist file.
// Existing files are never overwritten.
func (s *Scaffolder) Scaffold(ctx context.Context, repoPath string) (*Report, error) {
	s.logger.Info("scaffolding repository", "path", repoPath)
	scan, err := scanner.Scan(repoPath)
	if err != nil {
		return nil, fmt.Errorf("scanning repository: %w", err)
	}

	stack := detectStack(scan)
	s.logger.Info("detected stack",
		"languages", stack.Languages, "package_manager", stack.PackageManager)

	audit := auditRepo(repoPath)
	s.logger.Info("audit complete",
		"existing", len(audit.Existing), "missing", len(audit.Missing))

	report := &Report{Stack: stack, Audit: audit}
	if len(audit.Missing) == 0 {
		s.logger.Info("repository already has all best-practice files")
		return report, nil
	}

	stackJSON, _ := json.MarshalIndent(stack, "", "  ")
	repoContext := fmt.Sprintf(
		"## Repository: %s\n\n## Detected Stack\n```json\n%s\n```\n\n## File Tree\n```\n%s\n```\n\n## File Contents (sample)\n%s",
		filepath.Base(repoPath), stackJSON, scan.TreeString(), scan.FileSummary(30_000))

	missing := make(map[string]bool, len(audit.Missing))
	for _, m := range audit.Missing {
		missing[m.Path] = true
	}

	g := &generator{s: s, repo: repoPath, ctx: ctx, repoContext: repoContext,
		stack: stack, missing: missing, report: report}
	g.docs()
	g.ci()
	g.tooling()
	g.templates()
	g.testsSkeleton()

	s.logger.Info("scaffolding complete",
		"created", len(report.Created), "skipped", len(report.Skipped))
	return report, nil
}

func detectStack(scan *scanner.Result) Stack {
	extLines := make(map[string]int)
	for _, f := range scan.Files {
		extLines[f.Ext] += f.Lines
	}
	has := func(name string) bool {
		for _, f := range scan.Tree {
			if strings.Contains(f, name) {
				return true
			}
		}
		return false
	}

	var stack Stack
	if extLines[".py"] > 0 {
		stack.Languages = append(stack.Languages, "python")
	}
	if extLines[".ts"] > 0 || extLines[".tsx"] > 0 {
		stack.Languages = append(stack.Languages, "typescript")
	}
	if extLines[".js"] > 0 || extLines[".jsx"] > 0 {
		stack.Languages = append(stack.Languages, "javascript")
	}
	if extLines[".go"] > 0 {
		stack.Languages = append(stack.Languages, "go")
	}

	if has("fastapi") || has("FastAPI") {
		stack.Frameworks = append(stack.Frameworks, "fastapi")
	}
	if has("flask") {
		stack.Frameworks = append(stack.Frameworks, "flask")
	}
	if has("django") {
		stack.Frameworks = append(stack.Frameworks, "django")
	}
	if has("package.json") {
		stack.Frameworks = append(stack.Frameworks, "node")
	}

	switch {
	case has("pyproject.toml"):
		stack.PackageManager = "pyproject.toml"
	case has("requirements.txt"):
		stack.PackageManager = "requirements.txt"
	case has("package.json"):
		stack.PackageManager = "package.json"
	case has("go.mod"):
		stack.PackageManager = "go.mod"
	}

	for _, f := range scan.Tree {
		if strings.Contains(strings.ToLower(f), "test") {
			stack.HasTests = true
			break
		}
	}
	switch {
	case has("pytest") || has("conftest.py"):
		stack.TestFramework = "pytest"
	case has("jest.config"):
		stack.TestFramework = "jest"
	case has("vitest"):
		stack.TestFramework = "vitest"
	}

	stack.HasCI = has(".github/workflows") || has(".gitlab-ci") || has("Jenkinsfile")
	stack.HasDocker = has("Dockerfile") || has("docker-compose")
	return stack
}

func auditRepo(repoPath string) Audit {
	var audit Audit
	for _, item := range checklist {
		full := filepath.Join(repoPath, item.Path)
		if _, err := os.Stat(full); err != nil {
			audit.Missing = append(audit.Missing, item)
			continue
		}
		// A thin README counts as missing
		if item.Path == "README.md" {
			if content, err := os.ReadFile(full); err == nil &&
				strings.Count(string(content), "\n") < 20 {
				item.Note = "exists but thin (<20 lines)"
				audit.Missing = append(audit.Missing, item)
				continue
			}
		}
		audit.Existing = append(audit.Existing, item)
	}

	if info, err := os.Stat(filepath.Join(repoPath, "tests")); err != nil || !info.IsDir() {
		audit.Missing = append(audit.Missing, Item{
			Path: "tests/", Category: "testing",
			Description: "Test directory with unit/integration structure",
		})
	}
	return audit
}

// validYAML reports whether content parses as a YAML document
func validYAML(content string) bool {
	var doc map[string]any
	return yaml.Unmarshal([]byte(content), &doc) == nil
}
