package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// generator carries the shared state of one scaffolding pass
type generator struct {
	s           *Scaffolder
	repo        string
	ctx         context.Context
	repoContext string
	stack       Stack
	missing     map[string]bool
	report      *Report
}

// writeFile writes rel, creating parent dirs. Existing files are skipped.
func (g *generator) writeFile(rel, content string) {
	full := filepath.Join(g.repo, rel)
	if _, err := os.Stat(full); err == nil {
		g.report.Skipped = append(g.report.Skipped, rel)
		return
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		g.s.logger.Error("failed to create directory", "path", rel, "error", err)
		g.report.Skipped = append(g.report.Skipped, rel)
		return
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		g.s.logger.Error("failed to write file", "path", rel, "error", err)
		g.report.Skipped = append(g.report.Skipped, rel)
		return
	}
	g.report.Created = append(g.report.Created, rel)
	g.s.logger.Info("created", "path", rel)
}

// generate asks the model for a file's content and writes it
func (g *generator) generate(rel, system string) {
	content, err := g.s.llm.Chat(g.ctx, system,
		fmt.Sprintf("Generate %s:\n\n%s", rel, g.repoContext), false)
	if err != nil {
		g.s.logger.Error("generation failed", "path", rel, "error", err)
		g.report.Skipped = append(g.report.Skipped, rel)
		return
	}
	g.writeFile(rel, stripFences(content)+"\n")
}

func (g *generator) docs() {
	if g.missing["README.md"] {
		g.generate("README.md",
			"You are a senior technical writer. Generate a comprehensive README.md for this project. "+
				"Include: project title, badges (CI, license), description, features, "+
				"prerequisites, installation, quick start, configuration (.env vars), "+
				"project structure, API docs (if applicable), testing, deployment, "+
				"contributing link, license. Use clean markdown with emojis sparingly.")
	}
	if g.missing["CONTRIBUTING.md"] {
		g.generate("CONTRIBUTING.md",
			"Generate a CONTRIBUTING.md file. Include: how to set up the dev environment, "+
				"branch naming conventions, commit message format (conventional commits), "+
				"PR process, code style guidelines, testing requirements, "+
				"and issue/bug reporting. Target language: "+g.stack.PrimaryLanguage()+".")
	}
	if g.missing["SECURITY.md"] {
		g.writeFile("SECURITY.md", securityTemplate)
	}
	if g.missing["CODE_OF_CONDUCT.md"] {
		g.writeFile("CODE_OF_CONDUCT.md", codeOfConductTemplate)
	}
	if g.missing["CHANGELOG.md"] {
		g.writeFile("CHANGELOG.md", changelogTemplate)
	}
	if g.missing["docs/specification.md"] {
		g.generate("docs/specification.md",
			"You are a senior technical writer. Generate a comprehensive specification.md. "+
				"Include: project overview, functional requirements (table with IDs), "+
				"data models, API contracts, behaviors, guardrails, acceptance criteria.")
	}
	if g.missing["docs/architecture.md"] {
		g.generate("docs/architecture.md",
			"You are a principal engineer. Generate architecture.md. "+
				"Include: system overview, layer diagram, component descriptions, "+
				"data layer, external deps, security, scalability, error handling.")
	}
	if g.missing["docs/graph.md"] {
		g.generate("docs/graph.md",
			"You are a software architect. Generate graph.md with Mermaid diagrams. "+
				"Include: component dependency graph, data flow, sequence diagrams. "+
				"Use ```mermaid code blocks.")
	}
	if g.missing["docs/adr/001-template.md"] {
		g.writeFile("docs/adr/001-template.md", adrTemplate)
	}
}

func (g *generator) ci() {
	if !g.missing[".github/workflows/ci.yml"] {
		return
	}
	content, err := g.s.llm.Chat(g.ctx,
		fmt.Sprintf("Generate a GitHub Actions CI workflow (.github/workflows/ci.yml) for a %s project. "+
			"Include:\n"+
			"- Trigger on push to main and pull_request\n"+
			"- Matrix testing if appropriate\n"+
			"- Steps: checkout, setup language, install deps, lint, type-check, test, coverage\n"+
			"- Package manager: %s\n"+
			"- Test framework: %s\n"+
			"Output ONLY the YAML file content, no markdown fences.",
			g.stack.PrimaryLanguage(),
			orAuto(g.stack.PackageManager), orAuto(g.stack.TestFramework)),
		"Generate ci.yml for:\n\n"+g.repoContext, false)
	if err != nil {
		g.s.logger.Error("CI generation failed", "error", err)
		g.report.Skipped = append(g.report.Skipped, ".github/workflows/ci.yml")
		return
	}
	ci := stripFences(content)
	if !validYAML(ci) {
		g.s.logger.Warn("generated CI workflow is not valid YAML, skipping")
		g.report.Skipped = append(g.report.Skipped, ".github/workflows/ci.yml")
		return
	}
	g.writeFile(".github/workflows/ci.yml", ci+"\n")
}

func (g *generator) tooling() {
	if g.missing["Makefile"] {
		g.generate("Makefile",
			fmt.Sprintf("Generate a Makefile for a %s project. Include targets:\n"+
				"- help (default, lists targets)\n"+
				"- install (install dependencies)\n"+
				"- dev (start dev server)\n"+
				"- test (run tests)\n"+
				"- lint (run linter)\n"+
				"- format (run formatter)\n"+
				"- typecheck (run type checker)\n"+
				"- clean (remove build artifacts)\n"+
				"- docker-up / docker-down (if applicable)\n"+
				"Package manager: %s. Test framework: %s. "+
				"Output ONLY the Makefile content, no markdown fences. Use tabs for indentation.",
				g.stack.PrimaryLanguage(),
				orAuto(g.stack.PackageManager), orAuto(g.stack.TestFramework)))
	}
	if g.missing[".env.example"] {
		g.generate(".env.example",
			"Generate a .env.example file for this project. "+
				"List all environment variables the project needs based on the code, "+
				"with placeholder values and comments explaining each. "+
				"Output ONLY the file content, no markdown fences.")
	}
}

func (g *generator) templates() {
	if g.missing[".github/PULL_REQUEST_TEMPLATE.md"] {
		g.writeFile(".github/PULL_REQUEST_TEMPLATE.md", prTemplate)
	}
	if g.missing[".github/ISSUE_TEMPLATE/bug_report.md"] {
		g.writeFile(".github/ISSUE_TEMPLATE/bug_report.md", bugReportTemplate)
	}
	if g.missing[".github/ISSUE_TEMPLATE/feature_request.md"] {
		g.writeFile(".github/ISSUE_TEMPLATE/feature_request.md", featureRequestTemplate)
	}
}

func (g *generator) testsSkeleton() {
	if !g.missing["tests/"] {
		return
	}
	if g.stack.PrimaryLanguage() != "python" {
		g.writeFile("tests/.gitkeep", "")
		return
	}
	g.writeFile("tests/__init__.py", "")
	g.generate("tests/conftest.py",
		"Generate a pytest conftest.py with useful shared fixtures for this project. "+
			"Include fixtures for: temporary directories, mock environment variables, "+
			"sample data, and any project-specific fixtures based on the code. "+
			"Output ONLY Python code, no markdown fences.")
	g.writeFile("tests/unit/__init__.py", "")
	g.writeFile("tests/integration/__init__.py", "")
	g.generate("tests/unit/test_core.py",
		"Generate a sample pytest unit test file for this project. "+
			"Test the most important/core functionality. Use mocks where needed. "+
			"Include at least 3 test functions. Output ONLY Python code, no markdown fences.")
}

// stripFences removes a wrapping markdown code fence if present
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		if idx := strings.LastIndex(s, "\n"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func orAuto(s string) string {
	if s == "" {
		return "auto-detect"
	}
	return s
}
