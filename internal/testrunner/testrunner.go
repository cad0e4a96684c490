// Package testrunner writes generated test files into the target
// repository and executes them with pytest, one run per group.
package testrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/repopilot/repo-pilot/internal/domain"
)

const (
	runTimeout     = 2 * time.Minute
	maxOutputChars = 5000
)

const conftestContent = `"""Shared pytest fixtures."""

import sys
from pathlib import Path

# Ensure the repo root is importable
sys.path.insert(0, str(Path(__file__).parent.parent))
`

// Runner executes generated test suites in a target repository
type Runner struct {
	logger *slog.Logger

	// execute is swappable in tests
	execute func(ctx context.Context, repoPath, testPath string) (output string, exitCode int, err error)
}

// New creates a runner
func New(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{logger: logger}
	r.execute = r.runPytest
	return r
}

// WriteFiles writes the generated test files into the repository,
// creating tests/conftest.py and tests/__init__.py when missing.
func (r *Runner) WriteFiles(repoPath string, files []domain.TestFile) error {
	testsDir := filepath.Join(repoPath, "tests")
	if err := os.MkdirAll(testsDir, 0o755); err != nil {
		return fmt.Errorf("creating tests dir: %w", err)
	}

	conftest := filepath.Join(testsDir, "conftest.py")
	if _, err := os.Stat(conftest); os.IsNotExist(err) {
		if err := os.WriteFile(conftest, []byte(conftestContent), 0o644); err != nil {
			return fmt.Errorf("writing conftest: %w", err)
		}
	}
	initFile := filepath.Join(testsDir, "__init__.py")
	if _, err := os.Stat(initFile); os.IsNotExist(err) {
		if err := os.WriteFile(initFile, []byte(""), 0o644); err != nil {
			return fmt.Errorf("writing __init__.py: %w", err)
		}
	}

	for _, tf := range files {
		path := filepath.Join(repoPath, tf.File)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating dir for %s: %w", tf.File, err)
		}
		if err := os.WriteFile(path, []byte(tf.Content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", tf.File, err)
		}
		r.logger.Info("wrote test file", "file", tf.File, "tests", tf.TestCount)
	}
	return nil
}

// Run executes each test file with pytest and parses the results.
// A timed-out or unrunnable group yields a zero-count result with
// ExitCode -1; it never aborts the remaining groups.
func (r *Runner) Run(ctx context.Context, repoPath string, files []domain.TestFile) []domain.TestResult {
	var results []domain.TestResult
	for _, tf := range files {
		r.logger.Info("running tests", "group", tf.Group, "file", tf.File)
		output, exitCode, err := r.execute(ctx, repoPath, filepath.Join(repoPath, tf.File))
		if err != nil {
			msg := err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				msg = fmt.Sprintf("Test execution timed out after %s", runTimeout)
				output = "TIMEOUT"
			}
			r.logger.Error("test run failed", "group", tf.Group, "error", msg)
			results = append(results, domain.TestResult{
				Group:    tf.Group,
				File:     tf.File,
				Errors:   []string{msg},
				Output:   truncateOutput(output),
				ExitCode: -1,
			})
			continue
		}

		passed, failed, errs := parsePytestOutput(output)
		results = append(results, domain.TestResult{
			Group:    tf.Group,
			File:     tf.File,
			Total:    passed + failed,
			Passed:   passed,
			Failed:   failed,
			Errors:   errs,
			Output:   truncateOutput(output),
			ExitCode: exitCode,
		})
		r.logger.Info("tests complete",
			"group", tf.Group, "passed", passed, "failed", failed, "exit", exitCode)
	}

	totalPassed, totalFailed := 0, 0
	for _, res := range results {
		totalPassed += res.Passed
		totalFailed += res.Failed
	}
	r.logger.Info("all tests complete", "passed", totalPassed, "failed", totalFailed)
	return results
}

func (r *Runner) runPytest(ctx context.Context, repoPath, testPath string) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "python", "-m", "pytest",
		testPath, "-v", "--tb=short", "--no-header", "-q")
	cmd.Dir = repoPath
	cmd.Env = buildEnv(repoPath)

	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return string(out), -1, context.DeadlineExceeded
	}
	// Nonzero exit means failing tests, not a run error
	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
		err = nil
	}
	return string(out), exitCode, err
}

func buildEnv(repoPath string) []string {
	env := os.Environ()
	venv := filepath.Join(repoPath, ".venv")
	if _, err := os.Stat(venv); err == nil {
		env = append(env, "VIRTUAL_ENV="+venv)
		env = append(env, "PATH="+filepath.Join(venv, "bin")+":"+os.Getenv("PATH"))
	}
	return append(env, "PYTHONDONTWRITEBYTECODE=1")
}

var (
	passedRe = regexp.MustCompile(`(\d+)\s+passed`)
	failedRe = regexp.MustCompile(`(\d+)\s+failed`)
)

// parsePytestOutput extracts pass/fail counts from a pytest summary
// line like "5 passed, 2 failed" and collects error lines.
func parsePytestOutput(output string) (passed, failed int, errs []string) {
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.Contains(lower, " passed") || strings.Contains(lower, " failed") {
			if m := passedRe.FindStringSubmatch(lower); m != nil {
				passed, _ = strconv.Atoi(m[1])
			}
			if m := failedRe.FindStringSubmatch(lower); m != nil {
				failed, _ = strconv.Atoi(m[1])
			}
			continue
		}
		if strings.HasPrefix(lower, "failed") || strings.Contains(lower, "error") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				errs = append(errs, trimmed)
			}
		}
	}
	return passed, failed, errs
}

func truncateOutput(s string) string {
	if len(s) <= maxOutputChars {
		return s
	}
	return s[:maxOutputChars]
}
