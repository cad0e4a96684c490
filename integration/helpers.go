//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"
)

// TempConfigPath returns a temp path for a test config file
func TempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.toml")
}

// TempDBPath returns a temp path for a test database
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "repo-pilot.db")
}

// TempRunsDir returns a temp runs directory
func TempRunsDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pipeline_runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create runs dir: %v", err)
	}
	return dir
}
