//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// binaryPath returns the path to the built CLI binary
func binaryPath(t *testing.T) string {
	t.Helper()
	paths := []string{
		"../repo-pilot",
		"./repo-pilot",
		filepath.Join(os.Getenv("GOPATH"), "bin", "repo-pilot"),
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			abs, _ := filepath.Abs(p)
			return abs
		}
	}

	t.Log("Binary not found, building...")
	cmd := exec.Command("go", "build", "-o", "../repo-pilot", "../cmd/repo-pilot")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}

	abs, _ := filepath.Abs("../repo-pilot")
	return abs
}

// createTestConfig creates a temporary config file for testing
func createTestConfig(t *testing.T, runsDir, dbPath string) string {
	t.Helper()
	configPath := TempConfigPath(t)

	config := `[general]
runs_dir = "` + runsDir + `"
database_driver = "sqlite"
database_dsn = "` + dbPath + `"
branch_prefix = "repo-pilot"
auto_merge_threshold = 7.0

[llm]
base_url = "http://127.0.0.1:1"
model = "gpt-4.1"
max_tokens = 8192
api_key_env = "REPO_PILOT_TEST_KEY"

[web]
port = 8099
host = "127.0.0.1"
`

	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	return configPath
}

// TestCLI_ListEmpty lists runs against a fresh database
func TestCLI_ListEmpty(t *testing.T) {
	binary := binaryPath(t)
	configPath := createTestConfig(t, TempRunsDir(t), TempDBPath(t))

	cmd := exec.Command(binary, "--config", configPath, "list")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("list failed: %v\n%s", err, out)
	}

	if !strings.Contains(string(out), "RUN") {
		t.Errorf("list output missing header:\n%s", out)
	}
}

// TestCLI_ShowUnknownRun expects a non-zero exit for a missing run
func TestCLI_ShowUnknownRun(t *testing.T) {
	binary := binaryPath(t)
	configPath := createTestConfig(t, TempRunsDir(t), TempDBPath(t))

	cmd := exec.Command(binary, "--config", configPath, "show", "run-00000000-000000-ffffff")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("show of unknown run should fail:\n%s", out)
	}

	if !strings.Contains(string(out), "not found") {
		t.Errorf("error output should mention not found:\n%s", out)
	}
}

// TestCLI_ScheduleWithoutEntries expects an error when no schedules exist
func TestCLI_ScheduleWithoutEntries(t *testing.T) {
	binary := binaryPath(t)
	configPath := createTestConfig(t, TempRunsDir(t), TempDBPath(t))

	cmd := exec.Command(binary, "--config", configPath, "schedule")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("schedule with no entries should fail:\n%s", out)
	}

	if !strings.Contains(string(out), "no schedules configured") {
		t.Errorf("unexpected error output:\n%s", out)
	}
}
