package scaffold

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/repopilot/repo-pilot/internal/scanner"
)

// cannedChat replies to every request with the same content
type cannedChat struct {
	reply string
	calls int
}

func (c *cannedChat) Chat(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	c.calls++
	return c.reply, nil
}

func (c *cannedChat) ChatJSON(ctx context.Context, system, user string, out any) error {
	raw, err := c.Chat(ctx, system, user, true)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func pythonRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"app.py":           "import fastapi\n\napp = fastapi.FastAPI()\n",
		"pyproject.toml":   "[project]\nname = \"demo\"\n",
		"tests/test_it.py": "def test_ok(): pass\n",
	}
	for rel, content := range files {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestDetectStack(t *testing.T) {
	dir := pythonRepo(t)
	scanRes, err := scanner.Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	stack := detectStack(scanRes)

	if got := stack.PrimaryLanguage(); got != "python" {
		t.Errorf("primary language = %q, want python", got)
	}
	if stack.PackageManager != "pyproject.toml" {
		t.Errorf("package manager = %q, want pyproject.toml", stack.PackageManager)
	}
	if !stack.HasTests {
		t.Error("expected HasTests")
	}
	if stack.HasCI {
		t.Error("did not expect HasCI")
	}
}

func TestAuditRepo(t *testing.T) {
	dir := pythonRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "LICENSE"), []byte("MIT"), 0o644); err != nil {
		t.Fatal(err)
	}

	audit := auditRepo(dir)

	existing := make(map[string]bool)
	for _, e := range audit.Existing {
		existing[e.Path] = true
	}
	if !existing["LICENSE"] {
		t.Error("LICENSE should be existing")
	}
	missing := make(map[string]bool)
	for _, m := range audit.Missing {
		missing[m.Path] = true
	}
	for _, want := range []string{"README.md", ".github/workflows/ci.yml", "Makefile"} {
		if !missing[want] {
			t.Errorf("%s should be missing", want)
		}
	}
	if missing["tests/"] {
		t.Error("tests/ should not be missing, directory exists")
	}
}

func TestAuditThinReadmeCountsAsMissing(t *testing.T) {
	dir := pythonRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# demo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	audit := auditRepo(dir)
	for _, m := range audit.Missing {
		if m.Path == "README.md" {
			if m.Note == "" {
				t.Error("thin README should carry a note")
			}
			return
		}
	}
	t.Error("thin README should be reported missing")
}

func TestScaffoldCreatesMissingFiles(t *testing.T) {
	dir := pythonRepo(t)
	chat := &cannedChat{reply: "generated content\non: push\n"}

	report, err := New(chat, nil).Scaffold(context.Background(), dir)
	if err != nil {
		t.Fatalf("Scaffold: %v", err)
	}
	if len(report.Created) == 0 {
		t.Fatal("expected created files")
	}

	for _, rel := range []string{"SECURITY.md", "CODE_OF_CONDUCT.md", "CHANGELOG.md",
		".github/PULL_REQUEST_TEMPLATE.md", "docs/adr/001-template.md"} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("%s not created", rel)
		}
	}
}

func TestScaffoldDoesNotOverwriteExisting(t *testing.T) {
	dir := pythonRepo(t)
	original := "# my own security policy\n"
	if err := os.WriteFile(filepath.Join(dir, "SECURITY.md"), []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	chat := &cannedChat{reply: "generated"}
	if _, err := New(chat, nil).Scaffold(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "SECURITY.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != original {
		t.Error("existing SECURITY.md was overwritten")
	}
}

func TestScaffoldRejectsInvalidCIYAML(t *testing.T) {
	dir := pythonRepo(t)
	chat := &cannedChat{reply: ":\nnot: [valid\n"}

	report, err := New(chat, nil).Scaffold(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, ".github", "workflows", "ci.yml")); statErr == nil {
		t.Error("invalid YAML workflow should not be written")
	}
	found := false
	for _, s := range report.Skipped {
		if s == ".github/workflows/ci.yml" {
			found = true
		}
	}
	if !found {
		t.Error("ci.yml should be reported skipped")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"```yaml\non: push\n```", "on: push"},
		{"```\ncontent\n```", "content"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidYAML(t *testing.T) {
	if !validYAML("on: push\njobs: {}") {
		t.Error("valid YAML rejected")
	}
	if validYAML(strings.Repeat("[", 3) + ": {") {
		t.Error("invalid YAML accepted")
	}
}
