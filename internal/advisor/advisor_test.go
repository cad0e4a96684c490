package advisor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopilot/repo-pilot/internal/domain"
)

// fakeChat returns scripted responses in order
type fakeChat struct {
	responses []string
	calls     int
	systems   []string
}

func (f *fakeChat) Chat(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	f.systems = append(f.systems, system)
	if f.calls >= len(f.responses) {
		return "", context.Canceled
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func (f *fakeChat) ChatJSON(ctx context.Context, system, user string, out any) error {
	raw, err := f.Chat(ctx, system, user, true)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

func testRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	return dir
}

func TestAnalyze(t *testing.T) {
	chat := &fakeChat{responses: []string{"spec doc", "graph doc", "arch doc"}}
	a := New(chat, 7.0, nil)

	analysis, err := a.Analyze(context.Background(), testRepo(t))
	require.NoError(t, err)
	assert.Equal(t, "spec doc", analysis.Specification)
	assert.Equal(t, "graph doc", analysis.Graph)
	assert.Equal(t, "arch doc", analysis.Architecture)
	assert.Equal(t, 1, analysis.Stats.TotalFiles)
}

func TestWriteDocs(t *testing.T) {
	chat := &fakeChat{responses: []string{"spec doc", "graph doc", "arch doc"}}
	a := New(chat, 7.0, nil)
	repo := testRepo(t)

	updated, err := a.WriteDocs(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("docs", "specification.md"),
		filepath.Join("docs", "graph.md"),
		filepath.Join("docs", "architecture.md"),
	}, updated)

	content, err := os.ReadFile(filepath.Join(repo, "docs", "specification.md"))
	require.NoError(t, err)
	assert.Equal(t, "spec doc", string(content))
}

func TestSuggestAssignsSequentialIDs(t *testing.T) {
	imps := `{"improvements":[{"title":"t1","description":"d","priority":"high","changes":[{"file":"a.go","description":"x"}]}]}`
	chat := &fakeChat{responses: []string{imps, imps, imps, imps}}
	a := New(chat, 7.0, nil)

	got, err := a.Suggest(context.Background(), testRepo(t))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "IMP-001", got[0].ID)
	assert.Equal(t, "IMP-004", got[3].ID)
	assert.Equal(t, domain.CategoryFeatures, got[0].Category)
	assert.Equal(t, domain.CategoryIntegration, got[3].Category)
}

func TestApplyCreatesNewFile(t *testing.T) {
	chat := &fakeChat{responses: []string{"new file content"}}
	a := New(chat, 7.0, nil)
	repo := testRepo(t)

	results, err := a.Apply(context.Background(), repo, []domain.Improvement{{
		ID: "IMP-001", Title: "Add helper",
		Changes: []domain.Change{{File: "pkg/helper.go", Description: "add helper"}},
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ChangeApplied, results[0].Status)
	assert.Equal(t, "created", results[0].Action)

	content, err := os.ReadFile(filepath.Join(repo, "pkg", "helper.go"))
	require.NoError(t, err)
	assert.Equal(t, "new file content", string(content))
}

func TestApplyModifiesExistingFile(t *testing.T) {
	chat := &fakeChat{responses: []string{`{"new_content":"package main\n\nfunc main() {}\n","summary":"added main"}`}}
	a := New(chat, 7.0, nil)
	repo := testRepo(t)

	results, err := a.Apply(context.Background(), repo, []domain.Improvement{{
		ID: "IMP-001", Title: "Add main",
		Changes: []domain.Change{{File: "main.go", Description: "add main func"}},
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ChangeApplied, results[0].Status)
	assert.Equal(t, "modified", results[0].Action)
	assert.Equal(t, "added main", results[0].DiffSummary)
}

func TestApplyUnchangedContentIsSkipped(t *testing.T) {
	chat := &fakeChat{responses: []string{`{"new_content":"package main\n","summary":"no-op"}`}}
	a := New(chat, 7.0, nil)
	repo := testRepo(t)

	results, err := a.Apply(context.Background(), repo, []domain.Improvement{{
		ID: "IMP-001", Title: "Nothing",
		Changes: []domain.Change{{File: "main.go", Description: "nothing"}},
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ChangeSkipped, results[0].Status)
}

func TestApplyFailureIsRecordedNotFatal(t *testing.T) {
	chat := &fakeChat{responses: []string{}}
	a := New(chat, 7.0, nil)
	repo := testRepo(t)

	results, err := a.Apply(context.Background(), repo, []domain.Improvement{{
		ID: "IMP-001", Title: "Broken",
		Changes: []domain.Change{{File: "main.go", Description: "x"}},
	}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ChangeFailed, results[0].Status)
}

func TestReviewPassedThreshold(t *testing.T) {
	repo := testRepo(t)

	tests := []struct {
		name   string
		score  float64
		passed bool
	}{
		{"above threshold", 8.5, true},
		{"at threshold", 7.0, true},
		{"below threshold", 6.9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply, err := json.Marshal(map[string]any{
				"overall_score": tt.score,
				"summary":       "ok",
			})
			require.NoError(t, err)
			chat := &fakeChat{responses: []string{string(reply)}}
			a := New(chat, 7.0, nil)

			result, err := a.Review(context.Background(), repo, []domain.ChangeResult{
				{ImprovementID: "IMP-001", File: "main.go", Action: "modified", Status: domain.ChangeApplied},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.score, result.OverallScore)
			assert.Equal(t, tt.passed, result.Passed)
		})
	}
}

func TestGenerateTests(t *testing.T) {
	reply := `{"test_file_content":"def test_x(): pass","test_count":1,"test_names":["test_x"]}`
	chat := &fakeChat{responses: []string{reply, reply, reply, reply}}
	a := New(chat, 7.0, nil)

	files, err := a.GenerateTests(context.Background(), testRepo(t), []domain.ChangeResult{
		{ImprovementID: "IMP-001", File: "main.go", Status: domain.ChangeApplied, DiffSummary: "x"},
	})
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, "tests/test_features.py", files[0].File)
	assert.Equal(t, domain.CategorySecurity, files[1].Group)
	assert.Equal(t, 1, files[0].TestCount)
}
