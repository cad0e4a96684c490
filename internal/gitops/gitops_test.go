package gitops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopilot/repo-pilot/internal/domain"
)

type fakeRunner struct {
	calls  [][]string
	output string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.err
}

// initRepo creates a git repository with one commit on main
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@localhost", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestCreateBranchAndCommit(t *testing.T) {
	dir := initRepo(t)
	c := New(dir, nil)

	require.NoError(t, c.CreateBranch(context.Background(), "repo-pilot/run-1"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("hello\n"), 0o644))
	sha, committed, err := c.CommitAll(context.Background(), "add new file")
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Len(t, sha, 40)
}

func TestCommitAllCleanWorktree(t *testing.T) {
	dir := initRepo(t)
	c := New(dir, nil)

	sha, committed, err := c.CommitAll(context.Background(), "no-op")
	require.NoError(t, err)
	assert.False(t, committed)
	assert.Empty(t, sha)
}

func TestAutoMergeBlockedBelowThreshold(t *testing.T) {
	runner := &fakeRunner{}
	c := New(t.TempDir(), nil).WithRunner(runner)

	result := c.AutoMerge(context.Background(), 6.5, 7.0)
	assert.Equal(t, domain.MergeBlocked, result.Status)
	assert.Equal(t, 6.5, result.Score)
	assert.Equal(t, 7.0, result.Threshold)
	assert.Contains(t, result.Reason, "6.5")
	assert.Empty(t, runner.calls, "blocked merge must not invoke gh")
}

func TestAutoMergeMerged(t *testing.T) {
	runner := &fakeRunner{output: "merged"}
	c := New(t.TempDir(), nil).WithRunner(runner)

	result := c.AutoMerge(context.Background(), 8.0, 7.0)
	assert.Equal(t, domain.MergeMerged, result.Status)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"gh", "pr", "merge", "--merge", "--delete-branch"}, runner.calls[0])
}

func TestAutoMergeScoreEqualToThreshold(t *testing.T) {
	runner := &fakeRunner{output: "merged"}
	c := New(t.TempDir(), nil).WithRunner(runner)

	// The gate is score >= threshold, so an exact match merges
	result := c.AutoMerge(context.Background(), 7.0, 7.0)
	assert.Equal(t, domain.MergeMerged, result.Status)
	require.Len(t, runner.calls, 1)
}

func TestAutoMergeCommandFailure(t *testing.T) {
	runner := &fakeRunner{output: "merge conflict", err: fmt.Errorf("exit 1")}
	c := New(t.TempDir(), nil).WithRunner(runner)

	result := c.AutoMerge(context.Background(), 9.0, 7.0)
	assert.Equal(t, domain.MergeFailed, result.Status)
	assert.Equal(t, "merge conflict", result.Error)
}

func TestCreatePullRequest(t *testing.T) {
	runner := &fakeRunner{output: "https://github.com/acme/repo/pull/7\n"}
	c := New(t.TempDir(), nil).WithRunner(runner)

	result := c.CreatePullRequest(context.Background(), "repo-pilot/run-1", "title", "body")
	assert.Equal(t, domain.MergeCreated, result.Status)
	assert.Equal(t, "https://github.com/acme/repo/pull/7", result.URL)
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "gh", runner.calls[0][0])
}

func TestCreatePullRequestFailure(t *testing.T) {
	runner := &fakeRunner{output: "no remote", err: fmt.Errorf("exit 1")}
	c := New(t.TempDir(), nil).WithRunner(runner)

	result := c.CreatePullRequest(context.Background(), "b", "t", "body")
	assert.Equal(t, domain.MergeFailed, result.Status)
	assert.Equal(t, "no remote", result.Error)
}

func TestEnsureRemote(t *testing.T) {
	dir := initRepo(t)
	c := New(dir, nil)
	assert.False(t, c.EnsureRemote())

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://example.com/repo.git"},
	})
	require.NoError(t, err)
	assert.True(t, c.EnsureRemote())
}
