// Package gitops handles branching, committing, pushing, pull request
// creation, and the auto-merge gate for a target repository.
//
// Local operations use go-git. Push and pull request operations shell
// out to git and gh so that the user's existing credentials and hosts
// configuration apply.
package gitops

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/repopilot/repo-pilot/internal/domain"
)

const commandTimeout = 30 * time.Second

// Runner executes an external command in a directory and returns its
// combined output. It exists so tests can stub out git and gh.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Client performs git operations on a single repository
type Client struct {
	repoPath string
	runner   Runner
	logger   *slog.Logger
}

// New creates a client for the repository at repoPath
func New(repoPath string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{repoPath: repoPath, runner: execRunner{}, logger: logger}
}

// WithRunner replaces the external command runner, for tests
func (c *Client) WithRunner(r Runner) *Client {
	c.runner = r
	return c
}

func (c *Client) worktree() (*git.Worktree, error) {
	repo, err := git.PlainOpen(c.repoPath)
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return repo.Worktree()
}

// CreateBranch creates and checks out a new branch
func (c *Client) CreateBranch(ctx context.Context, name string) error {
	c.logger.Info("creating branch", "branch", name)
	wt, err := c.worktree()
	if err != nil {
		return err
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("creating branch %s: %w", name, err)
	}
	return nil
}

// CommitAll stages everything and commits. Returns the commit SHA, or
// committed=false when the worktree is clean.
func (c *Client) CommitAll(ctx context.Context, message string) (sha string, committed bool, err error) {
	c.logger.Info("committing", "message", message)
	wt, err := c.worktree()
	if err != nil {
		return "", false, err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", false, fmt.Errorf("staging changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", false, fmt.Errorf("checking status: %w", err)
	}
	if status.IsClean() {
		c.logger.Info("nothing to commit")
		return "", false, nil
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "repo-pilot",
			Email: "repo-pilot@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("committing: %w", err)
	}
	return hash.String(), true, nil
}

// PushBranch pushes the branch to origin with upstream tracking
func (c *Client) PushBranch(ctx context.Context, branch string) error {
	c.logger.Info("pushing branch", "branch", branch)
	out, err := c.runner.Run(ctx, c.repoPath, "git", "push", "-u", "origin", branch)
	if err != nil {
		return fmt.Errorf("pushing %s: %w: %s", branch, err, strings.TrimSpace(out))
	}
	return nil
}

// CreatePullRequest opens a pull request via the gh CLI. A failure is
// returned as a failed MergeResult, not an error, so the pipeline can
// record it and continue to the merge gate.
func (c *Client) CreatePullRequest(ctx context.Context, branch, title, body string) *domain.MergeResult {
	c.logger.Info("creating pull request", "title", title)
	out, err := c.runner.Run(ctx, c.repoPath, "gh", "pr", "create",
		"--title", title, "--body", body, "--base", "main", "--head", branch)
	if err != nil {
		c.logger.Error("pull request creation failed", "error", err, "output", out)
		return &domain.MergeResult{
			Status: domain.MergeFailed,
			Branch: branch,
			Error:  strings.TrimSpace(out),
		}
	}
	url := strings.TrimSpace(out)
	c.logger.Info("pull request created", "url", url)
	return &domain.MergeResult{Status: domain.MergeCreated, Branch: branch, URL: url}
}

// AutoMerge merges the open pull request when score meets threshold.
// A score below threshold blocks the merge; blocked is a normal
// outcome, not an error.
func (c *Client) AutoMerge(ctx context.Context, score, threshold float64) *domain.MergeResult {
	c.logger.Info("auto-merge check", "score", score, "threshold", threshold)
	if score < threshold {
		c.logger.Info("score below threshold, merge blocked")
		return &domain.MergeResult{
			Status:    domain.MergeBlocked,
			Score:     score,
			Threshold: threshold,
			Reason:    fmt.Sprintf("Review score %.1f < threshold %.1f", score, threshold),
		}
	}

	out, err := c.runner.Run(ctx, c.repoPath, "gh", "pr", "merge", "--merge", "--delete-branch")
	if err != nil {
		c.logger.Error("merge failed", "error", err, "output", out)
		return &domain.MergeResult{
			Status:    domain.MergeFailed,
			Score:     score,
			Threshold: threshold,
			Error:     strings.TrimSpace(out),
		}
	}
	c.logger.Info("pull request merged")
	return &domain.MergeResult{
		Status:    domain.MergeMerged,
		Score:     score,
		Threshold: threshold,
	}
}

// CheckoutMain switches back to main and pulls the latest changes
func (c *Client) CheckoutMain(ctx context.Context) error {
	wt, err := c.worktree()
	if err != nil {
		return err
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName("main"),
	})
	if err != nil {
		return fmt.Errorf("checking out main: %w", err)
	}
	if out, err := c.runner.Run(ctx, c.repoPath, "git", "pull", "origin", "main"); err != nil {
		return fmt.Errorf("pulling main: %w: %s", err, strings.TrimSpace(out))
	}
	return nil
}

// EnsureRemote reports whether the repository has an origin remote.
// Runs without a remote skip push, PR and merge.
func (c *Client) EnsureRemote() bool {
	repo, err := git.PlainOpen(c.repoPath)
	if err != nil {
		return false
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return false
	}
	for _, r := range remotes {
		if r.Config().Name == "origin" {
			return true
		}
	}
	return false
}
