// Package pipeline orchestrates a full code improvement run: analyze,
// suggest, apply, review, test, push, merge gate, document. Every step
// is tracked as a bead and the finished run is written to the ledger.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/ledger"
	"github.com/repopilot/repo-pilot/internal/notify"
)

// Advisor is the model-assisted capability surface the pipeline drives
type Advisor interface {
	Analyze(ctx context.Context, repoPath string) (*domain.Analysis, error)
	Suggest(ctx context.Context, repoPath string) ([]domain.Improvement, error)
	Apply(ctx context.Context, repoPath string, improvements []domain.Improvement) ([]domain.ChangeResult, error)
	Review(ctx context.Context, repoPath string, changes []domain.ChangeResult) (*domain.ReviewResult, error)
	GenerateTests(ctx context.Context, repoPath string, changes []domain.ChangeResult) ([]domain.TestFile, error)
	WriteDocs(ctx context.Context, repoPath string) ([]string, error)
}

// Git is the version control surface for one target repository
type Git interface {
	CreateBranch(ctx context.Context, name string) error
	CommitAll(ctx context.Context, message string) (sha string, committed bool, err error)
	PushBranch(ctx context.Context, branch string) error
	CreatePullRequest(ctx context.Context, branch, title, body string) *domain.MergeResult
	AutoMerge(ctx context.Context, score, threshold float64) *domain.MergeResult
	CheckoutMain(ctx context.Context) error
	EnsureRemote() bool
}

// TestRunner writes and executes generated test suites
type TestRunner interface {
	WriteFiles(repoPath string, files []domain.TestFile) error
	Run(ctx context.Context, repoPath string, files []domain.TestFile) []domain.TestResult
}

// Archiver uploads a finished run record to long-term storage
type Archiver interface {
	ArchiveRun(ctx context.Context, run *domain.PipelineRun) error
}

// Options configures a pipeline runner
type Options struct {
	BranchPrefix       string
	AutoMergeThreshold float64

	Store    ledger.Store      // nil = memory and flat files only
	Files    *ledger.FileStore // required
	Notifier notify.Notifier   // nil = no notifications
	Archiver Archiver          // nil = no archiving
	Logger   *slog.Logger

	now func() time.Time
}

// Runner executes pipeline runs against target repositories
type Runner struct {
	opts    Options
	advisor Advisor
	tests   TestRunner
	gitFor  func(repoPath string) Git
}

// New creates a pipeline runner. gitFor builds the git client for a
// target repository path.
func New(advisor Advisor, tests TestRunner, gitFor func(string) Git, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NoopNotifier{}
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	return &Runner{opts: opts, advisor: advisor, tests: tests, gitFor: gitFor}
}
