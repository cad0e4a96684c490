package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/notify"
	"github.com/repopilot/repo-pilot/internal/tracker"
)

// Execute runs the full pipeline against repoPath. The returned run
// record is always complete: on a step failure the remaining steps are
// skipped but finalization (persistence, log file, notification) still
// happens, and the record carries status failed with the step's error.
func (r *Runner) Execute(ctx context.Context, repoPath string) *domain.PipelineRun {
	start := r.opts.now()
	runID := domain.NewRunID(start)
	logger := r.opts.Logger.With("run_id", runID)
	logger.Info("pipeline starting", "repo", repoPath)

	var sink tracker.BeadSink
	if r.opts.Store != nil {
		sink = r.opts.Store
	}
	trk := tracker.New(runID, sink, logger)

	run := &domain.PipelineRun{
		RunID:      runID,
		TargetRepo: repoPath,
		BranchName: r.opts.BranchPrefix + "/" + runID,
		Status:     domain.RunRunning,
		StartedAt:  start.UTC(),
	}
	r.persistRun(run, logger)

	e := &execution{
		runner:  r,
		run:     run,
		tracker: trk,
		git:     r.gitFor(repoPath),
	}

	for _, s := range steps() {
		if err := r.runStep(ctx, e, s); err != nil {
			logger.Error("pipeline failed", "step", s.name, "error", err)
			run.Status = domain.RunFailed
			run.Error = fmt.Sprintf("%s: %v", s.name, err)
			break
		}
	}
	if run.Status == domain.RunRunning {
		run.Status = domain.RunCompleted
	}

	r.finalize(ctx, e, start, logger)
	logger.Info("pipeline complete", "status", run.Status, "duration", run.Duration)
	return run
}

// runStep executes one step inside its own bead and timeout. The skip
// precondition is checked before the bead starts, so a designed skip
// is a pending to skipped transition and the pipeline continues.
func (r *Runner) runStep(ctx context.Context, e *execution, s step) error {
	bead := e.tracker.Create(s.name, s.category, s.input(e))
	if s.skip != nil {
		if reason, ok := s.skip(e); ok {
			e.tracker.Skip(bead, reason)
			return nil
		}
	}
	e.tracker.Start(bead)

	stepCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	output, metadata, err := s.run(stepCtx, e)
	if err != nil {
		e.tracker.Fail(bead, err.Error())
		return err
	}
	e.tracker.Complete(bead, output, metadata)
	return nil
}

// finalize closes out the run record: duration, bead chain, flat-file
// log, ledger upsert, notification, and optional archive. Persistence
// failures are logged, never raised.
func (r *Runner) finalize(ctx context.Context, e *execution, start time.Time, logger *slog.Logger) {
	run := e.run
	now := r.opts.now().UTC()
	run.CompletedAt = &now
	run.Duration = now.Sub(start.UTC())
	run.Beads = e.tracker.List()
	run.Summary = e.tracker.Summary()

	// The run log is itself tracked work
	bead := e.tracker.Create("Save Pipeline Log", "logging", "")
	e.tracker.Start(bead)
	if r.opts.Files != nil {
		path, err := r.opts.Files.SaveRun(run)
		if err != nil {
			logger.Warn("failed to save run log", "error", err)
			e.tracker.Fail(bead, err.Error())
		} else {
			run.LogFile = path
			e.tracker.Complete(bead, path, nil)
		}
	} else {
		e.tracker.Skip(bead, "no runs directory configured")
	}
	run.Beads = e.tracker.List()
	run.Summary = e.tracker.Summary()

	r.persistRun(run, logger)

	if err := r.opts.Notifier.Send(notify.ForRun(run)); err != nil {
		logger.Warn("notification failed", "error", err)
	}
	if r.opts.Archiver != nil {
		if err := r.opts.Archiver.ArchiveRun(ctx, run); err != nil {
			logger.Warn("archive upload failed", "error", err)
		}
	}
}

func (r *Runner) persistRun(run *domain.PipelineRun, logger *slog.Logger) {
	if r.opts.Store == nil {
		return
	}
	if err := r.opts.Store.UpsertRun(run); err != nil {
		logger.Warn("failed to persist run", "error", err)
	}
}
