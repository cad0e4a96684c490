package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/repopilot/repo-pilot/internal/advisor"
	"github.com/repopilot/repo-pilot/internal/archive"
	"github.com/repopilot/repo-pilot/internal/config"
	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/gitops"
	"github.com/repopilot/repo-pilot/internal/ledger"
	"github.com/repopilot/repo-pilot/internal/llm"
	"github.com/repopilot/repo-pilot/internal/notify"
	"github.com/repopilot/repo-pilot/internal/observer"
	"github.com/repopilot/repo-pilot/internal/pipeline"
	"github.com/repopilot/repo-pilot/internal/registry"
	"github.com/repopilot/repo-pilot/internal/scaffold"
	"github.com/repopilot/repo-pilot/internal/schedule"
	"github.com/repopilot/repo-pilot/internal/testrunner"
	"github.com/repopilot/repo-pilot/tui"
	"github.com/repopilot/repo-pilot/web/api"
)

var (
	listStatus   string
	beadStatus   string
	beadCategory string
	servePort    int
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run REPO_PATH",
		Short: "Run the improvement pipeline against a repository",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipeline,
	}
	rootCmd.AddCommand(runCmd)

	// list command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pipeline runs",
		RunE:  runList,
	}
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	rootCmd.AddCommand(listCmd)

	// show command
	showCmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one pipeline run in detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	rootCmd.AddCommand(showCmd)

	// beads command
	beadsCmd := &cobra.Command{
		Use:   "beads RUN_ID",
		Short: "List the beads of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  runBeads,
	}
	beadsCmd.Flags().StringVar(&beadStatus, "status", "", "filter by status")
	beadsCmd.Flags().StringVar(&beadCategory, "category", "", "filter by category")
	rootCmd.AddCommand(beadsCmd)

	// scaffold command
	scaffoldCmd := &cobra.Command{
		Use:   "scaffold REPO_PATH",
		Short: "Generate missing best-practice files for a repository",
		Args:  cobra.ExactArgs(1),
		RunE:  runScaffold,
	}
	rootCmd.AddCommand(scaffoldCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run configured schedules in the foreground",
		RunE:  runSchedule,
	}
	rootCmd.AddCommand(scheduleCmd)

	// tui command
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch TUI dashboard",
		RunE:  runTUI,
	}
	rootCmd.AddCommand(tuiCmd)

	// serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web API server",
		RunE:  runServe,
	}
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.Load(path)
}

// openLedger opens the database and the flat-file run store. A database
// failure degrades to file-only mode rather than aborting.
func openLedger(cfg *config.Config, logger *slog.Logger) (ledger.Store, *ledger.FileStore) {
	files := ledger.NewFileStore(cfg.General.RunsDir)

	db, err := ledger.Open(ledger.Config{
		Driver: cfg.General.DatabaseDriver,
		DSN:    cfg.General.DatabaseDSN,
	})
	if err != nil {
		logger.Warn("database unavailable, continuing with file store only", "error", err)
		return nil, files
	}
	return db, files
}

func buildRunner(cfg *config.Config, store ledger.Store, files *ledger.FileStore, logger *slog.Logger) *pipeline.Runner {
	client := llm.NewClient(llm.Options{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey(),
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	}, logger)

	adv := advisor.New(client, cfg.General.AutoMergeThreshold, logger)
	tests := testrunner.New(logger)
	gitFor := func(repoPath string) pipeline.Git {
		return gitops.New(repoPath, logger)
	}

	opts := pipeline.Options{
		BranchPrefix:       cfg.General.BranchPrefix,
		AutoMergeThreshold: cfg.General.AutoMergeThreshold,
		Store:              store,
		Files:              files,
		Notifier:           notify.NewSlackNotifier(cfg.Notifications.SlackWebhook),
		Logger:             logger,
	}

	if cfg.Archive.Enabled() {
		uploader, err := archive.New(archive.Options{
			Endpoint:  cfg.Archive.Endpoint,
			Bucket:    cfg.Archive.Bucket,
			AccessKey: os.Getenv(cfg.Archive.AccessKeyEnv),
			SecretKey: os.Getenv(cfg.Archive.SecretKeyEnv),
			UseSSL:    cfg.Archive.UseSSL,
		}, logger)
		if err != nil {
			logger.Warn("archive disabled", "error", err)
		} else {
			opts.Archiver = uploader
		}
	}

	return pipeline.New(adv, tests, gitFor, opts)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger()

	store, files := openLedger(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	runner := buildRunner(cfg, store, files, logger)
	run := runner.Execute(cmd.Context(), args[0])

	fmt.Printf("\nRun %s: %s\n", run.RunID, run.Status)
	if run.Error != "" {
		fmt.Printf("  Error: %s\n", run.Error)
	}
	if run.Review != nil {
		fmt.Printf("  Review score: %.1f/10\n", run.Review.OverallScore)
	}
	if run.MergeResult != nil {
		fmt.Printf("  Merge: %s", run.MergeResult.Status)
		if run.MergeResult.URL != "" {
			fmt.Printf(" (%s)", run.MergeResult.URL)
		}
		fmt.Println()
	}
	if run.LogFile != "" {
		fmt.Printf("  Log: %s\n", run.LogFile)
	}

	if run.Status == domain.RunFailed {
		return fmt.Errorf("pipeline failed: %s", run.Error)
	}
	return nil
}

func openRegistry(cfg *config.Config, logger *slog.Logger) (*registry.Registry, ledger.Store) {
	store, files := openLedger(cfg, logger)
	return registry.New(store, files, logger), store
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger()

	reg, store := openRegistry(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	runs, err := reg.ListRuns(ledger.ListOptions{Status: domain.RunStatus(listStatus)})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTATUS\tSCORE\tMERGE\tSTARTED\tREPO")
	for _, r := range runs {
		score := "-"
		if r.Review != nil {
			score = fmt.Sprintf("%.1f", r.Review.OverallScore)
		}
		merge := "-"
		if r.MergeResult != nil {
			merge = string(r.MergeResult.Status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID, r.Status, score, merge,
			humanize.Time(r.StartedAt), r.TargetRepo)
	}
	w.Flush()

	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger()

	reg, store := openRegistry(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	run, err := reg.GetRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Run:      %s\n", run.RunID)
	fmt.Printf("Repo:     %s\n", run.TargetRepo)
	fmt.Printf("Status:   %s\n", run.Status)
	fmt.Printf("Started:  %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	fmt.Printf("Duration: %s\n", run.Duration.Round(1e9))
	if run.BranchName != "" {
		fmt.Printf("Branch:   %s\n", run.BranchName)
	}
	if run.Error != "" {
		fmt.Printf("Error:    %s\n", run.Error)
	}

	applied := 0
	for _, c := range run.CodeChanges {
		if c.Status == domain.ChangeApplied {
			applied++
		}
	}
	fmt.Printf("\nImprovements: %d suggested, %d applied\n", len(run.Improvements), applied)
	if run.Review != nil {
		fmt.Printf("Review:       %.1f/10 (passed: %v)\n", run.Review.OverallScore, run.Review.Passed)
	}
	if run.MergeResult != nil {
		fmt.Printf("Merge:        %s", run.MergeResult.Status)
		if run.MergeResult.Reason != "" {
			fmt.Printf(" - %s", run.MergeResult.Reason)
		}
		if run.MergeResult.URL != "" {
			fmt.Printf("\nPR:           %s", run.MergeResult.URL)
		}
		fmt.Println()
	}
	if len(run.DocsUpdated) > 0 {
		fmt.Printf("Docs:         %v\n", run.DocsUpdated)
	}
	if run.Summary != nil {
		fmt.Printf("\nBeads: %d total", run.Summary.Total)
		for status, n := range run.Summary.Statuses {
			fmt.Printf(" | %d %s", n, status)
		}
		fmt.Println()
	}

	return nil
}

func runBeads(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger()

	reg, store := openRegistry(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	beads, err := reg.ListBeads(ledger.BeadQuery{
		RunID:    args[0],
		Status:   domain.BeadStatus(beadStatus),
		Category: beadCategory,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tSTATUS\tDURATION\tOUTPUT")
	for _, b := range beads {
		out := b.OutputSummary
		if b.Status == domain.BeadFailed {
			out = b.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Name, b.Category, b.Status, b.Duration.Round(1e6), out)
	}
	w.Flush()

	return nil
}

func runScaffold(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger()

	client := llm.NewClient(llm.Options{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey(),
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	}, logger)

	report, err := scaffold.New(client, logger).Scaffold(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Stack: %v", report.Stack.Languages)
	if report.Stack.PackageManager != "" {
		fmt.Printf(" (%s)", report.Stack.PackageManager)
	}
	fmt.Println()
	fmt.Printf("Checklist: %d present, %d missing\n",
		len(report.Audit.Existing), len(report.Audit.Missing))
	for _, f := range report.Created {
		fmt.Printf("  created %s\n", f)
	}
	for _, f := range report.Skipped {
		fmt.Printf("  skipped %s\n", f)
	}

	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger()

	if len(cfg.Schedules) == 0 {
		return errors.New("no schedules configured")
	}

	store, files := openLedger(cfg, logger)
	if store != nil {
		defer store.Close()
	}
	runner := buildRunner(cfg, store, files, logger)

	sched, err := schedule.NewScheduler(cfg.Schedules, logger)
	if err != nil {
		return err
	}

	for _, s := range cfg.Schedules {
		fmt.Printf("Schedule %s: %s (next: %s)\n",
			s.Name, s.RepoPath, sched.NextRun(s.Name).Format("2006-01-02 15:04"))
	}

	sched.Start(func(sc config.ScheduleConfig) error {
		run := runner.Execute(context.Background(), sc.RepoPath)
		if run.Status == domain.RunFailed {
			return errors.New(run.Error)
		}
		return nil
	})

	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger()

	reg, store := openRegistry(cfg, logger)
	if store != nil {
		defer store.Close()
	}

	model := tui.NewModel(reg)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger()

	store, files := openLedger(cfg, logger)
	reg := registry.New(store, files, logger)
	runner := buildRunner(cfg, store, files, logger)

	launch := func(ctx context.Context, repoPath string) *domain.PipelineRun {
		return runner.Execute(ctx, repoPath)
	}

	addr := cfg.Web.Addr()
	if servePort != 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Web.Host, servePort)
	}

	server := api.NewServer(reg, launch, addr)

	// Pick up runs started from the CLI or the scheduler
	watcher, err := observer.NewRunWatcher(cfg.General.RunsDir, func(runIDs []string) {
		server.Broadcast(api.SSEEvent{Type: "run_updated", Data: runIDs})
	})
	if err != nil {
		logger.Warn("run watcher unavailable", "error", err)
	} else {
		watcher.Start(cmd.Context())
		defer watcher.Stop()
	}

	fmt.Printf("Repo Pilot API at http://%s\n", addr)
	return server.Start()
}
