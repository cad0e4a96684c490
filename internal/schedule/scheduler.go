package schedule

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/repopilot/repo-pilot/internal/config"
)

// Scheduler manages recurring pipeline runs. Each schedule names a
// target repository and a cron expression; a schedule never overlaps
// with itself, a run still in flight suppresses the next tick.
type Scheduler struct {
	schedules map[string]config.ScheduleConfig
	parser    cron.Parser
	lastRun   map[string]time.Time
	running   map[string]bool
	logger    *slog.Logger
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewScheduler creates a scheduler from validated schedule entries
func NewScheduler(schedules []config.ScheduleConfig, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		schedules: make(map[string]config.ScheduleConfig),
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		lastRun:   make(map[string]time.Time),
		running:   make(map[string]bool),
		logger:    logger,
		stopChan:  make(chan struct{}),
	}

	for _, cfg := range schedules {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		s.schedules[cfg.Name] = cfg
	}

	return s, nil
}

// ParseCron parses a standard five-field cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// NextRun returns the next scheduled run time for a schedule
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.schedules[name]
	if !ok {
		return time.Time{}
	}

	sched, err := s.parser.Parse(cfg.Cron)
	if err != nil {
		return time.Time{}
	}

	return sched.Next(time.Now())
}

// ShouldRun returns true if a schedule is due and not already running
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.schedules[name]
	if !ok {
		return false
	}

	if s.running[name] {
		return false
	}

	sched, err := s.parser.Parse(cfg.Cron)
	if err != nil {
		return false
	}

	lastRun := s.lastRun[name]
	if lastRun.IsZero() {
		lastRun = time.Now().Add(-24 * time.Hour)
	}

	nextRun := sched.Next(lastRun)
	return time.Now().After(nextRun)
}

// MarkRunning marks a schedule as currently running
func (s *Scheduler) MarkRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

// MarkComplete marks a schedule as complete and records the run time
func (s *Scheduler) MarkComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = time.Now()
}

// GetSchedule returns the config for a schedule
func (s *Scheduler) GetSchedule(name string) (config.ScheduleConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.schedules[name]
	return cfg, ok
}

// ListSchedules returns all schedule names
func (s *Scheduler) ListSchedules() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.schedules))
	for name := range s.schedules {
		names = append(names, name)
	}
	return names
}

// Start begins the scheduler loop. runFunc is invoked on its own
// goroutine for each due schedule; Start blocks until Stop is called.
func (s *Scheduler) Start(runFunc func(config.ScheduleConfig) error) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			for name := range s.schedules {
				if s.ShouldRun(name) {
					cfg, _ := s.GetSchedule(name)
					s.MarkRunning(name)
					s.logger.Info("schedule due", "schedule", cfg.Name, "repo", cfg.RepoPath)
					go func(c config.ScheduleConfig) {
						if err := runFunc(c); err != nil {
							s.logger.Error("scheduled run failed", "schedule", c.Name, "error", err)
						}
						s.MarkComplete(c.Name)
					}(cfg)
				}
			}
		}
	}
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}
