package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/repopilot/repo-pilot/internal/domain"
	"github.com/repopilot/repo-pilot/internal/ledger"
)

// Store is the read surface the TUI refreshes from
type Store interface {
	ListRuns(opts ledger.ListOptions) ([]*domain.PipelineRun, error)
	ListBeads(q ledger.BeadQuery) ([]*domain.Bead, error)
}

// Model is the TUI application model
type Model struct {
	store Store

	// Data
	runs  []*domain.PipelineRun
	beads []*domain.Bead

	// Stats
	completedCount int
	failedCount    int
	runningCount   int

	// UI state
	width       int
	height      int
	activeTab   int
	selectedRow int
	scroll      int
	statusMsg   string

	// Refresh
	lastRefresh time.Time
}

// NewModel creates a new TUI model
func NewModel(store Store) Model {
	return Model{store: store}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		refreshCmd(m.store),
		tickCmd(),
	)
}

// TickMsg triggers a refresh
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// RunsMsg carries a fresh run listing
type RunsMsg struct {
	Runs []*domain.PipelineRun
	Err  error
}

func refreshCmd(store Store) tea.Cmd {
	return func() tea.Msg {
		runs, err := store.ListRuns(ledger.ListOptions{})
		return RunsMsg{Runs: runs, Err: err}
	}
}

// BeadsMsg carries the beads of the selected run
type BeadsMsg struct {
	Beads []*domain.Bead
	Err   error
}

func loadBeadsCmd(store Store, runID string) tea.Cmd {
	return func() tea.Msg {
		beads, err := store.ListBeads(ledger.BeadQuery{RunID: runID})
		return BeadsMsg{Beads: beads, Err: err}
	}
}

// SetRuns replaces the run list and recomputes the header stats
func (m *Model) SetRuns(runs []*domain.PipelineRun) {
	m.runs = runs
	m.completedCount = 0
	m.failedCount = 0
	m.runningCount = 0
	for _, r := range runs {
		switch r.Status {
		case domain.RunCompleted:
			m.completedCount++
		case domain.RunFailed:
			m.failedCount++
		case domain.RunRunning:
			m.runningCount++
		}
	}
	if m.selectedRow >= len(runs) {
		m.selectedRow = 0
		m.scroll = 0
	}
}

// SelectedRun returns the run under the cursor, if any
func (m Model) SelectedRun() *domain.PipelineRun {
	if m.selectedRow < 0 || m.selectedRow >= len(m.runs) {
		return nil
	}
	return m.runs[m.selectedRow]
}
