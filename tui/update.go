package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, refreshCmd(m.store)
		case "j", "down":
			if m.activeTab == 0 {
				if m.selectedRow < len(m.runs)-1 {
					m.selectedRow++
				}
				maxVisible := 12
				if m.selectedRow >= m.scroll+maxVisible {
					m.scroll = m.selectedRow - maxVisible + 1
				}
			} else {
				m.scroll++
			}
		case "k", "up":
			if m.activeTab == 0 {
				if m.selectedRow > 0 {
					m.selectedRow--
				}
				if m.selectedRow < m.scroll {
					m.scroll = m.selectedRow
				}
			} else if m.scroll > 0 {
				m.scroll--
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % 2
			m.scroll = 0
		case "enter":
			if m.activeTab == 0 {
				if run := m.SelectedRun(); run != nil {
					m.activeTab = 1
					m.scroll = 0
					return m, loadBeadsCmd(m.store, run.RunID)
				}
			}
		case "esc":
			if m.activeTab == 1 {
				m.activeTab = 0
				m.scroll = 0
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		return m, tea.Batch(refreshCmd(m.store), tickCmd())

	case RunsMsg:
		if msg.Err != nil {
			m.statusMsg = "Refresh failed: " + msg.Err.Error()
			return m, nil
		}
		m.statusMsg = ""
		m.SetRuns(msg.Runs)
		m.lastRefresh = time.Now()

	case BeadsMsg:
		if msg.Err != nil {
			m.statusMsg = "Could not load beads: " + msg.Err.Error()
			return m, nil
		}
		m.statusMsg = ""
		m.beads = msg.Beads
	}

	return m, nil
}
