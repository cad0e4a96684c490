package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/repopilot/repo-pilot/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255")).
		Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	completedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	runningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("214"))

	failedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	skippedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))

	selectedStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	statusBarStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("236")).
		Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("244"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	header := fmt.Sprintf(" Repo Pilot │ Runs: %d │ Completed: %d │ Failed: %d │ Running: %d ",
		len(m.runs), m.completedCount, m.failedCount, m.runningCount)
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	switch m.activeTab {
	case 0:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderRuns()))
	case 1:
		b.WriteString(sectionStyle.Width(m.width - 2).Render(m.renderBeads()))
	}
	b.WriteString("\n")

	if m.statusMsg != "" {
		b.WriteString(failedStyle.Width(m.width).Render(" " + m.statusMsg + " "))
		b.WriteString("\n")
	}

	var statusBar string
	switch m.activeTab {
	case 1:
		statusBar = " [esc]back [j/k]scroll [r]efresh [q]uit "
	default:
		statusBar = " [tab]switch [j/k]navigate [enter]beads [r]efresh [q]uit "
	}
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{"Runs", "Beads"}
	var parts []string
	for i, tab := range tabs {
		if i == m.activeTab {
			parts = append(parts, tabActiveStyle.Render(tab))
		} else {
			parts = append(parts, tabInactiveStyle.Render(tab))
		}
	}
	return " " + strings.Join(parts, " │ ")
}

func (m Model) renderRuns() string {
	if len(m.runs) == 0 {
		return "No pipeline runs yet"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-28s %-10s %-8s %-8s %-10s %s\n",
		"RUN", "STATUS", "SCORE", "MERGE", "DURATION", "REPO"))

	maxVisible := 12
	end := m.scroll + maxVisible
	if end > len(m.runs) {
		end = len(m.runs)
	}

	for i := m.scroll; i < end; i++ {
		run := m.runs[i]

		score := "-"
		if run.Review != nil {
			score = fmt.Sprintf("%.1f", run.Review.OverallScore)
		}
		merge := "-"
		if run.MergeResult != nil {
			merge = string(run.MergeResult.Status)
		}

		line := fmt.Sprintf("%-28s %-10s %-8s %-8s %-10s %s",
			run.RunID, run.Status, score, merge,
			run.Duration.Round(1e9), run.TargetRepo)

		if i == m.selectedRow {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + runStatusStyle(run.Status).Render(line))
		}
		b.WriteString("\n")
	}

	if len(m.runs) > maxVisible {
		b.WriteString(skippedStyle.Render(fmt.Sprintf("  (%d of %d)", end, len(m.runs))))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderBeads() string {
	run := m.SelectedRun()
	if run == nil {
		return "No run selected"
	}
	if len(m.beads) == 0 {
		return fmt.Sprintf("No beads recorded for %s", run.RunID)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Beads of %s\n\n", run.RunID))
	b.WriteString(fmt.Sprintf("%-32s %-14s %-10s %-10s %s\n",
		"NAME", "CATEGORY", "STATUS", "DURATION", "OUTPUT"))

	maxVisible := 14
	start := m.scroll
	if start >= len(m.beads) {
		start = len(m.beads) - 1
	}
	end := start + maxVisible
	if end > len(m.beads) {
		end = len(m.beads)
	}

	for _, bead := range m.beads[start:end] {
		out := bead.OutputSummary
		if bead.Status == domain.BeadFailed {
			out = bead.Error
		}
		if len(out) > 48 {
			out = out[:45] + "..."
		}
		line := fmt.Sprintf("%-32s %-14s %-10s %-10s %s",
			truncate(bead.Name, 32), bead.Category, bead.Status,
			bead.Duration.Round(1e6), out)
		b.WriteString(beadStatusStyle(bead.Status).Render(line))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func runStatusStyle(s domain.RunStatus) lipgloss.Style {
	switch s {
	case domain.RunCompleted:
		return completedStyle
	case domain.RunFailed:
		return failedStyle
	default:
		return runningStyle
	}
}

func beadStatusStyle(s domain.BeadStatus) lipgloss.Style {
	switch s {
	case domain.BeadCompleted:
		return completedStyle
	case domain.BeadFailed:
		return failedStyle
	case domain.BeadSkipped:
		return skippedStyle
	default:
		return runningStyle
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
