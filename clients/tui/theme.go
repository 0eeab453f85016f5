package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/agentflow/render"
	"github.com/dohr-michael/agentflow/taskdata"
)

var (
	tabBarStyle = lipgloss.NewStyle().
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(render.Muted)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(render.Primary).
			Bold(true).
			Underline(true)

	tabSeparatorStyle = lipgloss.NewStyle().
				Foreground(render.Border)

	inputSeparatorStyle = lipgloss.NewStyle().
				Foreground(render.Border)

	promptCharStyle = lipgloss.NewStyle().
			Foreground(render.Primary).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(render.Muted).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(render.Muted).
			Italic(true)
)

// statusGlyph maps a task status to its tab indicator.
func statusGlyph(status taskdata.Status) string {
	switch status {
	case taskdata.StatusProcessing:
		return "…"
	case taskdata.StatusDone:
		return "✓"
	case taskdata.StatusFailed:
		return "✗"
	default:
		return "·"
	}
}
