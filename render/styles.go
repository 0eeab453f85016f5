package render

import "github.com/charmbracelet/lipgloss"

// Color palette shared by the built-in widgets and the TUI host.
const (
	ColorPrimary   = "#7C3AED" // Violet - user input, headings
	ColorSecondary = "#10B981" // Green - assistant, success
	ColorAccent    = "#60A5FA" // Blue - labels
	ColorWarning   = "#F59E0B" // Amber - tool calls
	ColorError     = "#EF4444" // Red - errors

	ColorMuted  = "#6B7280" // Gray - context, hints
	ColorBorder = "#374151" // Dark gray - borders
	ColorText   = "#E5E7EB" // Light gray - base text
)

var (
	Primary   = lipgloss.Color(ColorPrimary)
	Secondary = lipgloss.Color(ColorSecondary)
	Accent    = lipgloss.Color(ColorAccent)
	Warning   = lipgloss.Color(ColorWarning)
	Error     = lipgloss.Color(ColorError)
	Muted     = lipgloss.Color(ColorMuted)
	Border    = lipgloss.Color(ColorBorder)
	Text      = lipgloss.Color(ColorText)
)

var (
	// UserStyle for user chunks
	UserStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	// ContextStyle for the system context seed
	ContextStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// ThinkStyle for thinking traces
	ThinkStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	// DoneStyle for completion markers
	DoneStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	// ErrorStyle for error chunks
	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	// ObservationStyle for chunk observations
	ObservationStyle = lipgloss.NewStyle().
				Foreground(Muted)

	// ToolBulletStyle and friends for tool call lines
	ToolBulletStyle = lipgloss.NewStyle().Foreground(Warning)
	ToolNameStyle   = lipgloss.NewStyle().Bold(true).Foreground(Text)
	ToolArgsStyle   = lipgloss.NewStyle().Foreground(Muted)

	// FallbackStyle for unregistered chunk types
	FallbackStyle = lipgloss.NewStyle().
			Foreground(Muted)
)
