package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary   = lipgloss.Color("#22d3ee") // cyan
	colorSecondary = lipgloss.Color("#2563eb") // blue
	colorBorder    = lipgloss.Color("#1f2937")
	colorText      = lipgloss.Color("#cffafe")
	colorTextMute  = lipgloss.Color("#6b7280")
	colorError     = lipgloss.Color("#f87171")
	colorDisabled  = lipgloss.Color("#9ca3af")
)

var (
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	messagesAreaStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder).
				Padding(0, 1)

	// User bubbles sit on the right, assistant bubbles on the left.
	userBubbleStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorSecondary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#3b82f6")).
			Bold(true).
			Padding(0, 3)

	buttonDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ffffff")).
				Background(colorDisabled).
				Padding(0, 3)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Italic(true)

	loadingStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorTextMute)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)
)
