package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorNavy   = lipgloss.Color("#1B2A41")
	ColorWhite  = lipgloss.Color("#F5F5F5")
	ColorGray   = lipgloss.Color("#7A869A")
	ColorGreen  = lipgloss.Color("#49E209")
	ColorYellow = lipgloss.Color("#F7B73C")
	ColorRed    = lipgloss.Color("#FF6464")
	ColorBlue   = lipgloss.Color("#94DDFA")
)

var (
	titleStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorGreen).
			Bold(true).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGray)

	freshPaneStyle = paneStyle.BorderForeground(ColorGreen)

	paneTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)
	clockStyle     = lipgloss.NewStyle().Foreground(ColorGray)
	errorStyle     = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	rateStyle      = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	pausedStyle    = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	scrollStyle    = lipgloss.NewStyle().Foreground(ColorYellow)
)
