package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Status colors follow the classification palette.
	fraudColor      = lipgloss.Color("#FF6B6B")
	alertColor      = lipgloss.Color("#FFE66D")
	legitimateColor = lipgloss.Color("#4ECDC4")
	subtleColor     = lipgloss.Color("#666666")
	accentColor     = lipgloss.Color("#95E1D3")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtleColor).
			Padding(0, 2).
			MarginRight(1)

	cardTitleStyle = lipgloss.NewStyle().
			Foreground(subtleColor)

	cardValueStyle = lipgloss.NewStyle().
			Bold(true)

	fraudStyle      = lipgloss.NewStyle().Foreground(fraudColor).Bold(true)
	alertStyle      = lipgloss.NewStyle().Foreground(alertColor)
	legitimateStyle = lipgloss.NewStyle().Foreground(legitimateColor)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(subtleColor).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(fraudColor).
			Bold(true)
)
