package console

import "github.com/charmbracelet/lipgloss"

var (
	successColor = lipgloss.Color("#43BF6D")
	errorColor   = lipgloss.Color("#FF5555")
	infoColor    = lipgloss.Color("#56B6C2")
	mutedColor   = lipgloss.Color("#626262")
	accentColor  = lipgloss.Color("#7D56F4")

	okStyle      = lipgloss.NewStyle().Foreground(successColor)
	ngStyle      = lipgloss.NewStyle().Foreground(errorColor)
	commentStyle = lipgloss.NewStyle().Foreground(mutedColor)
	infoStyle    = lipgloss.NewStyle().Foreground(infoColor)
	timeoutStyle = lipgloss.NewStyle().Foreground(errorColor).Italic(true)
	sentStyle    = lipgloss.NewStyle().Foreground(accentColor).Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			BorderTop(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(mutedColor)

	promptStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
)
