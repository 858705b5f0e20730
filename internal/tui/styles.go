package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#BD93F9"))

	quoteStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6272A4")).
			Padding(1, 2).
			Width(60)

	categoryStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// notificationStyle colours a notification the way the server asks.
func notificationStyle(color string) lipgloss.Style {
	switch color {
	case "red":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	case "lightgreen", "green":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
	default:
		return lipgloss.NewStyle()
	}
}
