package style

import "github.com/charmbracelet/lipgloss"

// HealthStyles provides styling for the endpoint health panel
type HealthStyles struct {
	Container lipgloss.Style
	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Healthy   lipgloss.Style
	Unhealthy lipgloss.Style
	Pending   lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
}

// NewHealthStyles creates health panel styles with the given palette
func NewHealthStyles(palette Palette) HealthStyles {
	return HealthStyles{
		Container: lipgloss.NewStyle().
			Foreground(palette.Text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true).
			MarginBottom(1),

		Label: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			Width(14),

		Value: lipgloss.NewStyle().
			Foreground(palette.TextSecondary),

		Healthy: lipgloss.NewStyle().
			Foreground(palette.Success).
			Bold(true),

		Unhealthy: lipgloss.NewStyle().
			Foreground(palette.Error).
			Bold(true),

		Pending: lipgloss.NewStyle().
			Foreground(palette.Warning),

		Error: lipgloss.NewStyle().
			Foreground(palette.Error),

		Help: lipgloss.NewStyle().
			Foreground(palette.TextMuted).
			MarginTop(1),
	}
}
