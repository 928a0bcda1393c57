package tui

import (
	"strings"

	"Mansoor88-6/pondok-tracker/internal/session"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"github.com/charmbracelet/lipgloss"
)

const barWidth = 20

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	timerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F7DC6F"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	indicatorColors = map[usage.Indicator]lipgloss.Color{
		usage.IndicatorSuccess: lipgloss.Color("#04B575"),
		usage.IndicatorDanger:  lipgloss.Color("#FF6B6B"),
		usage.IndicatorNeutral: lipgloss.Color("#8E8E8E"),
	}

	badgeColors = map[session.Status]lipgloss.Color{
		session.StatusStandby: lipgloss.Color("#626262"),
		session.StatusActive:  lipgloss.Color("#04B575"),
		session.StatusIdle:    lipgloss.Color("#FFA500"),
		session.StatusPaused:  lipgloss.Color("#4A90E2"),
	}
)

func badge(p session.Phase) string {
	color := lipgloss.Color("#7D56F4")
	label := "REPORT"
	if s, ok := p.Status(); ok {
		label = strings.ToUpper(string(s))
		if c, found := badgeColors[s]; found {
			color = c
		}
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(color).
		Padding(0, 1).
		Render(label)
}

// bar renders fraction of barWidth cells in the indicator's colour.
// Fractions above one fill the bar.
func bar(fraction float64, indicator usage.Indicator) string {
	filled := int(fraction*barWidth + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	color, ok := indicatorColors[indicator]
	if !ok {
		color = indicatorColors[usage.IndicatorNeutral]
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		helpStyle.Render(strings.Repeat("░", barWidth-filled))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
