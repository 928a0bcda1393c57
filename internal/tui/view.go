package tui

import (
	"fmt"
	"strings"

	"Mansoor88-6/pondok-tracker/internal/session"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) View() string {
	var body string
	if m.machine == nil {
		body = m.activationView()
	} else {
		body = m.trackingView()
	}

	if m.errText != "" {
		body += "\n" + errorStyle.Render(m.errText)
	}
	if m.offline {
		body += "\n" + errorStyle.Render("Tracking service offline")
	}
	return body + "\n"
}

func (m *Model) activationView() string {
	title := titleStyle.Render("Pondok Tracker")
	if m.restoring {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", "Connecting to the tracking service...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		"Enter the activation token from your dashboard",
		m.token.View(),
		"",
		helpStyle.Render("enter activate • esc quit"),
	)
}

func (m *Model) trackingView() string {
	st := m.machine.Snapshot()
	phase := m.machine.Phase()

	header := titleStyle.Render("Pondok Tracker")
	if m.cred.DisplayName != "" {
		header += " " + labelStyle.Render(m.cred.DisplayName)
	}

	timer := lipgloss.JoinHorizontal(lipgloss.Center,
		badge(phase), "  ", timerStyle.Render(session.FormatDuration(st.ElapsedSeconds)),
	)

	stats := fmt.Sprintf("%s %s   %s %s   %s %d%%",
		labelStyle.Render("Productive"), session.FormatDuration(st.ProductiveSeconds),
		labelStyle.Render("Idle"), session.FormatDuration(st.IdleSeconds),
		labelStyle.Render("Productivity"), st.ProductivityPercent(),
	)

	lines := []string{header, "", timer, stats}
	if st.CurrentApp != "" {
		lines = append(lines, labelStyle.Render("Now ")+truncate(st.CurrentApp, 30))
	}
	if apps := m.appsView(); apps != "" {
		lines = append(lines, "", apps)
	}
	lines = append(lines, "", m.formView(phase))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) appsView() string {
	ranked := m.machine.Ranking()
	if len(ranked) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(labelStyle.Render("Top applications"))
	for _, r := range ranked {
		fmt.Fprintf(&b, "\n%-20s %s %s",
			truncate(r.Name, 20),
			bar(r.Fraction, r.Indicator),
			session.FormatDuration(r.DurationSeconds),
		)
	}
	return boxStyle.Render(b.String())
}

func (m *Model) formView(phase session.Phase) string {
	if phase.IsAwaitingReport() {
		return lipgloss.JoinVertical(lipgloss.Left,
			"Session ended. Tell us how it went.",
			labelStyle.Render("Result"),
			m.result.View(),
			labelStyle.Render("Obstacle (optional)"),
			m.obstacle.View(),
			"",
			helpStyle.Render("tab switch field • enter submit • esc quit"),
		)
	}

	status, _ := phase.Status()
	switch status {
	case session.StatusStandby:
		return lipgloss.JoinVertical(lipgloss.Left,
			labelStyle.Render("Study plan"),
			m.plan.View(),
			"",
			helpStyle.Render("enter start • esc quit"),
		)
	case session.StatusPaused:
		return helpStyle.Render("r resume • e end • q quit")
	default:
		return helpStyle.Render("p pause • e end • q quit")
	}
}
