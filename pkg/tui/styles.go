package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
)

var (
	colorNeonGreen  = lipgloss.Color("#00FF99") // healthy
	colorNeonPurple = lipgloss.Color("#874BFD") // header / border
	colorTextMain   = lipgloss.Color("#E2E8F0")
	colorTextSub    = lipgloss.Color("#64748B")
	colorDanger     = lipgloss.Color("#FF0055")
	colorHigh       = lipgloss.Color("#FF7A00")
	colorWarning    = lipgloss.Color("#F59E0B")

	subtle    = lipgloss.NewStyle().Foreground(colorTextSub)
	highlight = lipgloss.NewStyle().Foreground(colorNeonPurple).Bold(true)
	special   = lipgloss.NewStyle().Foreground(colorNeonGreen).Bold(true)
	danger    = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	warning   = lipgloss.NewStyle().Foreground(colorWarning)

	hudStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorNeonPurple).
			Padding(0, 1).
			Foreground(colorTextMain)

	hudLabelStyle = lipgloss.NewStyle().
			Foreground(colorTextSub).
			Bold(true).
			MarginRight(1)

	listSelectedStyle = lipgloss.NewStyle().
				Foreground(colorTextMain).
				Background(lipgloss.Color("#331832")).
				Bold(true)

	listNormalStyle = lipgloss.NewStyle().Foreground(colorTextMain)

	detailsBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorNeonGreen).
			Padding(1, 2).
			MarginTop(1)

	detailsHeaderStyle = lipgloss.NewStyle().
				Foreground(colorNeonPurple).
				Bold(true).
				Underline(true)
)

var severityStyles = map[analyzers.Severity]lipgloss.Style{
	analyzers.SeverityCritical: lipgloss.NewStyle().Foreground(colorDanger).Bold(true),
	analyzers.SeverityHigh:     lipgloss.NewStyle().Foreground(colorHigh),
	analyzers.SeverityMedium:   lipgloss.NewStyle().Foreground(colorWarning),
	analyzers.SeverityLow:      lipgloss.NewStyle().Foreground(colorTextSub),
}

func severityStyle(s analyzers.Severity) lipgloss.Style {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return subtle
}
