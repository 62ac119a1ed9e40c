package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
)

func (m Model) viewHUD() string {
	title := highlight.Render(m.title)
	if m.waiting {
		return hudStyle.Render(title + "  " + subtle.Render("[ WAITING ]"))
	}

	counts := map[analyzers.Severity]int{}
	for _, f := range m.all {
		counts[f.Severity]++
	}
	segs := []string{title}
	if m.graph != nil {
		segs = append(segs, hudLabelStyle.Render("ASSETS:")+fmt.Sprintf("%d", m.graph.Len()))
	}
	segs = append(segs, hudLabelStyle.Render("SNAPSHOT:")+fmt.Sprintf("v%d", m.version))
	for s := analyzers.SeverityCritical; s >= analyzers.SeverityLow; s-- {
		segs = append(segs, severityStyle(s).Render(fmt.Sprintf("%s:%d", strings.ToUpper(s.String()), counts[s])))
	}
	return hudStyle.Render(strings.Join(segs, "  "))
}

func (m Model) viewFooter() string {
	var help []string
	for _, b := range []key.Binding{keys.Down, keys.Up, keys.Enter, keys.Sort, keys.Filter, keys.Topology, keys.Quit} {
		h := b.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	return subtle.Render(" " + strings.Join(help, " • "))
}

func (m Model) viewHelp() string {
	var rows []string
	for _, b := range keys.all() {
		h := b.Help()
		rows = append(rows, fmt.Sprintf("  %-8s %s", h.Key, h.Desc))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		highlight.Render("KEYS"),
		strings.Join(rows, "\n"),
	)
}
