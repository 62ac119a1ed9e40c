package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewDetails() string {
	f, ok := m.Selected()
	if !ok {
		return "No finding selected"
	}

	header := detailsHeaderStyle.Render(fmt.Sprintf("%s : %s", f.Analyzer, f.AssetID))

	summary := lipgloss.JoinVertical(lipgloss.Left,
		severityStyle(f.Severity).Render(fmt.Sprintf("SEVERITY:   %s", strings.ToUpper(f.Severity.String()))),
		fmt.Sprintf("SCORE:      %s", formatScore(f.Score)),
		fmt.Sprintf("ASSET TYPE: %s", orDash(f.AssetType)),
		fmt.Sprintf("ZONE:       %s", orDash(f.Zone)),
	)

	keys := make([]string, 0, len(f.Props))
	for k := range f.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	props := make([]string, 0, len(keys))
	for _, k := range keys {
		props = append(props, fmt.Sprintf("%-20s : %s", k, f.Props[k]))
	}

	parts := []string{header, "", highlight.Render(f.Title), summary}
	if f.Detail != "" {
		parts = append(parts, "", f.Detail)
	}
	if len(props) > 0 {
		parts = append(parts, "", subtle.Render(strings.Join(props, "\n")))
	}
	if len(f.Notes) > 0 {
		parts = append(parts, "", warning.Render("POLICY NOTES:"))
		for _, n := range f.Notes {
			parts = append(parts, "  - "+n)
		}
	}
	parts = append(parts, "", strings.Repeat("─", 50), subtle.Render("[enter/esc] back to list"))

	return detailsBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
