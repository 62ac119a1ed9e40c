package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewList() string {
	s := strings.Builder{}

	if m.waiting {
		return fmt.Sprintf("\n\n   %s Waiting for first analysis run...", m.spinner.View())
	}
	if len(m.visible) == 0 {
		if len(m.all) > 0 {
			return "\n\n   " + subtle.Render(fmt.Sprintf("No findings at %s or above. Press f to widen the filter.", m.MinSeverity))
		}
		return "\n\n   " + special.Render("[OK]") + subtle.Render("  No findings. Plant looks healthy.")
	}

	start, end := m.calculateWindow(len(m.visible))

	header := fmt.Sprintf("  %-9s %-20s %-22s %s", "SEVERITY", "ASSET", "ANALYZER", "TITLE")
	s.WriteString(subtle.Render(header) + "\n")

	status := fmt.Sprintf("[SORT: %s]", m.SortMode)
	if m.MinSeverity > 0 {
		status += fmt.Sprintf(" [FILTER: %s+]", m.MinSeverity)
	}
	s.WriteString(lipgloss.NewStyle().Foreground(colorWarning).Render("  "+status) + "\n")

	for i := start; i < end; i++ {
		f := m.visible[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		sev := severityStyle(f.Severity).Render(fmt.Sprintf("%-9s", strings.ToUpper(f.Severity.String())))
		rest := fmt.Sprintf(" %-20s %-22s %s", truncate(f.AssetID, 20), truncate(f.Analyzer, 22), truncate(f.Title, 60))

		if i == m.cursor {
			s.WriteString(listSelectedStyle.Render(cursor) + sev + listSelectedStyle.Render(rest) + "\n")
		} else {
			s.WriteString(cursor + sev + listNormalStyle.Render(rest) + "\n")
		}
	}
	if end < len(m.visible) {
		s.WriteString(subtle.Render(fmt.Sprintf("  ... %d more", len(m.visible)-end)) + "\n")
	}
	return s.String()
}

func (m Model) calculateWindow(total int) (int, int) {
	windowSize := m.height - 9
	if windowSize < 5 {
		windowSize = 5
	}

	start := m.cursor - (windowSize / 2)
	if start < 0 {
		start = 0
	}
	end := start + windowSize
	if end > total {
		end = total
		start = end - windowSize
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
