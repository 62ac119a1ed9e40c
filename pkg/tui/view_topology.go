package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// TopologyLine is one row of the zone tree: a zone header or an asset.
type TopologyLine struct {
	Text  string
	Level int
	Asset *graph.Asset
	Zone  *graph.ZoneHealth
}

// buildTopology flattens zones and their assets, zones by name and assets
// by id.
func buildTopology(s *graph.Snapshot) []TopologyLine {
	if s == nil {
		return nil
	}
	members := map[string][]*graph.Asset{}
	for _, a := range s.Assets() {
		if a.Type == graph.TypeZone {
			continue
		}
		z := s.ZoneOf(a.ID)
		members[z] = append(members[z], a)
	}

	var lines []TopologyLine
	for _, zh := range s.ZoneHealth() {
		lines = append(lines, TopologyLine{Text: zh.Zone, Zone: &zh})
		assets := members[zh.Zone]
		sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
		for i, a := range assets {
			branch := "├─ "
			if i == len(assets)-1 {
				branch = "└─ "
			}
			lines = append(lines, TopologyLine{Text: branch + a.ID, Level: 1, Asset: a})
		}
	}
	return lines
}

// viewTopology renders the zone hierarchy.
func (m Model) viewTopology() string {
	s := strings.Builder{}

	headerTxt := fmt.Sprintf("   %-40s | %-12s | %s", "ZONE -> ASSET", "STATUS", "INFO")
	s.WriteString(subtle.Render(headerTxt) + "\n")
	s.WriteString(subtle.Render("   "+strings.Repeat("─", 60)) + "\n")

	if len(m.topologyLines) == 0 {
		return s.String() + "\n   " + subtle.Render("No topology loaded.")
	}

	start, end := m.calculateTopologyWindow(len(m.topologyLines))
	for i := start; i < end; i++ {
		line := m.topologyLines[i]

		status, info := "", ""
		switch {
		case line.Zone != nil:
			status = fmt.Sprintf("%.1f%%", line.Zone.HealthPercent)
			info = fmt.Sprintf("%d assets, %d failing", line.Zone.Assets, line.Zone.Failing)
		case line.Asset != nil:
			status = string(line.Asset.Status)
			info = string(line.Asset.Type)
			if line.Asset.FailureReason != "" {
				info += ": " + line.Asset.FailureReason
			}
		}

		text := strings.Repeat("  ", line.Level) + line.Text
		display := fmt.Sprintf(" %-40s | %-12s | %s", truncate(text, 40), status, info)

		switch {
		case i == m.topologyCursor:
			s.WriteString(listSelectedStyle.Render("> "+display) + "\n")
		case line.Asset != nil && !line.Asset.Healthy():
			s.WriteString("  " + danger.Render(display) + "\n")
		case line.Zone != nil:
			s.WriteString("  " + highlight.Render(display) + "\n")
		default:
			s.WriteString("  " + listNormalStyle.Render(display) + "\n")
		}
	}
	return s.String()
}

func (m Model) calculateTopologyWindow(total int) (int, int) {
	windowSize := m.height - 9
	if windowSize < 5 {
		windowSize = 5
	}
	start := m.topologyCursor - (windowSize / 2)
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
