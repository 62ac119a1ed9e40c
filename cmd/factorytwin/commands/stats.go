package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/internal/app"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/report"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

type statsView struct {
	SnapshotVersion uint64             `json:"snapshotVersion"`
	Stats           graph.Stats        `json:"stats"`
	Zones           []graph.ZoneHealth `json:"zones"`
	Dangling        []string           `json:"danglingEdges,omitempty"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the graph and zone health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			snap := a.Engine.Graph().Load()
			v := statsView{
				SnapshotVersion: snap.Version(),
				Stats:           snap.Stats(),
				Zones:           snap.ZoneHealth(),
			}
			for _, d := range snap.Metadata().DanglingEdges {
				v.Dangling = append(v.Dangling, d.Error())
			}
			return emit(ctx, cmd, a, "", func(w io.Writer) error {
				if asJSON {
					return report.WriteJSON(w, v)
				}
				return writeStatsText(w, v)
			})
		})
	},
}

func writeStatsText(w io.Writer, v statsView) error {
	var b strings.Builder
	s := v.Stats
	fmt.Fprintf(&b, "Snapshot v%d\n", v.SnapshotVersion)
	fmt.Fprintf(&b, "Assets: %d  Relationships: %d  Dangling edges: %d\n", s.Assets, s.Relationships, s.DanglingEdges)
	fmt.Fprintf(&b, "Healthy: %d  Failing: %d  Uptime: %.1f%%\n", s.Healthy, s.Failing, s.UptimePercent)
	fmt.Fprintf(&b, "Subsystems: %d  Unlinked assets: %d\n\n", s.Subsystems, s.Unlinked)

	statuses := make([]string, 0, len(s.ByStatus))
	for st, n := range s.ByStatus {
		statuses = append(statuses, fmt.Sprintf("%s=%d", st, n))
	}
	sort.Strings(statuses)
	fmt.Fprintf(&b, "By status: %s\n\n", strings.Join(statuses, " "))

	fmt.Fprintf(&b, "%-20s %6s %8s %8s %8s\n", "ZONE", "ASSETS", "HEALTHY", "FAILING", "HEALTH")
	for _, z := range v.Zones {
		fmt.Fprintf(&b, "%-20s %6d %8d %8d %7.1f%%\n", z.Zone, z.Assets, z.Healthy, z.Failing, z.HealthPercent)
	}
	for _, d := range v.Dangling {
		fmt.Fprintf(&b, "\nwarning: %s", d)
	}
	if len(v.Dangling) > 0 {
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func init() {
	statsCmd.Flags().Bool("json", false, "Print JSON")
	rootCmd.AddCommand(statsCmd)
}
