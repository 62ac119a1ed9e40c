package analyzers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// FailureEvent is one asset's transition into a failing status.
type FailureEvent struct {
	AssetID string          `json:"assetId"`
	Type    graph.AssetType `json:"type"`
	Status  graph.Status    `json:"status"`
	Zone    string          `json:"zone"`
	At      time.Time       `json:"at"`
	Reason  string          `json:"failureReason,omitempty"`
}

// FailureCluster groups failures that happened close together. Membership
// is a correlation hint only.
type FailureCluster struct {
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	SpanSec   float64           `json:"spanSeconds"`
	Members   []FailureEvent    `json:"members"`
	Zones     []string          `json:"zones"`
	Types     []graph.AssetType `json:"types"`
	Connected bool              `json:"graphConnected"`
	Severity  Severity          `json:"severity"`
	Analysis  string            `json:"analysis"`
}

// TemporalResult lists clusters in time order.
type TemporalResult struct {
	Window   time.Duration    `json:"window"`
	Events   int              `json:"events"`
	Clusters []FailureCluster `json:"clusters"`
}

func (r *TemporalResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.Clusters))
	for _, c := range r.Clusters {
		first := c.Members[0]
		ids := make([]string, len(c.Members))
		for i, m := range c.Members {
			ids[i] = m.AssetID
		}
		out = append(out, Finding{
			Analyzer:  NameTemporal,
			AssetID:   first.AssetID,
			AssetType: string(first.Type),
			Zone:      first.Zone,
			Severity:  c.Severity,
			Score:     float64(len(c.Members)),
			Title:     fmt.Sprintf("%s failed within %.0fs starting with %s", plural(len(c.Members), "asset", "assets"), c.SpanSec, first.AssetID),
			Detail:    c.Analysis,
			Props: map[string]string{
				"members":   fmt.Sprint(ids),
				"connected": fmt.Sprint(c.Connected),
				"start":     c.Start.Format(time.RFC3339),
			},
		})
	}
	return out
}

// CorrelateFailures clusters failing assets by the time they entered their
// status. Consecutive events no further apart than the window join the same
// cluster (single linkage).
func CorrelateFailures(in Input) *TemporalResult {
	s := in.Graph
	cfg := in.Config.Temporal
	failing := graph.StatusSetOf(cfg.FailureStatuses)

	var events []FailureEvent
	for _, a := range s.Filter(func(a *graph.Asset) bool { return failing.Has(a.Status) }) {
		at, ok := a.TransitionTime()
		if !ok {
			continue
		}
		events = append(events, FailureEvent{
			AssetID: a.ID, Type: a.Type, Status: a.Status,
			Zone: s.ZoneOf(a.ID), At: at, Reason: a.FailureReason,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].At.Equal(events[j].At) {
			return events[i].At.Before(events[j].At)
		}
		return events[i].AssetID < events[j].AssetID
	})

	res := &TemporalResult{Window: cfg.Window, Events: len(events), Clusters: []FailureCluster{}}
	flush := func(group []FailureEvent) {
		if len(group) < cfg.MinClusterSize {
			return
		}
		res.Clusters = append(res.Clusters, buildCluster(s, cfg.Severity.Level, group))
	}

	var cur []FailureEvent
	for _, e := range events {
		if len(cur) > 0 && e.At.Sub(cur[len(cur)-1].At) > cfg.Window {
			flush(cur)
			cur = nil
		}
		cur = append(cur, e)
	}
	flush(cur)
	return res
}

func buildCluster(s *graph.Snapshot, level func(float64) string, members []FailureEvent) FailureCluster {
	c := FailureCluster{
		Start:   members[0].At,
		End:     members[len(members)-1].At,
		Members: members,
	}
	c.SpanSec = c.End.Sub(c.Start).Seconds()

	zones := map[string]bool{}
	types := map[graph.AssetType]bool{}
	for _, m := range members {
		zones[m.Zone] = true
		types[m.Type] = true
	}
	c.Zones = sortedKeys(zones)
	for t := range types {
		c.Types = append(c.Types, t)
	}
	sort.Slice(c.Types, func(i, j int) bool { return c.Types[i] < c.Types[j] })

	// Union members over any edge between them.
	index := make(map[string]int, len(members))
	for i, m := range members {
		index[m.AssetID] = i
	}
	uf := graph.NewUnionFind(len(members))
	for i, m := range members {
		for _, n := range s.Out(m.AssetID) {
			if j, ok := index[n.Asset.ID]; ok {
				uf.Union(i, j)
			}
		}
	}
	c.Connected = len(uf.Groups()) == 1

	c.Severity = severityOf(level(float64(len(members))))
	hint := "no direct graph link between members; look for a shared external cause"
	if c.Connected {
		hint = "members are linked in the dependency graph; run root cause analysis on the latest failure"
	}
	c.Analysis = fmt.Sprintf("%s across %s failed within %.0fs: %s.",
		plural(len(members), "asset", "assets"), plural(len(c.Zones), "zone", "zones"), c.SpanSec, hint)
	return c
}

// TemporalAnalyzer wraps CorrelateFailures.
type TemporalAnalyzer struct{}

func (TemporalAnalyzer) Name() string { return NameTemporal }

func (TemporalAnalyzer) Analyze(_ context.Context, in Input) (Result, error) {
	return CorrelateFailures(in), nil
}
