package analyzers

import (
	"context"
	"fmt"
	"sort"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// IsolatedDevice is an asset cut off behind a failed network device.
type IsolatedDevice struct {
	AssetID  string          `json:"assetId"`
	Type     graph.AssetType `json:"type"`
	Status   graph.Status    `json:"status"`
	Distance int             `json:"distance"`
}

// NetworkFailure is one failed network device and what it isolates.
type NetworkFailure struct {
	Device         string           `json:"device"`
	DeviceType     graph.AssetType  `json:"deviceType"`
	Status         graph.Status     `json:"status"`
	IPAddress      string           `json:"ipAddress,omitempty"`
	Zone           string           `json:"zone"`
	IsolatedCount  int              `json:"isolatedCount"`
	Isolated       []IsolatedDevice `json:"isolatedDevices"`
	Severity       Severity         `json:"severity"`
	Recommendation string           `json:"recommendation"`
}

// IsolationResult lists failed network devices, most isolating first.
type IsolationResult struct {
	Failures []NetworkFailure `json:"failures"`
	// Total counts failed devices before the top N cut.
	Total int `json:"total"`
}

func (r *IsolationResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, Finding{
			Analyzer:  NameIsolation,
			AssetID:   f.Device,
			AssetType: string(f.DeviceType),
			Zone:      f.Zone,
			Severity:  f.Severity,
			Score:     float64(f.IsolatedCount),
			Title:     fmt.Sprintf("%s %s isolates %s", f.DeviceType, f.Device, plural(f.IsolatedCount, "device", "devices")),
			Detail:    f.Recommendation,
			Props:     map[string]string{"isolated_count": fmt.Sprint(f.IsolatedCount)},
		})
	}
	return out
}

// DetectIsolation finds failed network devices and the unreachable assets
// behind them.
func DetectIsolation(in Input) *IsolationResult {
	cfg := in.Config.Isolation
	devices := typeSet(cfg.DeviceTypes)
	failing := graph.StatusSetOf(cfg.FailureStatuses)
	isolated := graph.StatusSetOf(cfg.IsolatedStatuses)

	res := &IsolationResult{Failures: []NetworkFailure{}}
	for _, d := range in.Graph.Filter(func(a *graph.Asset) bool { return devices[a.Type] && failing.Has(a.Status) }) {
		reached, _ := graph.Traverse(in.Graph, d.ID, graph.TraverseOptions{
			Direction: graph.Downstream,
			Types:     []graph.RelationshipType{graph.ConnectsTo},
			MaxHops:   cfg.MaxHops,
			Predicate: func(a *graph.Asset) bool { return isolated.Has(a.Status) },
		})
		nf := NetworkFailure{
			Device:     d.ID,
			DeviceType: d.Type,
			Status:     d.Status,
			IPAddress:  d.IPAddress,
			Zone:       in.Graph.ZoneOf(d.ID),
			Isolated:   make([]IsolatedDevice, 0, len(reached)),
		}
		for _, r := range reached {
			nf.Isolated = append(nf.Isolated, IsolatedDevice{AssetID: r.Asset.ID, Type: r.Asset.Type, Status: r.Asset.Status, Distance: r.Distance})
		}
		nf.IsolatedCount = len(nf.Isolated)
		nf.Severity = classify(cfg.Severity, float64(nf.IsolatedCount))
		nf.Recommendation = isolationAdvice(nf)
		res.Failures = append(res.Failures, nf)
	}

	sort.SliceStable(res.Failures, func(i, j int) bool {
		if res.Failures[i].IsolatedCount != res.Failures[j].IsolatedCount {
			return res.Failures[i].IsolatedCount > res.Failures[j].IsolatedCount
		}
		return res.Failures[i].Device < res.Failures[j].Device
	})
	res.Total = len(res.Failures)
	if len(res.Failures) > cfg.TopN {
		res.Failures = res.Failures[:cfg.TopN]
	}
	return res
}

func isolationAdvice(nf NetworkFailure) string {
	switch nf.DeviceType {
	case graph.TypeRouter:
		return "Critical: Router failure causing network segmentation"
	case graph.TypeFirewall:
		return fmt.Sprintf("Review firewall policy and failover: %s unreachable", plural(nf.IsolatedCount, "device", "devices"))
	case graph.TypeNetworkSwitch:
		return fmt.Sprintf("High: Switch failure isolating %s", plural(nf.IsolatedCount, "device", "devices"))
	default:
		return "Check network connectivity"
	}
}

// IsolationAnalyzer wraps DetectIsolation.
type IsolationAnalyzer struct{}

func (IsolationAnalyzer) Name() string { return NameIsolation }

func (IsolationAnalyzer) Analyze(_ context.Context, in Input) (Result, error) {
	return DetectIsolation(in), nil
}
