package analyzers

import (
	"context"
	"fmt"
	"sort"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// Bottleneck patterns.
const (
	PatternWidespread = "widespread"
	PatternLocalized  = "localized"
)

// Bottleneck is a degraded or saturated asset with its correlated issues.
type Bottleneck struct {
	AssetID         string          `json:"assetId"`
	Type            graph.AssetType `json:"type"`
	Status          graph.Status    `json:"status"`
	Zone            string          `json:"zone"`
	Utilization     *float64        `json:"utilizationPercent,omitempty"`
	ResponseTimeMs  *float64        `json:"responseTimeMs,omitempty"`
	RelatedIssues   int             `json:"relatedIssues"`
	RelatedAssets   []string        `json:"relatedAssets"`
	RelatedZones    []string        `json:"relatedZones"`
	DependencyCount int             `json:"dependencyCount"`
	Score           int             `json:"bottleneckScore"`
	Pattern         string          `json:"pattern"`
	Severity        Severity        `json:"severity"`
	Recommendation  string          `json:"recommendation"`
}

// BottleneckResult ranks bottlenecks by score.
type BottleneckResult struct {
	Bottlenecks []Bottleneck `json:"bottlenecks"`
	Total       int          `json:"total"`
}

func (r *BottleneckResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.Bottlenecks))
	for _, b := range r.Bottlenecks {
		out = append(out, Finding{
			Analyzer:  NameBottleneck,
			AssetID:   b.AssetID,
			AssetType: string(b.Type),
			Zone:      b.Zone,
			Severity:  b.Severity,
			Score:     float64(b.Score),
			Title:     fmt.Sprintf("%s %s bottleneck (%s related)", b.AssetID, b.Pattern, plural(b.RelatedIssues, "issue", "issues")),
			Detail:    b.Recommendation,
			Props: map[string]string{
				"pattern":          b.Pattern,
				"dependency_count": fmt.Sprint(b.DependencyCount),
			},
		})
	}
	return out
}

// FindBottlenecks correlates degraded assets with nearby degraded assets and
// their dependency fan-in.
func FindBottlenecks(in Input) *BottleneckResult {
	s := in.Graph
	cfg := in.Config.Bottleneck
	troubled := graph.StatusSetOf(cfg.Statuses)
	adjTypes := relTypes(cfg.AdjacencyTypes)
	depTypes := relTypes(cfg.DependencyTypes)

	isCandidate := func(a *graph.Asset) bool {
		if a.Type == graph.TypeZone {
			return false
		}
		if troubled.Has(a.Status) {
			return true
		}
		u, ok := a.Utilization()
		return ok && u > cfg.UtilizationThreshold
	}

	// Zone membership of troubled assets, computed once.
	byZone := map[string][]string{}
	for _, a := range s.Filter(func(a *graph.Asset) bool { return troubled.Has(a.Status) && a.Type != graph.TypeZone }) {
		z := s.ZoneOf(a.ID)
		byZone[z] = append(byZone[z], a.ID)
	}

	res := &BottleneckResult{Bottlenecks: []Bottleneck{}}
	for _, a := range s.Filter(isCandidate) {
		zone := s.ZoneOf(a.ID)
		related := map[string]bool{}
		if zone != graph.ZoneUnassigned {
			for _, id := range byZone[zone] {
				related[id] = true
			}
		}
		for _, n := range append(s.Out(a.ID, adjTypes...), s.In(a.ID, adjTypes...)...) {
			if troubled.Has(n.Asset.Status) {
				related[n.Asset.ID] = true
			}
		}
		delete(related, a.ID)

		b := Bottleneck{
			AssetID:         a.ID,
			Type:            a.Type,
			Status:          a.Status,
			Zone:            zone,
			Utilization:     a.UtilizationPercent,
			ResponseTimeMs:  a.ResponseTimeMs,
			RelatedAssets:   sortedKeys(related),
			DependencyCount: s.InDegree(a.ID, depTypes...),
		}
		zones := map[string]bool{}
		for _, id := range b.RelatedAssets {
			zones[s.ZoneOf(id)] = true
		}
		b.RelatedZones = sortedKeys(zones)
		b.RelatedIssues = len(b.RelatedAssets)
		b.Score = b.RelatedIssues*cfg.RelatedWeight + b.DependencyCount
		b.Pattern = PatternLocalized
		if len(b.RelatedZones) > 1 {
			b.Pattern = PatternWidespread
		}
		b.Severity = classify(cfg.Severity, float64(b.Score))
		b.Recommendation = bottleneckAdvice(b)
		res.Bottlenecks = append(res.Bottlenecks, b)
	}

	sort.SliceStable(res.Bottlenecks, func(i, j int) bool {
		if res.Bottlenecks[i].Score != res.Bottlenecks[j].Score {
			return res.Bottlenecks[i].Score > res.Bottlenecks[j].Score
		}
		return res.Bottlenecks[i].AssetID < res.Bottlenecks[j].AssetID
	})
	res.Total = len(res.Bottlenecks)
	if len(res.Bottlenecks) > cfg.TopN {
		res.Bottlenecks = res.Bottlenecks[:cfg.TopN]
	}
	return res
}

func bottleneckAdvice(b Bottleneck) string {
	if b.Type == graph.TypeServer && b.Utilization != nil && *b.Utilization > 90 {
		return "Scale resources or optimize workload"
	}
	if b.Pattern == PatternWidespread {
		return "Check zone-level infrastructure (network, power, etc.)"
	}
	if b.DependencyCount > 5 {
		return fmt.Sprintf("Potential bottleneck: %s rely on %s", plural(b.DependencyCount, "asset", "assets"), b.AssetID)
	}
	return "Investigate asset-specific performance metrics"
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BottleneckAnalyzer wraps FindBottlenecks.
type BottleneckAnalyzer struct{}

func (BottleneckAnalyzer) Name() string { return NameBottleneck }

func (BottleneckAnalyzer) Analyze(_ context.Context, in Input) (Result, error) {
	return FindBottlenecks(in), nil
}
