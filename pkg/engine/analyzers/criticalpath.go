package analyzers

import (
	"context"
	"fmt"
	"sort"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// Dependent is an asset reached downstream of a critical asset.
type Dependent struct {
	AssetID  string          `json:"assetId"`
	Type     graph.AssetType `json:"type"`
	Status   graph.Status    `json:"status"`
	Distance int             `json:"distance"`
}

// CriticalAsset is a ranked single point of failure candidate.
type CriticalAsset struct {
	AssetID        string          `json:"assetId"`
	Type           graph.AssetType `json:"type"`
	Status         graph.Status    `json:"status"`
	DependentCount int             `json:"dependentCount"`
	Score          int             `json:"criticalityScore"`
	SPOF           bool            `json:"isSPOF"`
	Dependents     []Dependent     `json:"dependencies"`
	Severity       Severity        `json:"severity"`
	Recommendation string          `json:"recommendation"`
}

// CriticalPathResult ranks assets by how much depends on them.
type CriticalPathResult struct {
	Ranked []CriticalAsset `json:"ranked"`
	// Candidates counts assets meeting the minimum dependent count.
	Candidates int `json:"candidates"`
}

func (r *CriticalPathResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.Ranked))
	for _, c := range r.Ranked {
		out = append(out, Finding{
			Analyzer:  NameCriticalPath,
			AssetID:   c.AssetID,
			AssetType: string(c.Type),
			Severity:  c.Severity,
			Score:     float64(c.Score),
			Title:     fmt.Sprintf("%s is a single point of failure for %s", c.AssetID, plural(c.DependentCount, "asset", "assets")),
			Detail:    c.Recommendation,
			Props:     map[string]string{"dependent_count": fmt.Sprint(c.DependentCount)},
		})
	}
	return out
}

// RankCriticalPaths scores every asset by its downstream reach and flags the
// top N as single points of failure.
func RankCriticalPaths(in Input) *CriticalPathResult {
	cfg := in.Config.CriticalPath
	types := relTypes(cfg.Types)
	res := &CriticalPathResult{Ranked: []CriticalAsset{}}

	for _, a := range in.Graph.Assets() {
		reached, _ := graph.Traverse(in.Graph, a.ID, graph.TraverseOptions{
			Direction: graph.Downstream,
			Types:     types,
			MaxHops:   cfg.MaxHops,
		})
		if len(reached) < cfg.MinDependents {
			continue
		}
		ca := CriticalAsset{
			AssetID:        a.ID,
			Type:           a.Type,
			Status:         a.Status,
			DependentCount: len(reached),
			Score:          len(reached) * cfg.ScoreWeight,
			Dependents:     make([]Dependent, 0, len(reached)),
		}
		for _, r := range reached {
			ca.Dependents = append(ca.Dependents, Dependent{AssetID: r.Asset.ID, Type: r.Asset.Type, Status: r.Asset.Status, Distance: r.Distance})
		}
		ca.Severity = classify(cfg.Severity, float64(ca.Score))
		ca.Recommendation = redundancyAdvice(ca)
		res.Ranked = append(res.Ranked, ca)
	}

	sort.SliceStable(res.Ranked, func(i, j int) bool {
		if res.Ranked[i].Score != res.Ranked[j].Score {
			return res.Ranked[i].Score > res.Ranked[j].Score
		}
		return res.Ranked[i].AssetID < res.Ranked[j].AssetID
	})
	res.Candidates = len(res.Ranked)
	if len(res.Ranked) > cfg.TopN {
		res.Ranked = res.Ranked[:cfg.TopN]
	}
	for i := range res.Ranked {
		res.Ranked[i].SPOF = true
	}
	return res
}

func redundancyAdvice(c CriticalAsset) string {
	switch c.Type {
	case graph.TypeUPS, graph.TypePowerSupply:
		return "CRITICAL: Add redundant power source"
	case graph.TypeRouter, graph.TypeNetworkSwitch:
		return "HIGH: Implement network redundancy"
	default:
		return fmt.Sprintf("Consider redundancy for %s", plural(c.DependentCount, "dependent system", "dependent systems"))
	}
}

// CriticalPathAnalyzer wraps RankCriticalPaths.
type CriticalPathAnalyzer struct{}

func (CriticalPathAnalyzer) Name() string { return NameCriticalPath }

func (CriticalPathAnalyzer) Analyze(_ context.Context, in Input) (Result, error) {
	return RankCriticalPaths(in), nil
}
