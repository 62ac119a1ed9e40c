package analyzers

import (
	"context"
	"fmt"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// ImpactedAsset is one downstream asset of a cascade.
type ImpactedAsset struct {
	AssetID   string          `json:"assetId"`
	Type      graph.AssetType `json:"type"`
	Status    graph.Status    `json:"status"`
	IPAddress string          `json:"ipAddress,omitempty"`
	Distance  int             `json:"distance"`
	Hops      string          `json:"hops"`
	Affected  bool            `json:"currentlyAffected"`
	Impact    string          `json:"impact"`
}

// CascadeResult is the downstream blast radius of Source.
type CascadeResult struct {
	Source       string          `json:"source"`
	SourceType   graph.AssetType `json:"sourceType"`
	SourceStatus graph.Status    `json:"sourceStatus"`

	TotalDownstream   int             `json:"totalDownstream"`
	CurrentlyAffected int             `json:"currentlyAffected"`
	PotentialImpact   int             `json:"potentialImpact"`
	ImpactRadius      int             `json:"impactRadius"`
	Breakdown         []ImpactedAsset `json:"breakdown"`

	Severity Severity `json:"severity"`
	Analysis string   `json:"analysis"`
}

func (r *CascadeResult) Findings() []Finding {
	if r.TotalDownstream == 0 {
		return nil
	}
	return []Finding{{
		Analyzer:  NameCascade,
		AssetID:   r.Source,
		AssetType: string(r.SourceType),
		Severity:  r.Severity,
		Score:     float64(r.TotalDownstream),
		Title:     fmt.Sprintf("%s reaches %s downstream", r.Source, plural(r.TotalDownstream, "asset", "assets")),
		Detail:    r.Analysis,
		Props: map[string]string{
			"total_downstream":   fmt.Sprint(r.TotalDownstream),
			"currently_affected": fmt.Sprint(r.CurrentlyAffected),
			"impact_radius":      fmt.Sprint(r.ImpactRadius),
		},
	}}
}

// AnalyzeCascade walks downstream from source and counts what is reached and
// what is already failing.
func AnalyzeCascade(in Input, source string) (*CascadeResult, error) {
	cfg := in.Config.Cascade
	src, err := in.Graph.Asset(source)
	if err != nil {
		return nil, err
	}
	reached, err := graph.Traverse(in.Graph, source, graph.TraverseOptions{
		Direction: graph.Downstream,
		Types:     relTypes(cfg.Types),
		MaxHops:   cfg.MaxHops,
	})
	if err != nil {
		return nil, err
	}

	affected := graph.StatusSetOf(cfg.AffectedStatuses)
	res := &CascadeResult{
		Source:          src.ID,
		SourceType:      src.Type,
		SourceStatus:    src.Status,
		TotalDownstream: len(reached),
		Breakdown:       make([]ImpactedAsset, 0, len(reached)),
	}
	for _, r := range reached {
		ia := ImpactedAsset{
			AssetID:   r.Asset.ID,
			Type:      r.Asset.Type,
			Status:    r.Asset.Status,
			IPAddress: r.Asset.IPAddress,
			Distance:  r.Distance,
			Hops:      fmt.Sprintf("%d hop(s) away", r.Distance),
			Affected:  affected.Has(r.Asset.Status),
			Impact:    "Would be affected",
		}
		if ia.Affected {
			ia.Impact = "Currently affected"
			res.CurrentlyAffected++
		}
		if r.Distance > res.ImpactRadius {
			res.ImpactRadius = r.Distance
		}
		// Traverse already orders by distance then id.
		res.Breakdown = append(res.Breakdown, ia)
	}
	res.PotentialImpact = res.TotalDownstream - res.CurrentlyAffected
	res.Severity = classify(cfg.Severity, float64(res.CurrentlyAffected))
	res.Analysis = fmt.Sprintf("If %s fails, %s would be affected (%d currently failing). Maximum cascade depth: %d hop(s).",
		src.ID, plural(res.TotalDownstream, "downstream system", "downstream systems"), res.CurrentlyAffected, res.ImpactRadius)
	return res, nil
}

// CascadeScan holds the cascade of every unhealthy asset with dependents.
type CascadeScan struct {
	Results []*CascadeResult `json:"results"`
}

func (r *CascadeScan) Findings() []Finding {
	var out []Finding
	for _, res := range r.Results {
		out = append(out, res.Findings()...)
	}
	return out
}

// CascadeAnalyzer runs AnalyzeCascade for Source, or for every unhealthy
// asset when Source is empty.
type CascadeAnalyzer struct {
	Source string
}

func (a *CascadeAnalyzer) Name() string { return NameCascade }

func (a *CascadeAnalyzer) Analyze(_ context.Context, in Input) (Result, error) {
	if a.Source != "" {
		return AnalyzeCascade(in, a.Source)
	}
	scan := &CascadeScan{Results: []*CascadeResult{}}
	for _, asset := range unhealthy(in.Graph) {
		res, err := AnalyzeCascade(in, asset.ID)
		if err != nil {
			return nil, err
		}
		if res.TotalDownstream > 0 {
			scan.Results = append(scan.Results, res)
		}
	}
	return scan, nil
}
