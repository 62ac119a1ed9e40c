package analyzers

import (
	"context"
	"fmt"
	"sort"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// PoweredAsset is equipment fed by a power source.
type PoweredAsset struct {
	AssetID     string          `json:"assetId"`
	Type        graph.AssetType `json:"type"`
	Status      graph.Status    `json:"status"`
	Distance    int             `json:"distance"`
	Criticality string          `json:"criticality"`
}

// PowerRisk is one troubled power source and the load behind it.
type PowerRisk struct {
	Source           string          `json:"source"`
	SourceType       graph.AssetType `json:"sourceType"`
	SourceStatus     graph.Status    `json:"sourceStatus"`
	BatteryLevel     *float64        `json:"batteryLevel,omitempty"`
	AffectedCount    int             `json:"affectedCount"`
	CriticalCount    int             `json:"criticalEquipment"`
	CurrentlyOffline int             `json:"currentlyOffline"`
	Affected         []PoweredAsset  `json:"affectedEquipment"`
	RiskScore        int             `json:"riskScore"`
	Severity         Severity        `json:"severity"`
	Recommendation   string          `json:"recommendation"`
}

// PowerRiskResult ranks power sources by risk score.
type PowerRiskResult struct {
	Risks []PowerRisk `json:"risks"`
	Total int         `json:"total"`
}

func (r *PowerRiskResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.Risks))
	for _, p := range r.Risks {
		props := map[string]string{
			"affected": fmt.Sprint(p.AffectedCount),
			"critical": fmt.Sprint(p.CriticalCount),
			"offline":  fmt.Sprint(p.CurrentlyOffline),
		}
		if p.BatteryLevel != nil {
			props["battery_level"] = fmt.Sprintf("%.0f", *p.BatteryLevel)
		}
		out = append(out, Finding{
			Analyzer:  NamePower,
			AssetID:   p.Source,
			AssetType: string(p.SourceType),
			Severity:  p.Severity,
			Score:     float64(p.RiskScore),
			Title:     fmt.Sprintf("%s is %s with %s behind it", p.Source, p.SourceStatus, plural(p.AffectedCount, "powered asset", "powered assets")),
			Detail:    p.Recommendation,
			Props:     props,
		})
	}
	return out
}

// AssessPowerRisk scores every power source in a trigger status by the
// criticality of what it powers.
func AssessPowerRisk(in Input) *PowerRiskResult {
	cfg := in.Config.Power
	sources := typeSet(cfg.SourceTypes)
	trigger := graph.StatusSetOf(cfg.TriggerStatuses)
	down := graph.StatusSetOf(in.Config.RootCause.FailureStatuses)

	res := &PowerRiskResult{Risks: []PowerRisk{}}
	for _, src := range in.Graph.Filter(func(a *graph.Asset) bool { return sources[a.Type] && trigger.Has(a.Status) }) {
		reached, _ := graph.Traverse(in.Graph, src.ID, graph.TraverseOptions{
			Direction: graph.Downstream,
			Types:     []graph.RelationshipType{graph.Powers},
			MaxHops:   cfg.MaxHops,
		})
		pr := PowerRisk{
			Source:       src.ID,
			SourceType:   src.Type,
			SourceStatus: src.Status,
			BatteryLevel: src.BatteryLevel,
			Affected:     make([]PoweredAsset, 0, len(reached)),
		}
		for _, r := range reached {
			crit := cfg.CriticalityOf(string(r.Asset.Type))
			if crit == "critical" {
				pr.CriticalCount++
			}
			if down.Has(r.Asset.Status) {
				pr.CurrentlyOffline++
			}
			pr.Affected = append(pr.Affected, PoweredAsset{
				AssetID:     r.Asset.ID,
				Type:        r.Asset.Type,
				Status:      r.Asset.Status,
				Distance:    r.Distance,
				Criticality: crit,
			})
		}
		pr.AffectedCount = len(pr.Affected)
		pr.RiskScore = pr.CriticalCount*cfg.CriticalWeight + pr.AffectedCount
		pr.Severity = classify(cfg.Severity, float64(pr.RiskScore))
		pr.Recommendation = powerAdvice(pr)
		res.Risks = append(res.Risks, pr)
	}

	sort.SliceStable(res.Risks, func(i, j int) bool {
		if res.Risks[i].RiskScore != res.Risks[j].RiskScore {
			return res.Risks[i].RiskScore > res.Risks[j].RiskScore
		}
		return res.Risks[i].Source < res.Risks[j].Source
	})
	res.Total = len(res.Risks)
	if len(res.Risks) > cfg.TopN {
		res.Risks = res.Risks[:cfg.TopN]
	}
	return res
}

func powerAdvice(p PowerRisk) string {
	switch p.SourceStatus {
	case graph.StatusBattery:
		msg := fmt.Sprintf("URGENT: %s on battery - %s at risk", p.SourceType, plural(p.CriticalCount, "critical system", "critical systems"))
		if p.BatteryLevel != nil {
			msg += fmt.Sprintf(" (%.0f%% remaining)", *p.BatteryLevel)
		}
		return msg
	case graph.StatusOffline, graph.StatusError, graph.StatusFailed:
		return "CRITICAL: Power source failed - immediate action required"
	default:
		return "Monitor power status closely"
	}
}

// PowerRiskAnalyzer wraps AssessPowerRisk.
type PowerRiskAnalyzer struct{}

func (PowerRiskAnalyzer) Name() string { return NamePower }

func (PowerRiskAnalyzer) Analyze(_ context.Context, in Input) (Result, error) {
	return AssessPowerRisk(in), nil
}
