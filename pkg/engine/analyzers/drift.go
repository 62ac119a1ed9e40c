package analyzers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/baseline"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// DriftType classifies a mismatched field.
type DriftType string

const (
	DriftVersion  DriftType = "VERSION_MISMATCH"
	DriftChecksum DriftType = "CHECKSUM_MISMATCH"
	DriftIP       DriftType = "IP_MISMATCH"
	DriftZone     DriftType = "ZONE_MISMATCH"
	DriftStatus   DriftType = "STATUS_CRITICAL"
)

// Tracked fields, in comparison order.
const (
	FieldStatus         = "status"
	FieldVersion        = "version"
	FieldConfigChecksum = "configChecksum"
	FieldIPAddress      = "ipAddress"
	FieldSecurityZone   = "securityZone"
)

// DriftRecord is one field that differs from its baseline.
type DriftRecord struct {
	AssetID       string    `json:"assetId"`
	Field         string    `json:"field"`
	IntendedValue string    `json:"intendedValue"`
	ActualValue   string    `json:"actualValue"`
	DriftType     DriftType `json:"driftType"`
	Severity      Severity  `json:"severity"`
}

// AssetDrift is the drift of one asset.
type AssetDrift struct {
	AssetID     string          `json:"assetId"`
	Type        graph.AssetType `json:"type"`
	DriftStatus Severity        `json:"driftStatus"`
	Drifts      []DriftRecord   `json:"drifts"`
	Baseline    baseline.Record `json:"baseline"`
}

// DriftSummary aggregates drift across the factory.
type DriftSummary struct {
	TotalAssets     int     `json:"totalAssets"`
	DriftedAssets   int     `json:"driftedAssets"`
	InSyncAssets    int     `json:"inSyncAssets"`
	TotalDrifts     int     `json:"totalDrifts"`
	CriticalDrifts  int     `json:"criticalDrifts"`
	MissingAssets   int     `json:"missingAssets"`
	DriftPercentage float64 `json:"driftPercentage"`
}

// DriftResult lists drifted assets in id order.
type DriftResult struct {
	Summary DriftSummary `json:"summary"`
	Assets  []AssetDrift `json:"assets"`
	// Missing are baseline ids with no matching asset.
	Missing []string `json:"missing,omitempty"`
}

// Records flattens every drift record in asset then field order.
func (r *DriftResult) Records() []DriftRecord {
	var out []DriftRecord
	for _, a := range r.Assets {
		out = append(out, a.Drifts...)
	}
	return out
}

func (r *DriftResult) Findings() []Finding {
	var out []Finding
	for _, a := range r.Assets {
		for _, d := range a.Drifts {
			out = append(out, Finding{
				Analyzer:  NameDrift,
				AssetID:   a.AssetID,
				AssetType: string(a.Type),
				Severity:  d.Severity,
				Score:     float64(d.Severity),
				Title:     fmt.Sprintf("%s %s drifted", a.AssetID, d.Field),
				Detail:    fmt.Sprintf("intended %q, actual %q", d.IntendedValue, d.ActualValue),
				Props: map[string]string{
					"field":      d.Field,
					"drift_type": string(d.DriftType),
					"git_repo":   a.Baseline.GitRepo,
					"git_path":   a.Baseline.GitPath,
				},
			})
		}
	}
	return out
}

// DetectDrift compares every baselined asset against its live state. Empty
// baseline fields are untracked. Checksums are skipped when either side is
// empty or "unknown".
func DetectDrift(in Input) *DriftResult {
	cfg := in.Config.Drift
	healthy := graph.StatusSetOf(cfg.HealthyStatuses)
	res := &DriftResult{Assets: []AssetDrift{}}

	for _, id := range in.Baseline.IDs() {
		rec, _ := in.Baseline.Lookup(id)
		a, err := in.Graph.Asset(id)
		if err != nil {
			res.Missing = append(res.Missing, id)
			continue
		}
		res.Summary.TotalAssets++

		var drifts []DriftRecord
		add := func(field, intended, actual string, dt DriftType, sev Severity) {
			drifts = append(drifts, DriftRecord{
				AssetID: id, Field: field, IntendedValue: intended, ActualValue: actual, DriftType: dt, Severity: sev,
			})
		}

		if rec.Status != "" && !sameStatus(graph.Status(rec.Status), a.Status, healthy) {
			add(FieldStatus, rec.Status, string(a.Status), DriftStatus, SeverityCritical)
		}
		if rec.Version != "" && rec.Version != a.Version {
			add(FieldVersion, rec.Version, a.Version, DriftVersion, severityOf(cfg.VersionSeverity))
		}
		if rec.ConfigChecksum != "" && !unknownChecksum(rec.ConfigChecksum) && !unknownChecksum(a.ConfigChecksum) &&
			rec.ConfigChecksum != a.ConfigChecksum {
			add(FieldConfigChecksum, rec.ConfigChecksum, a.ConfigChecksum, DriftChecksum, severityOf(cfg.ChecksumSeverity))
		}
		if rec.IPAddress != "" && rec.IPAddress != a.IPAddress {
			add(FieldIPAddress, rec.IPAddress, a.IPAddress, DriftIP, severityOf(cfg.IPAddressSeverity))
		}
		if rec.SecurityZone != "" && rec.SecurityZone != a.SecurityZone {
			add(FieldSecurityZone, rec.SecurityZone, a.SecurityZone, DriftZone, severityOf(cfg.SecurityZoneSeverity))
		}

		if len(drifts) == 0 {
			res.Summary.InSyncAssets++
			continue
		}
		ad := AssetDrift{AssetID: id, Type: a.Type, Drifts: drifts, Baseline: rec}
		for _, d := range drifts {
			if d.Severity > ad.DriftStatus {
				ad.DriftStatus = d.Severity
			}
			if d.Severity == SeverityCritical {
				res.Summary.CriticalDrifts++
			}
		}
		res.Summary.TotalDrifts += len(drifts)
		res.Summary.DriftedAssets++
		res.Assets = append(res.Assets, ad)
	}

	res.Summary.MissingAssets = len(res.Missing)
	if res.Summary.TotalAssets > 0 {
		pct := float64(res.Summary.DriftedAssets) / float64(res.Summary.TotalAssets) * 100
		res.Summary.DriftPercentage = math.Round(pct*10) / 10
	}
	return res
}

func sameStatus(intended, actual graph.Status, healthy graph.StatusSet) bool {
	if healthy.Has(intended) && healthy.Has(actual) {
		return true
	}
	return strings.EqualFold(string(intended), string(actual))
}

func unknownChecksum(c string) bool {
	return c == "" || strings.EqualFold(c, "unknown")
}

// DriftAnalyzer wraps DetectDrift.
type DriftAnalyzer struct{}

func (DriftAnalyzer) Name() string { return NameDrift }

func (DriftAnalyzer) Analyze(_ context.Context, in Input) (Result, error) {
	return DetectDrift(in), nil
}
