package analyzers

import (
	"fmt"
	"sort"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// Incident is a failing asset near a target.
type Incident struct {
	IncidentID string          `json:"incidentId"`
	AssetID    string          `json:"assetId"`
	Type       graph.AssetType `json:"type"`
	Status     graph.Status    `json:"status"`
	Reason     string          `json:"failureReason"`
	Since      *time.Time      `json:"since,omitempty"`
	Distance   int             `json:"distance"`
	IPAddress  string          `json:"ipAddress,omitempty"`
	Severity   Severity        `json:"severity"`
}

// IncidentsResult lists incidents on and around Target. With a window set,
// AsOf is the newest status transition in the graph and OutsideWindow counts
// the incidents that changed state before AsOf minus the window.
type IncidentsResult struct {
	Target         string     `json:"target"`
	Incidents      []Incident `json:"incidents"`
	TimeRangeHours float64    `json:"timeRangeHours,omitempty"`
	AsOf           *time.Time `json:"asOf,omitempty"`
	OutsideWindow  int        `json:"outsideWindow,omitempty"`
	Truncated      int        `json:"truncated,omitempty"`
}

func (r *IncidentsResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.Incidents))
	for _, inc := range r.Incidents {
		out = append(out, Finding{
			Analyzer:  NameRelatedIncidents,
			AssetID:   inc.AssetID,
			AssetType: string(inc.Type),
			Severity:  inc.Severity,
			Score:     float64(inc.Distance),
			Title:     fmt.Sprintf("%s %s, %d hop(s) from %s", inc.AssetID, inc.Status, inc.Distance, r.Target),
			Detail:    inc.Reason,
			Props:     map[string]string{"incident_id": inc.IncidentID},
		})
	}
	return out
}

func incidentSeverity(st graph.Status) Severity {
	switch st {
	case graph.StatusOffline, graph.StatusError, graph.StatusFailed:
		return SeverityCritical
	case graph.StatusUnreachable, graph.StatusDegraded:
		return SeverityHigh
	case graph.StatusWarning:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// RelatedIncidents collects failing assets within a few hops of target in
// either direction, the target included, over the configured window.
// Ordered by severity, distance, id.
func RelatedIncidents(in Input, target string) (*IncidentsResult, error) {
	return RelatedIncidentsWithin(in, target, in.Config.Incidents.Window)
}

// latestTransition is the newest status change recorded in s. Mock and
// replayed graphs carry historical timestamps, so windows anchor here rather
// than on the wall clock.
func latestTransition(s *graph.Snapshot) (time.Time, bool) {
	var latest time.Time
	for _, a := range s.Assets() {
		if at, ok := a.TransitionTime(); ok && at.After(latest) {
			latest = at
		}
	}
	return latest, !latest.IsZero()
}

// RelatedIncidentsWithin is RelatedIncidents with an explicit window. Zero
// means no time filter. Incidents without a timestamp are always kept.
func RelatedIncidentsWithin(in Input, target string, window time.Duration) (*IncidentsResult, error) {
	cfg := in.Config.Incidents
	t, err := in.Graph.Asset(target)
	if err != nil {
		return nil, err
	}
	statuses := graph.StatusSetOf(cfg.Statuses)
	reached, err := graph.Traverse(in.Graph, target, graph.TraverseOptions{
		Direction: graph.Either,
		Types:     relTypes(cfg.Types),
		MaxHops:   cfg.MaxHops,
		Predicate: func(a *graph.Asset) bool { return statuses.Has(a.Status) },
	})
	if err != nil {
		return nil, err
	}

	res := &IncidentsResult{Target: target, Incidents: []Incident{}}
	var cutoff time.Time
	if window > 0 {
		res.TimeRangeHours = window.Hours()
		if asOf, ok := latestTransition(in.Graph); ok {
			res.AsOf = &asOf
			cutoff = asOf.Add(-window)
		}
	}
	add := func(a *graph.Asset, dist int) {
		at, stamped := a.TransitionTime()
		if stamped && !cutoff.IsZero() && at.Before(cutoff) {
			res.OutsideWindow++
			return
		}
		inc := Incident{
			IncidentID: "INC-" + a.ID,
			AssetID:    a.ID,
			Type:       a.Type,
			Status:     a.Status,
			Reason:     a.FailureReason,
			Distance:   dist,
			IPAddress:  a.IPAddress,
			Severity:   incidentSeverity(a.Status),
		}
		if inc.Reason == "" {
			inc.Reason = "Unknown"
		}
		if stamped {
			inc.Since = &at
		}
		res.Incidents = append(res.Incidents, inc)
	}
	if statuses.Has(t.Status) {
		add(t, 0)
	}
	for _, r := range reached {
		add(r.Asset, r.Distance)
	}
	sort.SliceStable(res.Incidents, func(i, j int) bool {
		a, b := res.Incidents[i], res.Incidents[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.AssetID < b.AssetID
	})
	if cfg.Limit > 0 && len(res.Incidents) > cfg.Limit {
		res.Truncated = len(res.Incidents) - cfg.Limit
		res.Incidents = res.Incidents[:cfg.Limit]
	}
	return res, nil
}

// BlastRadius is the downstream reach of one unhealthy asset.
type BlastRadius struct {
	AssetID  string          `json:"assetId"`
	Type     graph.AssetType `json:"type"`
	Status   graph.Status    `json:"status"`
	Radius   int             `json:"blastRadius"`
	Affected []Dependent     `json:"affectedSystems"`
	Risk     Severity        `json:"riskLevel"`
}

// BlastRadiusResult ranks unhealthy assets by reach.
type BlastRadiusResult struct {
	Radii   []BlastRadius `json:"blastRadii"`
	Insight string        `json:"insight"`
}

func (r *BlastRadiusResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.Radii))
	for _, b := range r.Radii {
		out = append(out, Finding{
			Analyzer:  NameBlastRadius,
			AssetID:   b.AssetID,
			AssetType: string(b.Type),
			Severity:  b.Risk,
			Score:     float64(b.Radius),
			Title:     fmt.Sprintf("%s (%s) can take down %s", b.AssetID, b.Status, plural(b.Radius, "asset", "assets")),
		})
	}
	return out
}

// BlastRadiusRanking computes the downstream reach of every unhealthy asset
// and ranks them, largest first. Assets with no reach are left out.
func BlastRadiusRanking(in Input) *BlastRadiusResult {
	cfg := in.Config.BlastRadius
	types := relTypes(cfg.Types)
	res := &BlastRadiusResult{Radii: []BlastRadius{}}

	for _, a := range unhealthy(in.Graph) {
		reached, _ := graph.Traverse(in.Graph, a.ID, graph.TraverseOptions{
			Direction: graph.Downstream,
			Types:     types,
			MaxHops:   cfg.MaxHops,
		})
		if len(reached) == 0 {
			continue
		}
		b := BlastRadius{AssetID: a.ID, Type: a.Type, Status: a.Status, Radius: len(reached)}
		for _, r := range reached {
			b.Affected = append(b.Affected, Dependent{AssetID: r.Asset.ID, Type: r.Asset.Type, Status: r.Asset.Status, Distance: r.Distance})
		}
		b.Risk = classify(cfg.Severity, float64(b.Radius))
		res.Radii = append(res.Radii, b)
	}
	sort.SliceStable(res.Radii, func(i, j int) bool {
		if res.Radii[i].Radius != res.Radii[j].Radius {
			return res.Radii[i].Radius > res.Radii[j].Radius
		}
		return res.Radii[i].AssetID < res.Radii[j].AssetID
	})
	res.Insight = fmt.Sprintf("Calculated blast radius for %s. This shows the potential impact if they fail outright.",
		plural(len(res.Radii), "unhealthy asset", "unhealthy assets"))
	return res
}
