package analyzers

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// TraceStep is one stage of an incident trace.
type TraceStep struct {
	Step    int      `json:"step"`
	Title   string   `json:"title"`
	Status  string   `json:"status"`
	Details []string `json:"details"`
}

const (
	stepCompleted   = "completed"
	stepIssuesFound = "issues_found"
	stepClear       = "clear"
)

// Connection is one direct relationship of the traced asset.
type Connection struct {
	AssetID      string                 `json:"assetId"`
	Type         graph.AssetType        `json:"type"`
	Status       graph.Status           `json:"status"`
	Relationship graph.RelationshipType `json:"relationship"`
	Direction    string                 `json:"direction"`
}

// TraceSummary condenses an incident trace.
type TraceSummary struct {
	RootCause        string   `json:"rootCause"`
	RootCauseReason  string   `json:"rootCauseReason,omitempty"`
	UpstreamFailures int      `json:"upstreamFailures"`
	DownstreamImpact int      `json:"downstreamImpact"`
	RelatedIncidents int      `json:"relatedIncidents"`
	NodesAnalyzed    int      `json:"totalNodesAnalyzed"`
	Recommendations  []string `json:"recommendations"`
}

// IncidentTrace is a step by step investigation of one asset: its state,
// the failures above it, the impact below it and the root cause.
type IncidentTrace struct {
	AssetID  string          `json:"assetId"`
	Type     graph.AssetType `json:"type"`
	Status   graph.Status    `json:"status"`
	Priority Severity        `json:"priority"`

	Steps       []TraceStep      `json:"steps"`
	Connections []Connection     `json:"connections"`
	Upstream    []ChainLink      `json:"upstreamFailures"`
	Downstream  []ImpactedAsset  `json:"affectedDownstream"`
	RootCause   *RootCauseResult `json:"rootCauseAnalysis"`
	Incidents   []Incident       `json:"relatedIncidents"`
	Summary     TraceSummary     `json:"summary"`

	healthy bool
}

func (r *IncidentTrace) Findings() []Finding {
	if r.healthy && r.Summary.UpstreamFailures == 0 && r.Summary.DownstreamImpact == 0 {
		return nil
	}
	return []Finding{{
		Analyzer:  NameIncidentTrace,
		AssetID:   r.AssetID,
		AssetType: string(r.Type),
		Severity:  r.Priority,
		Score:     float64(r.Summary.DownstreamImpact),
		Title:     fmt.Sprintf("Incident on %s traced to %s", r.AssetID, r.Summary.RootCause),
		Detail:    strings.Join(r.Summary.Recommendations, "; "),
		Props: map[string]string{
			"root_cause":        r.Summary.RootCause,
			"upstream_failures": fmt.Sprint(r.Summary.UpstreamFailures),
			"downstream_impact": fmt.Sprint(r.Summary.DownstreamImpact),
			"nodes_analyzed":    fmt.Sprint(r.Summary.NodesAnalyzed),
		},
	}}
}

// TraceIncident investigates target by combining FindRootCause,
// AnalyzeCascade and RelatedIncidents over one input, so every step sees the
// same snapshot.
func TraceIncident(in Input, target string) (*IncidentTrace, error) {
	s := in.Graph
	t, err := s.Asset(target)
	if err != nil {
		return nil, err
	}
	rc, err := FindRootCause(in, target)
	if err != nil {
		return nil, err
	}
	cascade, err := AnalyzeCascade(in, target)
	if err != nil {
		return nil, err
	}
	incidents, err := RelatedIncidents(in, target)
	if err != nil {
		return nil, err
	}

	cfg := in.Config.RootCause
	failing := graph.StatusSetOf(cfg.FailureStatuses)
	upstream, err := graph.Traverse(s, target, graph.TraverseOptions{
		Direction: graph.Upstream,
		Types:     relTypes(cfg.Types),
		MaxHops:   cfg.MaxHops,
		Predicate: func(a *graph.Asset) bool { return failing.Has(a.Status) },
	})
	if err != nil {
		return nil, err
	}

	tr := &IncidentTrace{
		AssetID:     t.ID,
		Type:        t.Type,
		Status:      t.Status,
		Connections: connections(s, t.ID),
		Upstream:    make([]ChainLink, 0, len(upstream)),
		Downstream:  []ImpactedAsset{},
		RootCause:   rc,
		Incidents:   incidents.Incidents,
		healthy:     t.Healthy(),
	}
	seen := map[string]bool{t.ID: true}
	for _, u := range upstream {
		tr.Upstream = append(tr.Upstream, ChainLink{AssetID: u.Asset.ID, Type: u.Asset.Type, Status: u.Asset.Status, Reason: u.Asset.FailureReason})
		seen[u.Asset.ID] = true
	}
	for _, d := range cascade.Breakdown {
		seen[d.AssetID] = true
		if d.Affected {
			tr.Downstream = append(tr.Downstream, d)
		}
	}

	sum := &tr.Summary
	sum.UpstreamFailures = len(tr.Upstream)
	sum.DownstreamImpact = len(tr.Downstream)
	sum.RelatedIncidents = len(tr.Incidents)
	sum.NodesAnalyzed = len(seen)
	switch {
	case rc.Found:
		sum.RootCause, sum.RootCauseReason = rc.RootCause, rc.RootCauseReason
	case !tr.healthy:
		sum.RootCause, sum.RootCauseReason = t.ID, t.FailureReason
	default:
		sum.RootCause = "none"
	}
	sum.Recommendations = traceRecommendations(tr)

	switch {
	case sum.DownstreamImpact > 3:
		tr.Priority = SeverityCritical
	case sum.DownstreamImpact > 0:
		tr.Priority = SeverityHigh
	case !tr.healthy || sum.UpstreamFailures > 0:
		tr.Priority = SeverityMedium
	default:
		tr.Priority = SeverityLow
	}

	tr.Steps = traceSteps(t, tr, cascade)
	return tr, nil
}

func connections(s *graph.Snapshot, id string) []Connection {
	out := []Connection{}
	for _, n := range s.Out(id) {
		out = append(out, Connection{AssetID: n.Asset.ID, Type: n.Asset.Type, Status: n.Asset.Status, Relationship: n.Type, Direction: graph.Downstream.String()})
	}
	for _, n := range s.In(id) {
		out = append(out, Connection{AssetID: n.Asset.ID, Type: n.Asset.Type, Status: n.Asset.Status, Relationship: n.Type, Direction: graph.Upstream.String()})
	}
	return out
}

func traceRecommendations(tr *IncidentTrace) []string {
	var recs []string
	rc := tr.RootCause
	switch {
	case rc.Found:
		recs = append(recs, fmt.Sprintf("Repair %s to restore %s", rc.RootCause, tr.AssetID))
		if rc.Team.Name != "" {
			recs = append(recs, fmt.Sprintf("Escalate to %s (%s)", rc.Team.Name, rc.Team.Channel))
		}
	case !tr.healthy:
		recs = append(recs, fmt.Sprintf("Investigate %s directly; it appears to be an isolated failure", tr.AssetID))
	}
	if n := tr.Summary.DownstreamImpact; n > 0 {
		recs = append(recs, fmt.Sprintf("Monitor %s", plural(n, "affected downstream system", "affected downstream systems")))
	}
	if len(recs) == 0 {
		recs = append(recs, fmt.Sprintf("No action needed; %s and its dependencies are healthy", tr.AssetID))
	}
	return recs
}

func traceSteps(t *graph.Asset, tr *IncidentTrace, cascade *CascadeResult) []TraceStep {
	details := TraceStep{Step: 1, Title: "Asset details", Status: stepCompleted, Details: []string{
		fmt.Sprintf("%s (%s) is %s", t.ID, t.Type, t.Status),
		plural(len(tr.Connections), "direct connection", "direct connections"),
	}}
	if t.Zone != "" {
		details.Details = append(details.Details, "Zone: "+t.Zone)
	}

	state := TraceStep{Step: 2, Title: "State analysis", Status: stepCompleted, Details: []string{}}
	if t.FailureReason != "" {
		state.Details = append(state.Details, "Failure reason: "+t.FailureReason)
	}
	if at, ok := t.TransitionTime(); ok {
		state.Details = append(state.Details, fmt.Sprintf("In state %s since %s", t.Status, at.Format(time.RFC3339)))
	}
	if u, ok := t.Utilization(); ok {
		state.Details = append(state.Details, fmt.Sprintf("Utilization: %.0f%%", u))
	}
	if t.ResponseTimeMs != nil {
		state.Details = append(state.Details, fmt.Sprintf("Response time: %.0fms", *t.ResponseTimeMs))
	}
	if !t.Healthy() {
		state.Status = stepIssuesFound
	}

	up := TraceStep{Step: 3, Title: "Upstream failures", Status: stepClear, Details: []string{}}
	for _, u := range tr.Upstream {
		up.Details = append(up.Details, fmt.Sprintf("%s (%s) is %s", u.AssetID, u.Type, u.Status))
	}
	if len(tr.Upstream) > 0 {
		up.Status = stepIssuesFound
	}

	down := TraceStep{Step: 4, Title: "Downstream impact", Status: stepClear, Details: []string{
		fmt.Sprintf("%d of %s currently affected", len(tr.Downstream),
			plural(cascade.TotalDownstream, "downstream system", "downstream systems")),
	}}
	if len(tr.Downstream) > 0 {
		down.Status = stepIssuesFound
	}

	root := TraceStep{Step: 5, Title: "Root cause", Status: stepCompleted, Details: []string{}}
	if tr.Summary.RootCauseReason != "" {
		root.Details = append(root.Details, fmt.Sprintf("%s: %s", tr.Summary.RootCause, tr.Summary.RootCauseReason))
	} else {
		root.Details = append(root.Details, tr.Summary.RootCause)
	}
	if tr.RootCause.Found {
		root.Details = append(root.Details, "Chain: "+chainString(tr.RootCause.Chain))
	}

	related := TraceStep{Step: 6, Title: "Related incidents", Status: stepClear, Details: []string{}}
	for _, inc := range tr.Incidents {
		related.Details = append(related.Details, fmt.Sprintf("%s %s, %d hop(s) away", inc.AssetID, inc.Status, inc.Distance))
	}
	if len(tr.Incidents) > 0 {
		related.Status = stepIssuesFound
	}

	recs := TraceStep{Step: 7, Title: "Recommendations", Status: stepCompleted, Details: tr.Summary.Recommendations}
	return []TraceStep{details, state, up, down, root, related, recs}
}
