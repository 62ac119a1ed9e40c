package analyzers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/config"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// ChainLink is one asset on a failure chain.
type ChainLink struct {
	AssetID string          `json:"assetId"`
	Type    graph.AssetType `json:"type"`
	Status  graph.Status    `json:"status"`
	Reason  string          `json:"failureReason,omitempty"`
}

// Analysis is the narrated reasoning attached to a root cause.
type Analysis struct {
	ThoughtProcess []string `json:"thoughtProcess"`
	Evidence       []string `json:"evidence"`
	Conclusion     string   `json:"conclusion"`
	Recommendation string   `json:"recommendation"`
}

// RootCauseResult explains why Target is failing. Found is false when no
// failing asset lies upstream within range; Isolated is then set if the
// target itself is failing.
type RootCauseResult struct {
	Target       string          `json:"target"`
	TargetType   graph.AssetType `json:"targetType"`
	TargetStatus graph.Status    `json:"targetStatus"`

	Found    bool `json:"found"`
	Isolated bool `json:"isolated"`

	RootCause         string                   `json:"rootCause,omitempty"`
	RootCauseType     graph.AssetType          `json:"rootCauseType,omitempty"`
	RootCauseStatus   graph.Status             `json:"rootCauseStatus,omitempty"`
	RootCauseReason   string                   `json:"rootCauseReason,omitempty"`
	RootCauseZone     string                   `json:"rootCauseZone,omitempty"`
	Depth             int                      `json:"depth"`
	Chain             []ChainLink              `json:"chain"`
	RelationshipTypes []graph.RelationshipType `json:"relationshipTypes"`
	CandidatePaths    int                      `json:"candidatePaths"`

	Team           config.Team `json:"teamOwnership"`
	Severity       Severity    `json:"severity"`
	Analysis       Analysis    `json:"analysis"`
	Recommendation string      `json:"recommendation"`
}

func (r *RootCauseResult) Findings() []Finding {
	if !r.Found && !r.Isolated {
		return nil
	}
	f := Finding{
		Analyzer:  NameRootCause,
		AssetID:   r.Target,
		AssetType: string(r.TargetType),
		Zone:      r.RootCauseZone,
		Severity:  r.Severity,
		Score:     float64(r.Depth),
		Detail:    r.Analysis.Conclusion,
		Props: map[string]string{
			"root_cause": r.RootCause,
			"depth":      fmt.Sprint(r.Depth),
			"team":       r.Team.Name,
			"channel":    r.Team.Channel,
		},
	}
	if r.Found {
		f.Title = fmt.Sprintf("%s traced to %s (%d hop(s) upstream)", r.Target, r.RootCause, r.Depth)
		f.Props["chain"] = chainString(r.Chain)
	} else {
		f.Title = fmt.Sprintf("%s is an isolated %s failure", r.Target, r.TargetStatus)
	}
	return []Finding{f}
}

// FindRootCause searches upstream of target for the furthest failing asset.
// Among paths of equal length the smallest origin id wins, then the smallest
// path key.
func FindRootCause(in Input, target string) (*RootCauseResult, error) {
	s := in.Graph
	cfg := in.Config.RootCause

	t, err := s.Asset(target)
	if err != nil {
		return nil, err
	}
	res := &RootCauseResult{
		Target:       t.ID,
		TargetType:   t.Type,
		TargetStatus: t.Status,
		Chain:        []ChainLink{},
	}

	failing := graph.StatusSetOf(cfg.FailureStatuses)
	var best graph.Path
	found := false

	err = graph.WalkPaths(s, target, graph.TraverseOptions{
		Direction: graph.Upstream,
		Types:     relTypes(cfg.Types),
		MaxHops:   cfg.MaxHops,
		Predicate: func(a *graph.Asset) bool { return failing.Has(a.Status) },
	}, func(p graph.Path, _ *graph.Asset) bool {
		res.CandidatePaths++
		w := p.Reverse()
		if !found || better(w, best) {
			best, found = w, true
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	if !found {
		if !t.Healthy() && t.Status != graph.StatusUnknown {
			isolatedFailure(in, t, res)
		}
		return res, nil
	}

	root, _ := s.Asset(best.Origin())
	res.Found = true
	res.RootCause = root.ID
	res.RootCauseType = root.Type
	res.RootCauseStatus = root.Status
	res.RootCauseReason = root.FailureReason
	res.RootCauseZone = s.ZoneOf(root.ID)
	res.Depth = best.Hops()
	res.RelationshipTypes = best.Types
	for _, id := range best.Nodes {
		a, _ := s.Asset(id)
		res.Chain = append(res.Chain, ChainLink{AssetID: a.ID, Type: a.Type, Status: a.Status, Reason: a.FailureReason})
	}
	res.Team = in.Config.Ownership.TeamFor(string(root.Type))

	res.Severity = SeverityHigh
	if typeSet(cfg.PowerTypes)[root.Type] || res.Depth >= cfg.CriticalChainLength {
		res.Severity = SeverityCritical
	}
	res.Analysis = explainChain(res)
	res.Recommendation = res.Analysis.Recommendation
	return res, nil
}

// better reports whether w beats the current best witness.
func better(w, best graph.Path) bool {
	if w.Hops() != best.Hops() {
		return w.Hops() > best.Hops()
	}
	if w.Origin() != best.Origin() {
		return w.Origin() < best.Origin()
	}
	return w.Compare(best) < 0
}

func chainString(chain []ChainLink) string {
	parts := make([]string, len(chain))
	for i, c := range chain {
		parts[i] = fmt.Sprintf("%s (%s)", c.AssetID, c.Status)
	}
	return strings.Join(parts, " -> ")
}

func uniqueTypes(ts []graph.RelationshipType) string {
	seen := map[graph.RelationshipType]bool{}
	var out []string
	for _, t := range ts {
		if !seen[t] {
			seen[t] = true
			out = append(out, string(t))
		}
	}
	if len(out) == 0 {
		return "direct connections"
	}
	return strings.Join(out, ", ")
}

func explainChain(r *RootCauseResult) Analysis {
	reason := r.RootCauseReason
	if reason == "" {
		reason = "an unreported fault"
	}
	pattern := "direct"
	if r.Depth > 1 {
		pattern = "cascading"
	}
	rels := uniqueTypes(r.RelationshipTypes)
	return Analysis{
		ThoughtProcess: []string{
			fmt.Sprintf("Asset %s is %s and needs a root cause.", r.Target, r.TargetStatus),
			fmt.Sprintf("Walked %s of upstream dependencies.", plural(r.CandidatePaths, "failing path", "failing paths")),
			fmt.Sprintf("Failure propagated through %s.", rels),
			fmt.Sprintf("The furthest failing asset is %s, %d hop(s) upstream.", r.RootCause, r.Depth),
		},
		Evidence: []string{
			fmt.Sprintf("%s is %s: %s", r.RootCause, r.RootCauseStatus, reason),
			"Chain: " + chainString(r.Chain),
		},
		Conclusion: fmt.Sprintf("ROOT CAUSE IDENTIFIED: %s (%s) experienced %s, which propagated through %d dependency level(s) affecting %s including %s. This is a %s failure pattern.",
			r.RootCause, r.RootCauseType, reason, r.Depth, plural(len(r.Chain), "asset", "assets"), r.Target, pattern),
		Recommendation: fmt.Sprintf("Resolve %s (%s) first, then verify the %s on the chain recover. Consider redundancy for %s. Escalate to %s on %s.",
			r.RootCause, reason, plural(len(r.Chain)-1, "dependent asset", "dependent assets"), r.RootCause, r.Team.Name, r.Team.Channel),
	}
}

// isolatedGuidance describes what a status usually means and where to start.
var isolatedGuidance = map[graph.Status]struct {
	description string
	actions     []string
}{
	graph.StatusUnreachable: {"network connectivity issue or the device is powered off", []string{
		"Verify network connectivity to %s", "Check that %s is powered on and answers ping", "Inspect firewall rules and ACLs on the path to %s",
	}},
	graph.StatusDegraded: {"performance degradation or partial loss of function", []string{
		"Review utilization metrics on %s", "Check recent workload changes affecting %s", "Inspect application logs on %s",
	}},
	graph.StatusWarning: {"early warning indicators", []string{
		"Review alerts raised by %s", "Check health metrics (temperature, disk, memory) on %s", "Schedule preventive maintenance for %s",
	}},
	graph.StatusOffline: {"complete service unavailability", []string{
		"Attempt to restart services on %s", "Check crash logs on %s", "Verify hardware status of %s and fail over if possible",
	}},
	graph.StatusError: {"an active error condition", []string{
		"Examine error logs from %s", "Check for known issues in the version running on %s", "Roll %s back to the last known good configuration",
	}},
	graph.StatusFailed: {"a critical failure requiring immediate attention", []string{
		"Run hardware diagnostics on %s", "Verify data integrity and backups for %s", "Engage vendor support for %s",
	}},
}

func isolatedFailure(in Input, t *graph.Asset, res *RootCauseResult) {
	g, ok := isolatedGuidance[t.Status]
	if !ok {
		g.description = "an unexpected state"
		g.actions = []string{"Examine status and logs of %s", "Check %s for misconfiguration", "Contact the owner of %s"}
	}
	reason := t.FailureReason
	if reason == "" {
		reason = "no specific reason provided"
	}

	res.Isolated = true
	res.RootCause = t.ID
	res.RootCauseType = t.Type
	res.RootCauseStatus = t.Status
	res.RootCauseReason = t.FailureReason
	res.RootCauseZone = in.Graph.ZoneOf(t.ID)
	res.Team = in.Config.Ownership.TeamFor(string(t.Type))

	switch t.Status {
	case graph.StatusOffline, graph.StatusFailed, graph.StatusError:
		res.Severity = SeverityHigh
	case graph.StatusUnreachable, graph.StatusDegraded:
		res.Severity = SeverityMedium
	default:
		res.Severity = SeverityLow
	}

	actions := make([]string, len(g.actions))
	for i, a := range g.actions {
		actions[i] = fmt.Sprintf("%d. ", i+1) + fmt.Sprintf(a, t.ID)
	}
	res.Analysis = Analysis{
		ThoughtProcess: []string{
			fmt.Sprintf("Asset %s (%s) is %s.", t.ID, t.Type, t.Status),
			fmt.Sprintf("No failing asset found upstream within %d hop(s).", in.Config.RootCause.MaxHops),
			"The failure is isolated to the asset itself.",
		},
		Evidence: []string{
			fmt.Sprintf("%s is %s: %s", t.ID, t.Status, reason),
			"All upstream dependencies are operational",
		},
		Conclusion: fmt.Sprintf("ROOT CAUSE IDENTIFIED: %s (%s) is in an isolated %s condition with no upstream cause. The issue is: %s. This indicates %s.",
			t.ID, t.Type, strings.ToUpper(string(t.Status)), reason, g.description),
		Recommendation: "RECOMMENDED ACTIONS:\n" + strings.Join(actions, "\n"),
	}
	res.Recommendation = res.Analysis.Recommendation
}

// RootCauseScan holds a root cause per unhealthy asset.
type RootCauseScan struct {
	Results []*RootCauseResult `json:"results"`
}

func (r *RootCauseScan) Findings() []Finding {
	var out []Finding
	for _, res := range r.Results {
		out = append(out, res.Findings()...)
	}
	return out
}

// RootCauseAnalyzer runs FindRootCause for Target, or for every unhealthy
// asset when Target is empty.
type RootCauseAnalyzer struct {
	Target string
}

func (a *RootCauseAnalyzer) Name() string { return NameRootCause }

func (a *RootCauseAnalyzer) Analyze(_ context.Context, in Input) (Result, error) {
	if a.Target != "" {
		return FindRootCause(in, a.Target)
	}
	scan := &RootCauseScan{Results: []*RootCauseResult{}}
	for _, asset := range unhealthy(in.Graph) {
		res, err := FindRootCause(in, asset.ID)
		if err != nil {
			return nil, err
		}
		if res.Found || res.Isolated {
			scan.Results = append(scan.Results, res)
		}
	}
	return scan, nil
}
