package analyzers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/baseline"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/config"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

func demoInput() Input {
	return NewInput(graph.DemoFactory().Build(), baseline.Demo(), nil)
}

func TestRootCauseNetworkOutage(t *testing.T) {
	res, err := FindRootCause(demoInput(), "PLC-001")
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, "NetworkSwitch-05", res.RootCause)
	assert.Equal(t, 2, res.Depth)
	assert.Equal(t, 2, res.CandidatePaths)

	ids := make([]string, len(res.Chain))
	for i, c := range res.Chain {
		ids[i] = c.AssetID
	}
	assert.Equal(t, []string{"NetworkSwitch-05", "EdgeGateway-02", "PLC-001"}, ids)
	assert.Equal(t, []graph.RelationshipType{graph.ConnectsTo, graph.ConnectsTo}, res.RelationshipTypes)
	assert.Equal(t, "Network Infrastructure", res.Team.Name)
	assert.Equal(t, SeverityHigh, res.Severity)
	assert.Contains(t, res.Analysis.Conclusion, "Power supply failure")

	fs := res.Findings()
	require.Len(t, fs, 1)
	assert.Equal(t, "NetworkSwitch-05", fs[0].Props["root_cause"])
}

func TestRootCauseIsolatedAndHealthy(t *testing.T) {
	in := demoInput()

	res, err := FindRootCause(in, "NetworkSwitch-05")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.True(t, res.Isolated)
	assert.Equal(t, 0, res.Depth)
	assert.Empty(t, res.Chain)
	assert.Equal(t, SeverityHigh, res.Severity)
	assert.Contains(t, res.Recommendation, "Attempt to restart services on NetworkSwitch-05")

	// Healthy asset with no failing ancestors: a valid empty result.
	res, err = FindRootCause(in, "Server-01")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.False(t, res.Isolated)
	assert.Empty(t, res.Findings())
}

func TestRootCauseTieBreak(t *testing.T) {
	s := graph.NewMockFactory().
		Add("T", graph.TypePLC, graph.StatusOffline).
		Add("B", graph.TypeSensor, graph.StatusOffline).
		Add("A", graph.TypeSensor, graph.StatusOffline).
		Link("B", graph.FeedsData, "T").
		Link("A", graph.FeedsData, "T").
		Build()
	res, err := FindRootCause(NewInput(s, nil, nil), "T")
	require.NoError(t, err)
	assert.Equal(t, "A", res.RootCause)
	assert.Equal(t, 1, res.Depth)
}

func TestRootCauseTieBreakOrdersNodesBeforeTypes(t *testing.T) {
	s := graph.NewMockFactory().
		Add("T", graph.TypePLC, graph.StatusOffline).
		Add("O", graph.TypeUPS, graph.StatusOffline).
		Add("X", graph.TypeEdgeGateway, graph.StatusOnline).
		Add("Y", graph.TypeEdgeGateway, graph.StatusOnline).
		Link("O", graph.FeedsData, "X").
		Link("X", graph.FeedsData, "T").
		Link("O", graph.ConnectsTo, "Y").
		Link("Y", graph.ConnectsTo, "T").
		Build()

	for n := 0; n < 20; n++ {
		res, err := FindRootCause(NewInput(s, nil, nil), "T")
		require.NoError(t, err)
		ids := make([]string, len(res.Chain))
		for i, c := range res.Chain {
			ids[i] = c.AssetID
		}
		require.Equal(t, []string{"O", "X", "T"}, ids)
		require.Equal(t, []graph.RelationshipType{graph.FeedsData, graph.FeedsData}, res.RelationshipTypes)
	}
}

func TestRootCauseUnknownAsset(t *testing.T) {
	_, err := FindRootCause(demoInput(), "PLC-404")
	assert.True(t, errors.Is(err, graph.ErrAssetNotFound))

	_, err = AnalyzeCascade(demoInput(), "PLC-404")
	assert.True(t, errors.Is(err, graph.ErrAssetNotFound))
}

func TestCascadeFromUPS(t *testing.T) {
	res, err := AnalyzeCascade(demoInput(), "UPS-Main")
	require.NoError(t, err)
	assert.Equal(t, 6, res.TotalDownstream)
	assert.Equal(t, 2, res.CurrentlyAffected)
	assert.Equal(t, 4, res.PotentialImpact)
	assert.Equal(t, 2, res.ImpactRadius)
	assert.Equal(t, SeverityLow, res.Severity)
	assert.Equal(t, "PDU-01", res.Breakdown[0].AssetID)
	assert.Equal(t, "1 hop(s) away", res.Breakdown[0].Hops)
}

func TestNetworkIsolation(t *testing.T) {
	res := DetectIsolation(demoInput())
	require.Len(t, res.Failures, 1)
	f := res.Failures[0]
	assert.Equal(t, "NetworkSwitch-05", f.Device)
	assert.Equal(t, 3, f.IsolatedCount)
	assert.Equal(t, SeverityMedium, f.Severity)
	assert.Equal(t, "High: Switch failure isolating 3 devices", f.Recommendation)
}

func TestPowerRisk(t *testing.T) {
	res := AssessPowerRisk(demoInput())
	require.Len(t, res.Risks, 1)
	r := res.Risks[0]
	assert.Equal(t, "UPS-Main", r.Source)
	assert.Equal(t, 6, r.AffectedCount)
	assert.Equal(t, 3, r.CriticalCount)
	assert.Equal(t, 1, r.CurrentlyOffline)
	assert.Equal(t, 15, r.RiskScore)
	assert.Equal(t, SeverityCritical, r.Severity)
	assert.Equal(t, "URGENT: UPS on battery - 3 critical systems at risk (38% remaining)", r.Recommendation)
}

func TestBottlenecks(t *testing.T) {
	res := FindBottlenecks(demoInput())
	require.Len(t, res.Bottlenecks, 3)

	got := []string{res.Bottlenecks[0].AssetID, res.Bottlenecks[1].AssetID, res.Bottlenecks[2].AssetID}
	assert.Equal(t, []string{"Conveyor-03", "PLC-002", "Server-02"}, got)

	conveyor := res.Bottlenecks[0]
	assert.Equal(t, 3, conveyor.Score)
	assert.Equal(t, []string{"PLC-002"}, conveyor.RelatedAssets)
	assert.Equal(t, PatternLocalized, conveyor.Pattern)
	assert.Equal(t, SeverityMedium, conveyor.Severity)

	server := res.Bottlenecks[2]
	assert.Equal(t, 1, server.DependencyCount)
	assert.Equal(t, "Scale resources or optimize workload", server.Recommendation)
}

func TestBottleneckWidespread(t *testing.T) {
	s := graph.NewMockFactory().
		Add("Hub", graph.TypeServer, graph.StatusDegraded, graph.WithZone("A")).
		Add("X", graph.TypePLC, graph.StatusWarning, graph.WithZone("B")).
		Add("Y", graph.TypePLC, graph.StatusWarning, graph.WithZone("C")).
		Link("Hub", graph.ConnectsTo, "X").
		Link("Y", graph.FeedsData, "Hub").
		Build()
	res := FindBottlenecks(NewInput(s, nil, nil))
	require.NotEmpty(t, res.Bottlenecks)
	assert.Equal(t, "Hub", res.Bottlenecks[0].AssetID)
	assert.Equal(t, PatternWidespread, res.Bottlenecks[0].Pattern)
	assert.Equal(t, []string{"B", "C"}, res.Bottlenecks[0].RelatedZones)
}

func TestTemporalCorrelation(t *testing.T) {
	res := CorrelateFailures(demoInput())
	require.Len(t, res.Clusters, 1)
	c := res.Clusters[0]
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.AssetID
	}
	assert.Equal(t, []string{"NetworkSwitch-05", "EdgeGateway-02", "PLC-001", "Camera-07"}, ids)
	assert.Equal(t, 50.0, c.SpanSec)
	assert.True(t, c.Connected)
	assert.Equal(t, SeverityHigh, c.Severity)
	assert.Equal(t, 6, res.Events)
}

func TestTemporalWindowIsConfigurable(t *testing.T) {
	in := demoInput()
	in.Config.Temporal.Window = 10 * time.Second
	res := CorrelateFailures(in)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, []string{"PLC-001", "Camera-07"}, []string{res.Clusters[0].Members[0].AssetID, res.Clusters[0].Members[1].AssetID})
	assert.Equal(t, SeverityMedium, res.Clusters[0].Severity)
	assert.False(t, res.Clusters[0].Connected)
}

func TestDriftVersionMismatch(t *testing.T) {
	res := DetectDrift(demoInput())

	var versions []DriftRecord
	for _, r := range res.Records() {
		if r.DriftType == DriftVersion {
			versions = append(versions, r)
		}
	}
	require.Len(t, versions, 1)
	assert.Equal(t, DriftRecord{
		AssetID:       "PLC-001",
		Field:         FieldVersion,
		IntendedValue: "v2.3.1-production",
		ActualValue:   "v2.2.8-dev",
		DriftType:     DriftVersion,
		Severity:      SeverityHigh,
	}, versions[0])

	assert.Equal(t, DriftSummary{
		TotalAssets:     4,
		DriftedAssets:   3,
		InSyncAssets:    1,
		TotalDrifts:     3,
		CriticalDrifts:  1,
		DriftPercentage: 75,
	}, res.Summary)
}

func TestDriftIdempotent(t *testing.T) {
	in := demoInput()
	first := DetectDrift(in)
	second := DetectDrift(in)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("drift changed between runs (-first +second):\n%s", diff)
	}
}

func TestDriftMissingAsset(t *testing.T) {
	b, err := baseline.NewMemoryStore(baseline.Record{AssetID: "Ghost-01", Version: "1"})
	require.NoError(t, err)
	res := DetectDrift(NewInput(graph.DemoFactory().Build(), b, nil))
	assert.Equal(t, []string{"Ghost-01"}, res.Missing)
	assert.Equal(t, 0, res.Summary.TotalAssets)
	assert.Equal(t, 0.0, res.Summary.DriftPercentage)
}

func TestCriticalPathRanking(t *testing.T) {
	res := RankCriticalPaths(demoInput())
	require.NotEmpty(t, res.Ranked)

	top := res.Ranked[0]
	assert.Equal(t, "UPS-Main", top.AssetID)
	assert.Equal(t, 6, top.DependentCount)
	assert.Equal(t, 12, top.Score)
	assert.Equal(t, SeverityHigh, top.Severity)
	assert.Equal(t, "CRITICAL: Add redundant power source", top.Recommendation)
	assert.True(t, top.SPOF)

	assert.Equal(t, "Router-01", res.Ranked[1].AssetID)
	assert.Equal(t, 8, res.Ranked[1].Score)
	assert.Equal(t, "HIGH: Implement network redundancy", res.Ranked[1].Recommendation)
}

func TestRelatedIncidents(t *testing.T) {
	res, err := RelatedIncidents(demoInput(), "EdgeGateway-02")
	require.NoError(t, err)
	var ids []string
	for _, inc := range res.Incidents {
		ids = append(ids, inc.AssetID)
	}
	assert.Equal(t, []string{"EdgeGateway-02", "NetworkSwitch-05", "PLC-001", "Camera-07"}, ids)
	assert.Equal(t, SeverityHigh, res.Incidents[3].Severity)
}

func TestRelatedIncidentsWindow(t *testing.T) {
	snap := graph.NewMockFactory().
		Add("Line-PLC", graph.TypePLC, graph.StatusOffline, graph.WithStatusSince(3*time.Hour)).
		Add("Old-Sensor", graph.TypeSensor, graph.StatusOffline, graph.WithStatusSince(0)).
		Add("Cam-1", graph.TypeCamera, graph.StatusUnreachable).
		Link("Old-Sensor", graph.ConnectsTo, "Line-PLC").
		Link("Cam-1", graph.ConnectsTo, "Line-PLC").
		Build()
	in := NewInput(snap, nil, nil)

	res, err := RelatedIncidentsWithin(in, "Line-PLC", time.Hour)
	require.NoError(t, err)
	var ids []string
	for _, inc := range res.Incidents {
		ids = append(ids, inc.AssetID)
	}
	// The camera has no timestamp and is kept.
	assert.Equal(t, []string{"Line-PLC", "Cam-1"}, ids)
	assert.Equal(t, 1, res.OutsideWindow)
	assert.Equal(t, 1.0, res.TimeRangeHours)
	require.NotNil(t, res.AsOf)
	assert.Equal(t, graph.MockEpoch.Add(3*time.Hour), *res.AsOf)

	res, err = RelatedIncidentsWithin(in, "Line-PLC", 0)
	require.NoError(t, err)
	assert.Len(t, res.Incidents, 3)
	assert.Zero(t, res.OutsideWindow)
	assert.Nil(t, res.AsOf)

	// The default day-long window keeps all three.
	res, err = RelatedIncidents(in, "Line-PLC")
	require.NoError(t, err)
	assert.Len(t, res.Incidents, 3)
	assert.Equal(t, 24.0, res.TimeRangeHours)
}

func TestRelatedIncidentsLimit(t *testing.T) {
	cfg := config.DefaultAnalyzerConfig()
	cfg.Incidents.Limit = 2
	in := NewInput(graph.DemoFactory().Build(), baseline.Demo(), &cfg)

	res, err := RelatedIncidents(in, "EdgeGateway-02")
	require.NoError(t, err)
	require.Len(t, res.Incidents, 2)
	assert.Equal(t, "EdgeGateway-02", res.Incidents[0].AssetID)
	assert.Equal(t, 2, res.Truncated)
}

func TestTraceIncidentFollowsRootCause(t *testing.T) {
	tr, err := TraceIncident(demoInput(), "PLC-001")
	require.NoError(t, err)

	assert.Equal(t, "NetworkSwitch-05", tr.Summary.RootCause)
	assert.Equal(t, "Power supply failure", tr.Summary.RootCauseReason)
	assert.Equal(t, 2, tr.Summary.UpstreamFailures)
	assert.Equal(t, 0, tr.Summary.DownstreamImpact)
	assert.Equal(t, 3, tr.Summary.RelatedIncidents)
	assert.Equal(t, 3, tr.Summary.NodesAnalyzed)
	assert.Equal(t, SeverityMedium, tr.Priority)
	assert.Len(t, tr.Connections, 2)

	var up []string
	for _, u := range tr.Upstream {
		up = append(up, u.AssetID)
	}
	assert.Equal(t, []string{"EdgeGateway-02", "NetworkSwitch-05"}, up)
	assert.Equal(t, []string{
		"Repair NetworkSwitch-05 to restore PLC-001",
		"Escalate to Network Infrastructure (#network-ops)",
	}, tr.Summary.Recommendations)

	require.Len(t, tr.Steps, 7)
	for i, st := range tr.Steps {
		assert.Equal(t, i+1, st.Step)
	}
	assert.Equal(t, stepIssuesFound, tr.Steps[2].Status)
	assert.Equal(t, stepClear, tr.Steps[3].Status)

	fs := tr.Findings()
	require.Len(t, fs, 1)
	assert.Equal(t, NameIncidentTrace, fs[0].Analyzer)
	assert.Equal(t, "NetworkSwitch-05", fs[0].Props["root_cause"])
}

func TestTraceIncidentIsolatedWithImpact(t *testing.T) {
	tr, err := TraceIncident(demoInput(), "NetworkSwitch-05")
	require.NoError(t, err)

	assert.False(t, tr.RootCause.Found)
	assert.Equal(t, "NetworkSwitch-05", tr.Summary.RootCause)
	assert.Zero(t, tr.Summary.UpstreamFailures)
	assert.Equal(t, 3, tr.Summary.DownstreamImpact)
	assert.Equal(t, 4, tr.Summary.NodesAnalyzed)
	assert.Equal(t, SeverityHigh, tr.Priority)
	assert.Equal(t, []string{
		"Investigate NetworkSwitch-05 directly; it appears to be an isolated failure",
		"Monitor 3 affected downstream systems",
	}, tr.Summary.Recommendations)
}

func TestTraceIncidentHealthyAndUnknown(t *testing.T) {
	tr, err := TraceIncident(demoInput(), "Server-01")
	require.NoError(t, err)
	assert.Equal(t, "none", tr.Summary.RootCause)
	assert.Equal(t, SeverityLow, tr.Priority)
	assert.Empty(t, tr.Findings())

	_, err = TraceIncident(demoInput(), "ghost")
	assert.ErrorIs(t, err, graph.ErrAssetNotFound)
}

func TestBlastRadiusRanking(t *testing.T) {
	res := BlastRadiusRanking(demoInput())
	var ids []string
	for _, r := range res.Radii {
		ids = append(ids, r.AssetID)
	}
	assert.Equal(t, []string{"UPS-Main", "NetworkSwitch-05", "EdgeGateway-02", "PLC-002"}, ids)
	assert.Equal(t, SeverityHigh, res.Radii[0].Risk)
	assert.Equal(t, SeverityMedium, res.Radii[1].Risk)
}

func TestScanAnalyzersOnEmptyGraph(t *testing.T) {
	in := NewInput(nil, nil, nil)
	for _, name := range Names {
		a, err := New(name, "")
		require.NoError(t, err)
		res, err := a.Analyze(context.Background(), in)
		require.NoError(t, err, name)
		assert.Empty(t, res.Findings(), name)
	}
}

func TestNewUnknownAnalyzer(t *testing.T) {
	_, err := New("astrology", "")
	assert.ErrorIs(t, err, ErrUnknownAnalyzer)
	assert.Equal(t, 6, Index(NameDrift))
	assert.Equal(t, -1, Index("astrology"))
}

func TestSeverityText(t *testing.T) {
	b, err := SeverityCritical.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "critical", string(b))

	var s Severity
	require.NoError(t, s.UnmarshalText([]byte("HIGH")))
	assert.Equal(t, SeverityHigh, s)
	assert.Error(t, s.UnmarshalText([]byte("meh")))

	fs := []Finding{
		{Analyzer: "b", AssetID: "x", Severity: SeverityLow},
		{Analyzer: "a", AssetID: "y", Severity: SeverityCritical},
		{Analyzer: "a", AssetID: "x", Severity: SeverityLow},
	}
	SortFindings(fs)
	assert.Equal(t, "y", fs[0].AssetID)
	assert.Equal(t, "a", fs[1].Analyzer)
	assert.Equal(t, SeverityCritical, MaxSeverity(fs))
}
