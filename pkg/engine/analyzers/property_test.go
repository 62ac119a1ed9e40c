package analyzers

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

const propNodes = 10

var (
	propRels     = []graph.RelationshipType{graph.Powers, graph.ConnectsTo, graph.FeedsData, graph.DependsOn, graph.BelongsToZone}
	propStatuses = []graph.Status{graph.StatusOnline, graph.StatusRunning, graph.StatusOffline, graph.StatusDegraded, graph.StatusUnreachable, graph.StatusWarning}
	propTypes    = []graph.AssetType{graph.TypePLC, graph.TypeUPS, graph.TypeNetworkSwitch, graph.TypeServer}
)

func randomFactory(statuses, kinds, src, dst, rels []int) *graph.Snapshot {
	m := graph.NewMockFactory()
	for i := 0; i < propNodes; i++ {
		m.Add(fmt.Sprintf("a%d", i), propTypes[kinds[i]%len(propTypes)], propStatuses[statuses[i]%len(propStatuses)])
	}
	for i := range src {
		if i >= len(dst) || i >= len(rels) {
			break
		}
		m.Link(fmt.Sprintf("a%d", src[i]), propRels[rels[i]%len(propRels)], fmt.Sprintf("a%d", dst[i]))
	}
	return m.Build()
}

func linked(s *graph.Snapshot, from, to string, allowed []graph.RelationshipType) bool {
	for _, n := range s.Out(from, allowed...) {
		if n.Asset.ID == to {
			return true
		}
	}
	return false
}

func TestAnalyzerProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("property tests skipped in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	nodes := gen.SliceOfN(propNodes, gen.IntRange(0, 11))
	edges := gen.SliceOfN(25, gen.IntRange(0, propNodes-1))
	rels := gen.SliceOfN(25, gen.IntRange(0, len(propRels)-1))

	properties.Property("root cause chains are real failing paths ending at the target", prop.ForAll(
		func(st, kd, src, dst, rl []int) bool {
			in := NewInput(randomFactory(st, kd, src, dst, rl), nil, nil)
			allowed := relTypes(in.Config.RootCause.Types)
			failing := graph.StatusSetOf(in.Config.RootCause.FailureStatuses)
			for _, a := range in.Graph.Assets() {
				res, err := FindRootCause(in, a.ID)
				if err != nil {
					return false
				}
				if !res.Found {
					if len(res.Chain) != 0 {
						return false
					}
					continue
				}
				if len(res.Chain) != res.Depth+1 || res.Depth < 1 || res.Depth > in.Config.RootCause.MaxHops {
					return false
				}
				if res.Chain[0].AssetID != res.RootCause || res.Chain[res.Depth].AssetID != a.ID {
					return false
				}
				if !failing.Has(res.RootCauseStatus) {
					return false
				}
				for i := 0; i+1 < len(res.Chain); i++ {
					if !linked(in.Graph, res.Chain[i].AssetID, res.Chain[i+1].AssetID, allowed) {
						return false
					}
				}
			}
			return true
		},
		nodes, nodes, edges, edges, rels,
	))

	properties.Property("cascade never reports more affected than reached", prop.ForAll(
		func(st, kd, src, dst, rl []int) bool {
			in := NewInput(randomFactory(st, kd, src, dst, rl), nil, nil)
			for _, a := range in.Graph.Assets() {
				res, err := AnalyzeCascade(in, a.ID)
				if err != nil {
					return false
				}
				if res.TotalDownstream < res.CurrentlyAffected {
					return false
				}
				if res.PotentialImpact != res.TotalDownstream-res.CurrentlyAffected {
					return false
				}
				if res.ImpactRadius > in.Config.Cascade.MaxHops {
					return false
				}
			}
			return true
		},
		nodes, nodes, edges, edges, rels,
	))

	properties.Property("analyzers are deterministic", prop.ForAll(
		func(st, kd, src, dst, rl []int) bool {
			in := NewInput(randomFactory(st, kd, src, dst, rl), nil, nil)
			for _, name := range Names {
				a, _ := New(name, "")
				first, err1 := a.Analyze(context.Background(), in)
				second, err2 := a.Analyze(context.Background(), in)
				if err1 != nil || err2 != nil || !reflect.DeepEqual(first, second) {
					return false
				}
			}
			return true
		},
		nodes, nodes, edges, edges, rels,
	))

	properties.TestingRun(t)
}
