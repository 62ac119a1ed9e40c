package graph

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const propNodes = 10

var propTypes = []RelationshipType{Powers, ConnectsTo, FeedsData, DependsOn}

// randomPlant builds a small graph from parallel index slices. Self loops,
// duplicates and cycles are all allowed.
func randomPlant(src, dst, kinds []int) *Snapshot {
	m := NewMockFactory()
	for i := 0; i < propNodes; i++ {
		m.Add(fmt.Sprintf("n%d", i), TypePLC, StatusOnline)
	}
	for i := range src {
		if i >= len(dst) || i >= len(kinds) {
			break
		}
		m.Link(fmt.Sprintf("n%d", src[i]), propTypes[kinds[i]%len(propTypes)], fmt.Sprintf("n%d", dst[i]))
	}
	return m.Build()
}

func hasEdge(s *Snapshot, from, to string, t RelationshipType) bool {
	for _, n := range s.Out(from, t) {
		if n.Asset.ID == to {
			return true
		}
	}
	return false
}

func TestTraversalProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("property tests skipped in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	edges := gen.SliceOfN(30, gen.IntRange(0, propNodes-1))
	kinds := gen.SliceOfN(30, gen.IntRange(0, len(propTypes)-1))

	properties.Property("traverse visits each node once within bounds", prop.ForAll(
		func(src, dst, k []int, hops int, up bool) bool {
			s := randomPlant(src, dst, k)
			dir := Downstream
			if up {
				dir = Upstream
			}
			allowed := []RelationshipType{ConnectsTo, DependsOn}
			reached, err := Traverse(s, "n0", TraverseOptions{Direction: dir, Types: allowed, MaxHops: hops})
			if err != nil {
				return false
			}
			seen := map[string]bool{"n0": true}
			for _, r := range reached {
				if seen[r.Asset.ID] || r.Distance < 1 || r.Distance > hops || r.Path.Hops() != r.Distance {
					return false
				}
				seen[r.Asset.ID] = true
				for i, typ := range r.Path.Types {
					if typ != ConnectsTo && typ != DependsOn {
						return false
					}
					from, to := r.Path.Nodes[i], r.Path.Nodes[i+1]
					if dir == Upstream {
						from, to = to, from
					}
					if !hasEdge(s, from, to, typ) {
						return false
					}
				}
			}
			return true
		},
		edges, edges, kinds, gen.IntRange(0, 6), gen.Bool(),
	))

	properties.Property("reach grows with max hops", prop.ForAll(
		func(src, dst, k []int, hops int) bool {
			s := randomPlant(src, dst, k)
			short, _ := Traverse(s, "n0", TraverseOptions{MaxHops: hops})
			long, _ := Traverse(s, "n0", TraverseOptions{MaxHops: hops + 1})
			ids := map[string]int{}
			for _, r := range long {
				ids[r.Asset.ID] = r.Distance
			}
			for _, r := range short {
				if d, ok := ids[r.Asset.ID]; !ok || d != r.Distance {
					return false
				}
			}
			return len(long) >= len(short)
		},
		edges, edges, kinds, gen.IntRange(0, 5),
	))

	properties.Property("walked paths are simple", prop.ForAll(
		func(src, dst, k []int) bool {
			s := randomPlant(src, dst, k)
			ok := true
			_ = WalkPaths(s, "n0", TraverseOptions{Direction: Upstream, MaxHops: 4}, func(p Path, _ *Asset) bool {
				seen := map[string]bool{}
				for _, n := range p.Nodes {
					if seen[n] {
						ok = false
						return false
					}
					seen[n] = true
				}
				if p.Hops() < 1 || p.Hops() > 4 || len(p.Nodes) != p.Hops()+1 {
					ok = false
					return false
				}
				return true
			})
			return ok
		},
		edges, edges, kinds,
	))

	properties.TestingRun(t)
}
