package graph

import (
	"slices"
	"sort"
)

// Direction selects which way edges are followed.
type Direction int

const (
	// Downstream follows edges forward, towards dependents and effects.
	Downstream Direction = iota
	// Upstream follows edges in reverse, towards causes.
	Upstream
	// Either ignores edge direction.
	Either
)

func (d Direction) String() string {
	switch d {
	case Upstream:
		return "upstream"
	case Either:
		return "either"
	default:
		return "downstream"
	}
}

// edges returns the adjacency of idx for the direction. Either concatenates
// the forward and reverse lists.
func (s *Snapshot) edges(idx uint32, d Direction) []Edge {
	switch d {
	case Upstream:
		return s.in[idx]
	case Either:
		if len(s.in[idx]) == 0 {
			return s.out[idx]
		}
		all := make([]Edge, 0, len(s.out[idx])+len(s.in[idx]))
		all = append(all, s.out[idx]...)
		return append(all, s.in[idx]...)
	default:
		return s.out[idx]
	}
}

// Path is an ordered witness. Types[i] labels the edge between Nodes[i] and
// Nodes[i+1], so len(Types) == len(Nodes)-1 and the hop count is len(Types).
type Path struct {
	Nodes []string           `json:"nodes"`
	Types []RelationshipType `json:"types"`
}

// Hops is the number of edges in the path.
func (p Path) Hops() int { return len(p.Types) }

// Origin is the first node.
func (p Path) Origin() string {
	if len(p.Nodes) == 0 {
		return ""
	}
	return p.Nodes[0]
}

// End is the last node.
func (p Path) End() string {
	if len(p.Nodes) == 0 {
		return ""
	}
	return p.Nodes[len(p.Nodes)-1]
}

// Reverse returns the path read from the other end.
func (p Path) Reverse() Path {
	r := Path{
		Nodes: make([]string, len(p.Nodes)),
		Types: make([]RelationshipType, len(p.Types)),
	}
	for i, n := range p.Nodes {
		r.Nodes[len(p.Nodes)-1-i] = n
	}
	for i, t := range p.Types {
		r.Types[len(p.Types)-1-i] = t
	}
	return r
}

// Compare orders paths lexicographically by node ids, then by relationship
// types. It returns -1, 0 or +1.
func (p Path) Compare(o Path) int {
	if c := slices.Compare(p.Nodes, o.Nodes); c != 0 {
		return c
	}
	return slices.Compare(p.Types, o.Types)
}

// TraverseOptions parameterise a bounded search.
type TraverseOptions struct {
	Direction Direction
	// Types is the relationship allow-list; empty means every type.
	Types []RelationshipType
	// MaxHops bounds the frontier; deeper nodes are silently dropped.
	MaxHops int
	// Predicate limits which reached nodes are reported. Non-matching nodes
	// are still expanded.
	Predicate func(*Asset) bool
}

// Reached is one node found by Traverse.
type Reached struct {
	Asset    *Asset
	Distance int
	// Path runs from the traversal start to Asset.
	Path Path
}

// Traverse runs a breadth-first search from start. Every node is visited at
// most once and keeps its first (shortest) distance; the start node is not
// reported. Results are ordered by distance, then id.
func Traverse(s *Snapshot, start string, opts TraverseOptions) ([]Reached, error) {
	startIdx, ok := s.idMap[start]
	if !ok {
		return nil, &AssetNotFoundError{ID: start}
	}
	if opts.MaxHops <= 0 {
		return nil, nil
	}

	allow := allowTypes(opts.Types)

	const none = ^uint32(0)
	type visit struct {
		dist   int
		parent uint32
		via    RelationshipType
	}
	visited := map[uint32]visit{startIdx: {dist: 0, parent: none}}
	queue := []uint32{startIdx}
	var order []uint32

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := visited[cur].dist
		if d >= opts.MaxHops {
			continue
		}
		for _, e := range s.edges(cur, opts.Direction) {
			if !allow(e.Type) {
				continue
			}
			if _, seen := visited[e.Peer]; seen {
				continue
			}
			visited[e.Peer] = visit{dist: d + 1, parent: cur, via: e.Type}
			queue = append(queue, e.Peer)
			order = append(order, e.Peer)
		}
	}

	var res []Reached
	for _, idx := range order {
		a := s.assets[idx]
		if opts.Predicate != nil && !opts.Predicate(a) {
			continue
		}

		// Rebuild the witness by walking parents back to the start.
		var nodes []string
		var types []RelationshipType
		for cur := idx; cur != none; cur = visited[cur].parent {
			nodes = append(nodes, s.assets[cur].ID)
			if visited[cur].parent != none {
				types = append(types, visited[cur].via)
			}
		}
		p := Path{Nodes: nodes, Types: types}.Reverse()

		res = append(res, Reached{Asset: a, Distance: visited[idx].dist, Path: p})
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Distance != res[j].Distance {
			return res[i].Distance < res[j].Distance
		}
		return res[i].Asset.ID < res[j].Asset.ID
	})
	return res, nil
}

// WalkPaths enumerates every simple path (no node repeated within a path)
// of 1..MaxHops edges starting at start, calling fn for each path whose end
// node satisfies opts.Predicate (all paths when nil). Paths run from start
// outward. Returning false from fn stops the walk.
func WalkPaths(s *Snapshot, start string, opts TraverseOptions, fn func(Path, *Asset) bool) error {
	startIdx, ok := s.idMap[start]
	if !ok {
		return &AssetNotFoundError{ID: start}
	}
	if opts.MaxHops <= 0 {
		return nil
	}

	allow := allowTypes(opts.Types)

	onPath := map[uint32]bool{startIdx: true}
	stack := []uint32{startIdx}
	var via []RelationshipType
	stopped := false

	var walk func(cur uint32)
	walk = func(cur uint32) {
		for _, e := range s.edges(cur, opts.Direction) {
			if stopped {
				return
			}
			if !allow(e.Type) || onPath[e.Peer] {
				continue
			}

			stack = append(stack, e.Peer)
			via = append(via, e.Type)
			onPath[e.Peer] = true

			end := s.assets[e.Peer]
			if opts.Predicate == nil || opts.Predicate(end) {
				p := Path{
					Nodes: make([]string, len(stack)),
					Types: append([]RelationshipType(nil), via...),
				}
				for i, idx := range stack {
					p.Nodes[i] = s.assets[idx].ID
				}
				if !fn(p, end) {
					stopped = true
				}
			}
			if !stopped && len(via) < opts.MaxHops {
				walk(e.Peer)
			}

			onPath[e.Peer] = false
			stack = stack[:len(stack)-1]
			via = via[:len(via)-1]
		}
	}
	walk(startIdx)
	return nil
}

// Paths collects the output of WalkPaths.
func Paths(s *Snapshot, start string, opts TraverseOptions) ([]Path, error) {
	var res []Path
	err := WalkPaths(s, start, opts, func(p Path, _ *Asset) bool {
		res = append(res, p)
		return true
	})
	return res, err
}
