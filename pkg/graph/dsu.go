package graph

import "sort"

// UnionFind is a disjoint-set forest over dense indices with path
// compression and union by rank. It is not safe for concurrent use.
type UnionFind struct {
	parent []int
	rank   []int
}

// NewUnionFind initializes n singleton sets.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &UnionFind{parent: parent, rank: make([]int, n)}
}

// Find returns the set representative, or -1 when i is out of range.
func (uf *UnionFind) Find(i int) int {
	if i < 0 || i >= len(uf.parent) {
		return -1
	}
	if uf.parent[i] != i {
		uf.parent[i] = uf.Find(uf.parent[i])
	}
	return uf.parent[i]
}

// Union merges the sets holding i and j.
func (uf *UnionFind) Union(i, j int) {
	rootI, rootJ := uf.Find(i), uf.Find(j)
	if rootI == -1 || rootJ == -1 || rootI == rootJ {
		return
	}
	switch {
	case uf.rank[rootI] < uf.rank[rootJ]:
		uf.parent[rootI] = rootJ
	case uf.rank[rootI] > uf.rank[rootJ]:
		uf.parent[rootJ] = rootI
	default:
		uf.parent[rootJ] = rootI
		uf.rank[rootI]++
	}
}

// Connected reports whether i and j share a set.
func (uf *UnionFind) Connected(i, j int) bool {
	return uf.Find(i) != -1 && uf.Find(i) == uf.Find(j)
}

// Groups returns the members of every set, each group ascending and groups
// ordered by their smallest member.
func (uf *UnionFind) Groups() [][]int {
	byRoot := make(map[int][]int)
	for i := range uf.parent {
		r := uf.Find(i)
		byRoot[r] = append(byRoot[r], i)
	}
	groups := make([][]int, 0, len(byRoot))
	for _, g := range byRoot {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })
	return groups
}

// Components partitions the assets into weakly connected islands over the
// given relationship types (all when none). Islands are ordered by their
// smallest asset id.
func (s *Snapshot) Components(types ...RelationshipType) [][]string {
	allow := allowTypes(types)
	uf := NewUnionFind(len(s.assets))
	for src, edges := range s.out {
		for _, e := range edges {
			if allow(e.Type) {
				uf.Union(src, int(e.Peer))
			}
		}
	}

	var res [][]string
	for _, g := range uf.Groups() {
		ids := make([]string, len(g))
		for i, idx := range g {
			ids[i] = s.assets[idx].ID
		}
		res = append(res, ids)
	}
	return res
}
