package graph

import (
	"sync/atomic"
	"time"
)

// Metadata describes data-quality issues found while sealing a snapshot.
type Metadata struct {
	Partial        bool
	DanglingEdges  []DanglingEdge
	DuplicateEdges int
}

// Neighbor is an adjacent asset reached over one typed edge.
type Neighbor struct {
	Asset *Asset
	Type  RelationshipType
}

// Snapshot is an immutable view of the asset graph. Every accessor is safe
// for concurrent use; callers must treat returned *Asset values as read-only.
type Snapshot struct {
	version   uint64
	builtAt   time.Time
	assets    []*Asset
	idMap     map[string]uint32
	out       [][]Edge
	in        [][]Edge
	edgeCount int
	meta      Metadata
}

// EmptySnapshot returns a snapshot with no assets.
func EmptySnapshot() *Snapshot {
	return &Snapshot{idMap: map[string]uint32{}}
}

// Version is the handle sequence number assigned when the snapshot was
// published (0 for unpublished snapshots).
func (s *Snapshot) Version() uint64 { return s.version }

// BuiltAt is when the snapshot was sealed.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Metadata returns a copy of the seal-time diagnostics.
func (s *Snapshot) Metadata() Metadata {
	m := s.meta
	m.DanglingEdges = append([]DanglingEdge(nil), s.meta.DanglingEdges...)
	return m
}

// Len is the number of assets.
func (s *Snapshot) Len() int { return len(s.assets) }

// EdgeCount is the number of resolved relationships.
func (s *Snapshot) EdgeCount() int { return s.edgeCount }

// Has reports whether id is an asset in this snapshot.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.idMap[id]
	return ok
}

// Asset looks up an asset by id.
func (s *Snapshot) Asset(id string) (*Asset, error) {
	idx, ok := s.idMap[id]
	if !ok {
		return nil, &AssetNotFoundError{ID: id}
	}
	return s.assets[idx], nil
}

// Assets returns all assets ordered by id.
func (s *Snapshot) Assets() []*Asset {
	res := make([]*Asset, len(s.assets))
	copy(res, s.assets)
	return res
}

// Filter returns assets matching pred, ordered by id.
func (s *Snapshot) Filter(pred func(*Asset) bool) []*Asset {
	var res []*Asset
	for _, a := range s.assets {
		if pred(a) {
			res = append(res, a)
		}
	}
	return res
}

// Out lists forward neighbours of id over the given relationship types
// (all types when none are given).
func (s *Snapshot) Out(id string, types ...RelationshipType) []Neighbor {
	idx, ok := s.idMap[id]
	if !ok {
		return nil
	}
	return s.neighbors(s.out[idx], allowTypes(types))
}

// In lists reverse neighbours of id (assets with an edge pointing at id).
func (s *Snapshot) In(id string, types ...RelationshipType) []Neighbor {
	idx, ok := s.idMap[id]
	if !ok {
		return nil
	}
	return s.neighbors(s.in[idx], allowTypes(types))
}

// InDegree counts incoming edges of the given types.
func (s *Snapshot) InDegree(id string, types ...RelationshipType) int {
	idx, ok := s.idMap[id]
	if !ok {
		return 0
	}
	allow := allowTypes(types)
	n := 0
	for _, e := range s.in[idx] {
		if allow(e.Type) {
			n++
		}
	}
	return n
}

// Relationships returns every resolved edge ordered by source, target, type.
func (s *Snapshot) Relationships() []Relationship {
	res := make([]Relationship, 0, s.edgeCount)
	for src, edges := range s.out {
		for _, e := range edges {
			res = append(res, Relationship{
				Source: s.assets[src].ID,
				Target: s.assets[e.Peer].ID,
				Type:   e.Type,
			})
		}
	}
	return res
}

func (s *Snapshot) neighbors(edges []Edge, allow func(RelationshipType) bool) []Neighbor {
	var res []Neighbor
	for _, e := range edges {
		if allow(e.Type) {
			res = append(res, Neighbor{Asset: s.assets[e.Peer], Type: e.Type})
		}
	}
	return res
}

func allowTypes(types []RelationshipType) func(RelationshipType) bool {
	if len(types) == 0 {
		return func(RelationshipType) bool { return true }
	}
	set := make(map[RelationshipType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return func(t RelationshipType) bool {
		_, ok := set[t]
		return ok
	}
}

// Handle is the process-wide pointer to the current snapshot. Analyses pin
// one snapshot via Load for their whole duration; refreshes publish a new
// one via Swap without disturbing in-flight readers.
type Handle struct {
	current atomic.Pointer[Snapshot]
	seq     atomic.Uint64
}

// NewHandle publishes initial (which may be nil).
func NewHandle(initial *Snapshot) *Handle {
	h := &Handle{}
	if initial != nil {
		h.Swap(initial)
	}
	return h
}

// Load returns the current snapshot, or an empty one if none was published.
func (h *Handle) Load() *Snapshot {
	if s := h.current.Load(); s != nil {
		return s
	}
	return EmptySnapshot()
}

// Swap publishes next with a fresh version and returns the previous snapshot.
func (h *Handle) Swap(next *Snapshot) *Snapshot {
	published := *next
	published.version = h.seq.Add(1)
	return h.current.Swap(&published)
}
