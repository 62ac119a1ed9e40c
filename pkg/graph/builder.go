package graph

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/sys/intern"
)

type opKind int

const (
	opAsset opKind = iota
	opRelationship
)

type graphOp struct {
	kind  opKind
	asset Asset
	rel   Relationship
}

// Builder accumulates one ingestion refresh. Writers push onto a buffered
// channel drained by a single builder goroutine; Seal closes the pipeline and
// resolves relationships into an immutable Snapshot.
type Builder struct {
	mu     sync.RWMutex
	sealed bool

	logger *slog.Logger
	pool   *intern.Pool

	opChan    chan graphOp
	buildDone chan struct{}

	assets  map[string]*Asset
	pending []Relationship
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBuilderLogger sets the logger used to report dangling edges.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder starts the builder goroutine.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		logger:    slog.Default(),
		pool:      intern.NewPool(),
		opChan:    make(chan graphOp, 1024),
		buildDone: make(chan struct{}),
		assets:    make(map[string]*Asset),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Builder) run() {
	defer close(b.buildDone)
	for op := range b.opChan {
		switch op.kind {
		case opAsset:
			a := op.asset
			a.Type = AssetType(b.pool.String(string(a.Type)))
			a.Status = Status(b.pool.String(string(a.Status)))
			a.Zone = b.pool.String(a.Zone)
			a.SecurityZone = b.pool.String(a.SecurityZone)
			// Last record for an id wins; refreshes are wholesale.
			b.assets[a.ID] = &a
		case opRelationship:
			b.pending = append(b.pending, op.rel)
		}
	}
}

// AddAsset queues an asset. Records with an empty id are ignored.
func (b *Builder) AddAsset(a Asset) {
	if a.ID == "" {
		return
	}
	if a.Status == "" {
		a.Status = StatusUnknown
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.sealed {
		b.logger.Warn("asset added after seal, ignoring", "asset", a.ID)
		return
	}
	b.opChan <- graphOp{kind: opAsset, asset: a}
}

// AddRelationship queues a typed edge. Endpoints are resolved at Seal time,
// so edges may arrive before their assets.
func (b *Builder) AddRelationship(source, target string, t RelationshipType) {
	if source == "" || target == "" {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.sealed {
		b.logger.Warn("relationship added after seal, ignoring", "source", source, "target", target)
		return
	}
	b.opChan <- graphOp{kind: opRelationship, rel: Relationship{Source: source, Target: target, Type: t}}
}

// Seal stops ingestion, waits for the builder goroutine and returns the
// snapshot. Relationships that reference unknown assets are logged and
// recorded as dangling edges instead of failing the build.
func (b *Builder) Seal() *Snapshot {
	b.mu.Lock()
	if !b.sealed {
		b.sealed = true
		close(b.opChan)
	}
	b.mu.Unlock()
	<-b.buildDone

	ids := make([]string, 0, len(b.assets))
	for id := range b.assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s := &Snapshot{
		builtAt: time.Now().UTC(),
		assets:  make([]*Asset, len(ids)),
		idMap:   make(map[string]uint32, len(ids)),
		out:     make([][]Edge, len(ids)),
		in:      make([][]Edge, len(ids)),
	}
	for i, id := range ids {
		s.assets[i] = b.assets[id]
		s.idMap[id] = uint32(i)
	}

	type edgeKey struct {
		src, dst uint32
		t        RelationshipType
	}
	seen := make(map[edgeKey]struct{}, len(b.pending))

	for _, rel := range b.pending {
		src, okSrc := s.idMap[rel.Source]
		dst, okDst := s.idMap[rel.Target]
		if !okSrc || !okDst {
			missing := rel.Target
			if !okSrc {
				missing = rel.Source
			}
			d := DanglingEdge{Relationship: rel, Missing: missing}
			s.meta.DanglingEdges = append(s.meta.DanglingEdges, d)
			b.logger.Warn("skipping dangling edge",
				"source", rel.Source, "target", rel.Target, "type", string(rel.Type), "missing", missing)
			continue
		}

		key := edgeKey{src, dst, rel.Type}
		if _, dup := seen[key]; dup {
			s.meta.DuplicateEdges++
			continue
		}
		seen[key] = struct{}{}

		s.out[src] = append(s.out[src], Edge{Peer: dst, Type: rel.Type})
		s.in[dst] = append(s.in[dst], Edge{Peer: src, Type: rel.Type})
		s.edgeCount++
	}

	// Adjacency order is fixed so traversal output never depends on
	// ingestion order.
	for i := range s.out {
		sortEdges(s.out[i])
		sortEdges(s.in[i])
	}
	s.meta.Partial = len(s.meta.DanglingEdges) > 0

	return s
}

func sortEdges(edges []Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Peer != edges[j].Peer {
			return edges[i].Peer < edges[j].Peer
		}
		return edges[i].Type < edges[j].Type
	})
}
