package graph

import (
	"errors"
	"reflect"
	"testing"
)

func TestTraverseDownstreamDistances(t *testing.T) {
	s := DemoFactory().Build()

	reached, err := Traverse(s, "UPS-Main", TraverseOptions{
		Direction: Downstream,
		Types:     OperationalTypes,
		MaxHops:   5,
	})
	if err != nil {
		t.Fatal(err)
	}

	got := map[string]int{}
	for _, r := range reached {
		got[r.Asset.ID] = r.Distance
	}
	want := map[string]int{
		"PDU-01": 1, "PowerSupply-02": 1,
		"Server-01": 2, "Server-02": 2, "Robot-01": 2, "HMI-01": 2,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Ordered by distance then id.
	if reached[0].Asset.ID != "PDU-01" || reached[len(reached)-1].Asset.ID != "Server-02" {
		t.Errorf("unexpected order: first=%s last=%s", reached[0].Asset.ID, reached[len(reached)-1].Asset.ID)
	}

	for _, r := range reached {
		if r.Path.Origin() != "UPS-Main" || r.Path.End() != r.Asset.ID || r.Path.Hops() != r.Distance {
			t.Errorf("bad witness for %s: %+v", r.Asset.ID, r.Path)
		}
	}
}

func TestTraverseUpstreamWithPredicate(t *testing.T) {
	s := DemoFactory().Build()

	reached, err := Traverse(s, "PLC-001", TraverseOptions{
		Direction: Upstream,
		Types:     OperationalTypes,
		MaxHops:   5,
		Predicate: func(a *Asset) bool { return a.Type == TypeNetworkSwitch },
	})
	if err != nil {
		t.Fatal(err)
	}
	// The gateway fails the predicate but must still be expanded.
	if len(reached) != 1 {
		t.Fatalf("expected one switch ancestor, got %d", len(reached))
	}
	if reached[0].Asset.ID != "NetworkSwitch-05" || reached[0].Distance != 2 {
		t.Errorf("unexpected %+v", reached[0])
	}
	want := Path{Nodes: []string{"PLC-001", "EdgeGateway-02", "NetworkSwitch-05"}, Types: []RelationshipType{ConnectsTo, ConnectsTo}}
	if !reflect.DeepEqual(reached[0].Path, want) {
		t.Errorf("witness = %+v, want %+v", reached[0].Path, want)
	}
}

func TestTraverseMaxHopsTruncates(t *testing.T) {
	s := NewMockFactory().
		Add("A", TypePLC, StatusOnline).Add("B", TypePLC, StatusOnline).
		Add("C", TypePLC, StatusOnline).Add("D", TypePLC, StatusOnline).
		Chain(DependsOn, "A", "B", "C", "D").
		Build()

	reached, err := Traverse(s, "A", TraverseOptions{Direction: Downstream, MaxHops: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(reached) != 2 {
		t.Errorf("expected truncation at 2 hops, got %d nodes", len(reached))
	}

	none, err := Traverse(s, "A", TraverseOptions{Direction: Downstream, MaxHops: 0})
	if err != nil || len(none) != 0 {
		t.Errorf("zero hops must reach nothing, got %v %v", none, err)
	}
}

func TestTraverseCycleTerminates(t *testing.T) {
	s := NewMockFactory().
		Add("A", TypeServer, StatusOnline).
		Add("B", TypeServer, StatusOnline).
		Add("C", TypeServer, StatusOnline).
		Chain(DependsOn, "A", "B", "C", "A").
		Link("B", FeedsData, "A").
		Build()

	for _, dir := range []Direction{Downstream, Upstream} {
		reached, err := Traverse(s, "A", TraverseOptions{Direction: dir, MaxHops: 50})
		if err != nil {
			t.Fatal(err)
		}
		seen := map[string]bool{}
		for _, r := range reached {
			if seen[r.Asset.ID] {
				t.Errorf("%s: %s visited twice", dir, r.Asset.ID)
			}
			seen[r.Asset.ID] = true
		}
		if len(reached) != 2 || seen["A"] {
			t.Errorf("%s: expected B and C only, got %v", dir, seen)
		}
	}

	paths, err := Paths(s, "A", TraverseOptions{Direction: Downstream, MaxHops: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range paths {
		seen := map[string]bool{}
		for _, n := range p.Nodes {
			if seen[n] {
				t.Errorf("path repeats %s: %v", n, p.Nodes)
			}
			seen[n] = true
		}
	}
	if len(paths) != 2 {
		t.Errorf("expected A->B and A->B->C, got %d paths", len(paths))
	}
}

func TestTraverseTypeAllowList(t *testing.T) {
	s := DemoFactory().Build()
	reached, err := Traverse(s, "Robot-01", TraverseOptions{Direction: Downstream, Types: OperationalTypes, MaxHops: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(reached) != 0 {
		t.Errorf("BELONGS_TO_ZONE must not be followed, got %d", len(reached))
	}
}

func TestTraverseUnknownStart(t *testing.T) {
	s := DemoFactory().Build()
	if _, err := Traverse(s, "missing", TraverseOptions{MaxHops: 3}); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
	if err := WalkPaths(s, "missing", TraverseOptions{MaxHops: 3}, nil); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestWalkPathsEnumeratesAllRoutes(t *testing.T) {
	// Diamond: A -> B -> D, A -> C -> D, plus D -> E.
	s := NewMockFactory().
		Add("A", TypePLC, StatusOffline).Add("B", TypePLC, StatusOnline).
		Add("C", TypePLC, StatusOnline).Add("D", TypePLC, StatusOnline).
		Add("E", TypePLC, StatusOnline).
		Link("A", ConnectsTo, "B").Link("A", ConnectsTo, "C").
		Link("B", ConnectsTo, "D").Link("C", ConnectsTo, "D").
		Link("D", ConnectsTo, "E").
		Build()

	paths, err := Paths(s, "E", TraverseOptions{
		Direction: Upstream,
		MaxHops:   5,
		Predicate: func(a *Asset) bool { return a.ID == "A" },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected two witnesses to A, got %v", paths)
	}
	for _, p := range paths {
		if p.Hops() != 3 || p.End() != "A" {
			t.Errorf("bad witness %v", p)
		}
	}

	// Early stop.
	count := 0
	_ = WalkPaths(s, "A", TraverseOptions{Direction: Downstream, MaxHops: 5}, func(Path, *Asset) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("walk should stop after first callback, got %d", count)
	}
}

func TestPathReverseAndCompare(t *testing.T) {
	p := Path{Nodes: []string{"a", "b", "c"}, Types: []RelationshipType{Powers, ConnectsTo}}
	r := p.Reverse()
	if !reflect.DeepEqual(r.Nodes, []string{"c", "b", "a"}) || !reflect.DeepEqual(r.Types, []RelationshipType{ConnectsTo, Powers}) {
		t.Errorf("bad reverse %+v", r)
	}
	if p.Compare(p) != 0 {
		t.Error("a path must compare equal to itself")
	}

	// Node ids decide before relationship types.
	viaX := Path{Nodes: []string{"O", "X", "T"}, Types: []RelationshipType{FeedsData, FeedsData}}
	viaY := Path{Nodes: []string{"O", "Y", "T"}, Types: []RelationshipType{ConnectsTo, ConnectsTo}}
	if viaX.Compare(viaY) >= 0 {
		t.Error("[O X T] must sort before [O Y T] whatever the edge types")
	}

	// A shorter id that is a prefix of a longer one sorts first.
	short := Path{Nodes: []string{"A", "T"}, Types: []RelationshipType{Powers}}
	long := Path{Nodes: []string{"AB", "T"}, Types: []RelationshipType{Powers}}
	if short.Compare(long) >= 0 {
		t.Error("A must sort before AB")
	}

	// Same nodes fall back to types.
	a := Path{Nodes: []string{"a", "b"}, Types: []RelationshipType{ConnectsTo}}
	b := Path{Nodes: []string{"a", "b"}, Types: []RelationshipType{Powers}}
	if a.Compare(b) >= 0 || b.Compare(a) <= 0 {
		t.Error("types must break ties between equal node sequences")
	}
}

func TestTraverseEitherDirection(t *testing.T) {
	s := DemoFactory().Build()
	reached, err := Traverse(s, "EdgeGateway-02", TraverseOptions{Direction: Either, Types: OperationalTypes, MaxHops: 2})
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]int{}
	for _, r := range reached {
		got[r.Asset.ID] = r.Distance
	}
	want := map[string]int{
		"NetworkSwitch-05": 1, "PLC-001": 1,
		"Router-01": 2, "Camera-07": 2, "Sensor-101": 2,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
