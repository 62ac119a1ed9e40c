package graph

import (
	"errors"
	"sync"
	"testing"
)

func TestBuilderSealResolvesEdges(t *testing.T) {
	b := NewBuilder()
	// Edges may arrive before their assets.
	b.AddRelationship("A", "B", Powers)
	b.AddAsset(Asset{ID: "A", Type: TypeUPS, Status: StatusOnline})
	b.AddAsset(Asset{ID: "B", Type: TypePLC, Status: StatusOffline})
	b.AddRelationship("A", "B", Powers) // duplicate
	b.AddRelationship("A", "ghost", ConnectsTo)
	s := b.Seal()

	if s.Len() != 2 {
		t.Fatalf("expected 2 assets, got %d", s.Len())
	}
	if s.EdgeCount() != 1 {
		t.Errorf("expected 1 resolved edge, got %d", s.EdgeCount())
	}

	meta := s.Metadata()
	if !meta.Partial || len(meta.DanglingEdges) != 1 {
		t.Fatalf("expected one dangling edge, got %+v", meta)
	}
	if meta.DanglingEdges[0].Missing != "ghost" {
		t.Errorf("expected missing=ghost, got %q", meta.DanglingEdges[0].Missing)
	}
	if !errors.Is(meta.DanglingEdges[0], ErrDanglingEdge) {
		t.Error("dangling edge should unwrap to ErrDanglingEdge")
	}
	if meta.DuplicateEdges != 1 {
		t.Errorf("expected 1 duplicate, got %d", meta.DuplicateEdges)
	}

	if out := s.Out("A"); len(out) != 1 || out[0].Asset.ID != "B" {
		t.Errorf("unexpected out neighbours %+v", out)
	}
	if in := s.In("B", Powers); len(in) != 1 || in[0].Asset.ID != "A" {
		t.Errorf("unexpected in neighbours %+v", in)
	}
	if in := s.In("B", ConnectsTo); len(in) != 0 {
		t.Errorf("type filter ignored: %+v", in)
	}
}

func TestBuilderIgnoresWritesAfterSeal(t *testing.T) {
	b := NewBuilder()
	b.AddAsset(Asset{ID: "A"})
	s := b.Seal()
	b.AddAsset(Asset{ID: "B"})
	b.AddRelationship("A", "B", Powers)
	if again := b.Seal(); again.Len() != 1 {
		t.Errorf("late writes leaked into snapshot: %d assets", again.Len())
	}
	a, err := s.Asset("A")
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusUnknown {
		t.Errorf("missing status should default to unknown, got %q", a.Status)
	}
}

func TestAssetNotFound(t *testing.T) {
	s := NewMockFactory().Add("A", TypePLC, StatusOnline).Build()
	_, err := s.Asset("nope")
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
	var nf *AssetNotFoundError
	if !errors.As(err, &nf) || nf.ID != "nope" {
		t.Errorf("expected typed error with id, got %v", err)
	}
}

func TestHandleSnapshotIsolation(t *testing.T) {
	first := NewMockFactory().Add("A", TypePLC, StatusOnline).Build()
	h := NewHandle(first)

	pinned := h.Load()
	if pinned.Version() != 1 {
		t.Fatalf("expected version 1, got %d", pinned.Version())
	}

	second := NewMockFactory().Add("A", TypePLC, StatusOffline).Add("B", TypeSensor, StatusOnline).Build()
	prev := h.Swap(second)
	if prev != pinned {
		t.Error("Swap should return the previously published snapshot")
	}

	// The pinned snapshot is unaffected by the refresh.
	a, _ := pinned.Asset("A")
	if a.Status != StatusOnline || pinned.Len() != 1 {
		t.Errorf("pinned snapshot observed refresh: status=%s len=%d", a.Status, pinned.Len())
	}
	if h.Load().Version() != 2 || h.Load().Len() != 2 {
		t.Errorf("handle did not publish refresh")
	}
}

func TestHandleConcurrentLoadSwap(t *testing.T) {
	h := NewHandle(nil)
	if h.Load().Len() != 0 {
		t.Fatal("empty handle must load an empty snapshot")
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Swap(NewMockFactory().Add("A", TypePLC, StatusOnline).Build())
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = h.Load().Len()
			}
		}()
	}
	wg.Wait()

	if h.Load().Version() != 400 {
		t.Errorf("expected 400 swaps, got version %d", h.Load().Version())
	}
}

func TestZoneOf(t *testing.T) {
	s := DemoFactory().Build()

	cases := map[string]string{
		"Server-01":  "Data Center",     // explicit zone
		"Robot-01":   "Assembly Line A", // BELONGS_TO_ZONE edge to a named zone
		"unknown-id": ZoneUnassigned,
	}
	for id, want := range cases {
		if got := s.ZoneOf(id); got != want {
			t.Errorf("ZoneOf(%s) = %q, want %q", id, got, want)
		}
	}
	if got := DefaultZone(TypeSensor); got != ZoneProcess {
		t.Errorf("DefaultZone(Sensor) = %q", got)
	}
}

func TestStatsAndZoneHealth(t *testing.T) {
	s := DemoFactory().Build()
	st := s.Stats()

	if st.Assets != s.Len() {
		t.Errorf("asset count mismatch: %d vs %d", st.Assets, s.Len())
	}
	if st.DanglingEdges != 1 {
		t.Errorf("expected the decommissioned sensor edge to dangle, got %d", st.DanglingEdges)
	}
	if st.Failing != 5 {
		t.Errorf("expected 5 failing assets, got %d", st.Failing)
	}
	if st.ByRelationship[Powers] != 6 {
		t.Errorf("expected 6 POWERS edges, got %d", st.ByRelationship[Powers])
	}

	zones := s.ZoneHealth()
	for i := 1; i < len(zones); i++ {
		if zones[i-1].Zone >= zones[i].Zone {
			t.Fatalf("zones not sorted: %q before %q", zones[i-1].Zone, zones[i].Zone)
		}
	}
	for _, z := range zones {
		if z.Zone == "Network Core" && (z.Assets != 2 || z.Failing != 1) {
			t.Errorf("unexpected Network Core health %+v", z)
		}
	}
}

func TestComponents(t *testing.T) {
	s := NewMockFactory().
		Add("A", TypePLC, StatusOnline).
		Add("B", TypePLC, StatusOnline).
		Add("C", TypePLC, StatusOnline).
		Link("A", Powers, "B").
		Build()

	comps := s.Components()
	if len(comps) != 2 {
		t.Fatalf("expected 2 islands, got %v", comps)
	}
	if len(comps[0]) != 2 || comps[0][0] != "A" || comps[1][0] != "C" {
		t.Errorf("unexpected islands %v", comps)
	}
}

func TestStatsCountsSubsystems(t *testing.T) {
	s := NewMockFactory().
		Add("A", TypePLC, StatusOnline).
		Add("B", TypeSensor, StatusOnline).
		Add("C", TypeUPS, StatusOnline).
		Add("D", TypeServer, StatusOnline).
		Add("E", TypeCamera, StatusOnline).
		Add("Zone-1", TypeZone, StatusOnline).
		Link("A", FeedsData, "B").
		Link("C", Powers, "D").
		Link("E", LocatedIn, "Zone-1").
		Build()

	st := s.Stats()
	// LOCATED_IN is not operational, so E and Zone-1 stay apart.
	if st.Subsystems != 4 {
		t.Errorf("expected 4 subsystems, got %d", st.Subsystems)
	}
	if st.Unlinked != 2 {
		t.Errorf("expected 2 unlinked assets, got %d", st.Unlinked)
	}
}
