package graph

import (
	"fmt"
	"math/rand"
	"testing"
	"time"
)

// TestGraphChaos builds a large, cyclic, partly broken plant and checks that
// traversal neither hangs nor overflows the stack.
func TestGraphChaos(t *testing.T) {
	if testing.Short() {
		t.Skip("chaos graph skipped in short mode")
	}
	const nodeCount = 50000
	rng := rand.New(rand.NewSource(42))

	b := NewBuilder()
	for i := 0; i < nodeCount; i++ {
		id := fmt.Sprintf("node-%d", i)
		b.AddAsset(Asset{ID: id, Type: TypeSensor, Status: StatusOnline})

		if i > 0 {
			b.AddRelationship(id, fmt.Sprintf("node-%d", rng.Intn(i)), FeedsData)
		}
		// Explicit two-cycles every hundred nodes.
		if i > 100 && i%100 == 0 {
			old := fmt.Sprintf("node-%d", i-100)
			b.AddRelationship(old, id, DependsOn)
			b.AddRelationship(id, old, DependsOn)
		}
		// Some edges point nowhere.
		if i%1000 == 0 {
			b.AddRelationship(id, fmt.Sprintf("ghost-%d", i), ConnectsTo)
		}
	}

	done := make(chan int)
	go func() {
		s := b.Seal()
		down, err := Traverse(s, "node-0", TraverseOptions{Direction: Upstream, MaxHops: nodeCount})
		if err != nil {
			t.Error(err)
		}
		up, err := Traverse(s, fmt.Sprintf("node-%d", nodeCount-1), TraverseOptions{Direction: Downstream, MaxHops: nodeCount})
		if err != nil {
			t.Error(err)
		}
		walked := 0
		_ = WalkPaths(s, fmt.Sprintf("node-%d", nodeCount-1), TraverseOptions{Direction: Downstream, MaxHops: 6}, func(Path, *Asset) bool {
			walked++
			return true
		})
		if walked == 0 || len(up) == 0 {
			t.Error("expected the newest node to reach older ones")
		}
		if got := s.Metadata().DanglingEdges; len(got) != nodeCount/1000 {
			t.Errorf("expected %d dangling edges, got %d", nodeCount/1000, len(got))
		}
		done <- len(down)
	}()

	select {
	case n := <-done:
		t.Logf("traversal completed, %d assets feed node-0", n)
	case <-time.After(10 * time.Second):
		t.Fatal("traversal did not finish over the chaos graph")
	}
}
