package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/baseline"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/telemetry"
)

var _ Target = (*engine.Engine)(nil)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const twoAssets = `assets:
  - id: PLC-1
    type: PLC
    status: online
  - id: Switch-1
    type: NetworkSwitch
    status: offline
relationships:
  - source: Switch-1
    target: PLC-1
    type: CONNECTS_TO
`

const baselineDoc = `baselines:
  - assetId: PLC-1
    version: v1.0.0
`

type target struct {
	handle  *graph.Handle
	store   baseline.Store
	applies int
}

func (t *target) Graph() *graph.Handle { return t.handle }

func (t *target) Apply(snap *graph.Snapshot, store baseline.Store) {
	t.applies++
	if snap != nil {
		t.handle.Swap(snap)
	}
	if store != nil {
		t.store = store
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadInstallsBothSides(t *testing.T) {
	dir := t.TempDir()
	gp, bp := filepath.Join(dir, "graph.yaml"), filepath.Join(dir, "baseline.yaml")
	writeFile(t, gp, twoAssets)
	writeFile(t, bp, baselineDoc)

	tgt := &target{handle: graph.NewHandle(nil)}
	r := New(tgt, gp, bp, WithLogger(quiet()))
	require.NoError(t, r.Load(context.Background()))

	assert.Equal(t, 2, tgt.handle.Load().Len())
	require.NotNil(t, tgt.store)
	assert.Equal(t, 1, tgt.store.Len())
}

func TestReloadAppliesBothSidesTogether(t *testing.T) {
	dir := t.TempDir()
	gp, bp := filepath.Join(dir, "graph.yaml"), filepath.Join(dir, "baseline.yaml")
	writeFile(t, gp, twoAssets)
	writeFile(t, bp, baselineDoc)

	tgt := &target{handle: graph.NewHandle(nil)}
	r := New(tgt, gp, bp, WithLogger(quiet()))
	require.NoError(t, r.Load(context.Background()))
	assert.Equal(t, 1, tgt.applies)

	ev := r.Reload(context.Background(), true, true)
	assert.True(t, ev.Graph)
	assert.True(t, ev.Baseline)
	assert.Equal(t, 2, tgt.applies)

	// A broken baseline still lets the graph through, in one Apply.
	writeFile(t, bp, "baselines: [nope")
	ev = r.Reload(context.Background(), true, true)
	assert.True(t, ev.Graph)
	assert.False(t, ev.Baseline)
	assert.Equal(t, 3, tgt.applies)
	assert.Equal(t, 1, tgt.store.Len())
}

func TestLoadReportsBadDocument(t *testing.T) {
	dir := t.TempDir()
	gp := filepath.Join(dir, "graph.yaml")
	writeFile(t, gp, "assets:\n  - id: X\n    type: PLC\n    status: sideways\n")

	r := New(&target{handle: graph.NewHandle(nil)}, gp, "", WithLogger(quiet()))
	err := r.Load(context.Background())
	assert.ErrorIs(t, err, graph.ErrInvalidDocument)
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	gp := filepath.Join(dir, "graph.yaml")
	writeFile(t, gp, twoAssets)

	metrics := telemetry.NewMetrics()
	tgt := &target{handle: graph.NewHandle(nil)}
	var events []Event
	r := New(tgt, gp, "", WithLogger(quiet()), WithMetrics(metrics),
		OnReload(func(_ context.Context, ev Event) { events = append(events, ev) }))
	require.NoError(t, r.Load(context.Background()))
	before := tgt.handle.Load()

	writeFile(t, gp, "assets: [this is not: valid")
	ev := r.Reload(context.Background(), true, false)
	assert.False(t, ev.Graph)
	assert.Same(t, before, tgt.handle.Load())
	assert.Empty(t, events)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Reloads.WithLabelValues("error")))

	writeFile(t, gp, twoAssets)
	ev = r.Reload(context.Background(), true, false)
	assert.True(t, ev.Graph)
	assert.Greater(t, ev.Snapshot.Version(), before.Version())
	assert.Len(t, events, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Reloads.WithLabelValues("ok")))
}

func TestRunReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	gp := filepath.Join(dir, "graph.yaml")
	writeFile(t, gp, twoAssets)

	snap := graph.DemoFactoryWithLogger(quiet()).Build()
	eng, err := engine.New(context.Background(), engine.WithGraph(graph.NewHandle(snap)), engine.WithLogger(quiet()))
	require.NoError(t, err)

	reloaded := make(chan Event, 8)
	r := New(eng, gp, "", WithLogger(quiet()), WithDebounce(20*time.Millisecond),
		OnReload(func(_ context.Context, ev Event) { reloaded <- ev }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register before writing.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case ev := <-reloaded:
			if ev.Snapshot.Len() == 2 {
				assert.True(t, ev.Graph)
				assert.Equal(t, 2, eng.Graph().Load().Len())
				return
			}
		case <-tick.C:
			writeFile(t, gp, twoAssets)
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestRunIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	gp := filepath.Join(dir, "graph.yaml")
	writeFile(t, gp, twoAssets)

	tgt := &target{handle: graph.NewHandle(nil)}
	reloaded := make(chan Event, 1)
	r := New(tgt, gp, "", WithLogger(quiet()), WithDebounce(10*time.Millisecond),
		OnReload(func(_ context.Context, ev Event) { reloaded <- ev }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")

	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
	cancel()
	require.NoError(t, <-done)
}
