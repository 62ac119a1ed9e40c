package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBootstrapMock(t *testing.T) {
	ctx := context.Background()
	a, err := Bootstrap(ctx, Config{MockMode: true, LogOutput: io.Discard})
	require.NoError(t, err)
	defer a.Close(ctx)

	assert.Equal(t, 17, a.Engine.Graph().Load().Len())
	assert.Equal(t, 4, a.Engine.Baseline().Len())
	assert.False(t, a.Watchable())
}

func TestBootstrapNeedsGraph(t *testing.T) {
	_, err := Bootstrap(context.Background(), Config{LogOutput: io.Discard})
	assert.ErrorIs(t, err, ErrNoGraph)
}

func TestBootstrapFromFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	data, err := graph.DocumentFromSnapshot(graph.DemoFactory().Build()).Encode(graph.FormatJSON)
	require.NoError(t, err)
	graphPath := writeFile(t, dir, "plant.json", string(data))
	baselinePath := writeFile(t, dir, "baseline.hcl", `
asset "PLC-001" {
  version = "v9.9.9"
}
`)
	rulesPath := writeFile(t, dir, "rules.yaml", `
rules:
  - id: hush-drift
    condition: "analyzer == 'drift'"
    action: suppress
`)

	a, err := Bootstrap(ctx, Config{
		GraphPath:    graphPath,
		BaselinePath: baselinePath,
		RulesPath:    rulesPath,
		Concurrency:  2,
		LogOutput:    io.Discard,
	})
	require.NoError(t, err)
	defer a.Close(ctx)
	assert.True(t, a.Watchable())

	run, err := a.Engine.Run(ctx, engine.Request{Analyzers: []string{analyzers.NameDrift}})
	require.NoError(t, err)
	o, ok := run.Outcome(analyzers.NameDrift)
	require.True(t, ok)
	dr := o.Result.(*analyzers.DriftResult)
	assert.Equal(t, 1, dr.Summary.DriftedAssets)

	assert.Empty(t, run.Findings)
	assert.Equal(t, 1, run.PolicyStats.Suppressed)
}

func TestBootstrapRejectsBadInputs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	bad := writeFile(t, dir, "plant.yaml", "assets:\n  - id: x\n")

	_, err := Bootstrap(ctx, Config{GraphPath: bad, LogOutput: io.Discard})
	assert.ErrorIs(t, err, graph.ErrInvalidDocument)

	_, err = Bootstrap(ctx, Config{GraphPath: filepath.Join(dir, "missing.yaml"), LogOutput: io.Discard})
	assert.Error(t, err)
}

func TestStorageOptions(t *testing.T) {
	a := &App{Config: Config{S3Endpoint: "http://localhost:4566", S3Region: "eu-west-1"}}
	assert.Len(t, a.StorageOptions(), 2)
	assert.Empty(t, (&App{}).StorageOptions())
}
