package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := NewLogger(LogConfig{JSON: true, Output: &buf})
	defer closer.Close()

	logger.Info("connecting", "password", "hunter2", "Token", "abc", "bucket", "plant-a")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "[REDACTED]", rec["password"])
	assert.Equal(t, "[REDACTED]", rec["Token"])
	assert.Equal(t, "plant-a", rec["bucket"])
}

func TestLoggerVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	quiet, _ := NewLogger(LogConfig{Output: &buf})
	quiet.Debug("hidden")
	assert.Empty(t, buf.String())

	loud, _ := NewLogger(LogConfig{Output: &buf, Verbose: true})
	loud.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLoggerWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factorytwin.log")
	var console bytes.Buffer
	logger, closer := NewLogger(LogConfig{Output: &console, File: path})

	logger.With("run", "r1").Warn("dangling edge", "secret", "s3cr3t")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run":"r1"`)
	assert.NotContains(t, string(data), "s3cr3t")
	assert.Contains(t, console.String(), "dangling edge")
}

func TestMetricsTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveAnalyzer("drift", "ok", 3*time.Millisecond)
	m.ObserveAnalyzer("drift", "ok", time.Millisecond)
	m.ObserveAnalyzer("root_cause", "failed", time.Millisecond)
	m.ObserveSnapshot(7, 18, 19, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalyzerRuns.WithLabelValues("drift", "ok")))
	assert.Equal(t, 18.0, testutil.ToFloat64(m.SnapshotAssets))

	path := filepath.Join(t.TempDir(), "factorytwin.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `factorytwin_analyzer_runs_total{analyzer="root_cause",status="failed"} 1`))
	assert.Contains(t, string(data), "factorytwin_snapshot_dangling_edges 1")
}

func TestInitWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := Init(context.Background(), TraceConfig{ServiceName: "factorytwin-test", ServiceVersion: "dev"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
