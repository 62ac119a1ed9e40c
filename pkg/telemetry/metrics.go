package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of one process. Each instance owns
// its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	AnalyzerRuns     *prometheus.CounterVec
	AnalyzerDuration *prometheus.HistogramVec
	Findings         *prometheus.GaugeVec
	ScenarioRuns     *prometheus.CounterVec

	SnapshotAssets   prometheus.Gauge
	SnapshotEdges    prometheus.Gauge
	SnapshotDangling prometheus.Gauge
	SnapshotVersion  prometheus.Gauge
	Reloads          *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		AnalyzerRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "factorytwin_analyzer_runs_total",
			Help: "Analyzer executions by outcome",
		}, []string{"analyzer", "status"}),
		AnalyzerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "factorytwin_analyzer_duration_seconds",
			Help:    "Analyzer wall time in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"analyzer"}),
		Findings: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "factorytwin_findings",
			Help: "Findings of the last scenario run by analyzer and severity",
		}, []string{"analyzer", "severity"}),
		ScenarioRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "factorytwin_scenario_runs_total",
			Help: "Scenario runs by outcome",
		}, []string{"status"}),
		SnapshotAssets: f.NewGauge(prometheus.GaugeOpts{
			Name: "factorytwin_snapshot_assets",
			Help: "Assets in the pinned snapshot",
		}),
		SnapshotEdges: f.NewGauge(prometheus.GaugeOpts{
			Name: "factorytwin_snapshot_edges",
			Help: "Relationships in the pinned snapshot",
		}),
		SnapshotDangling: f.NewGauge(prometheus.GaugeOpts{
			Name: "factorytwin_snapshot_dangling_edges",
			Help: "Relationships skipped because an endpoint is missing",
		}),
		SnapshotVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "factorytwin_snapshot_version",
			Help: "Version of the pinned snapshot",
		}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "factorytwin_reloads_total",
			Help: "Snapshot reloads triggered by file changes",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveAnalyzer records one analyzer outcome.
func (m *Metrics) ObserveAnalyzer(name, status string, d time.Duration) {
	m.AnalyzerRuns.WithLabelValues(name, status).Inc()
	m.AnalyzerDuration.WithLabelValues(name).Observe(d.Seconds())
}

// ObserveSnapshot records the size of the snapshot a run pinned.
func (m *Metrics) ObserveSnapshot(version uint64, assets, edges, dangling int) {
	m.SnapshotVersion.Set(float64(version))
	m.SnapshotAssets.Set(float64(assets))
	m.SnapshotEdges.Set(float64(edges))
	m.SnapshotDangling.Set(float64(dangling))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
