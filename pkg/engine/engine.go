package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/baseline"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/config"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/policy"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/telemetry"
)

// ErrPartialResult indicates the run completed but at least one analyzer failed.
var ErrPartialResult = errors.New("run completed with partial results")

// ErrUnknownAnalyzer is returned when a request names an analyzer that does
// not exist.
var ErrUnknownAnalyzer = analyzers.ErrUnknownAnalyzer

const instrumentationName = "factorytwin/engine"

// Config holds engine settings.
type Config struct {
	MaxConcurrency int
	// StrictMode makes Run return ErrPartialResult when any analyzer fails.
	StrictMode bool
	// Analyzers overrides the default thresholds when set.
	Analyzers *config.AnalyzerConfig
	Logger    *slog.Logger
}

// pinned pairs a published snapshot with the baseline runs compare it to.
type pinned struct {
	snap  *graph.Snapshot
	store baseline.Store
}

// Engine runs analyzers over pinned graph snapshots.
type Engine struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	config  Config
	graph   *graph.Handle
	state   atomic.Pointer[pinned]
	mu      sync.Mutex // serialises Apply and handle adoption
	initial baseline.Store
	metrics *telemetry.Metrics
	policy  *policy.CELEngine

	runs     metric.Int64Counter
	duration metric.Float64Histogram

	// factory resolves analyzer names; swapped in tests.
	factory func(name, target string) (analyzers.Analyzer, error)
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New builds an engine with an empty graph and baseline unless options
// provide them.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		Logger:  slog.Default(),
		Tracer:  otel.Tracer(instrumentationName),
		graph:   graph.NewHandle(nil),
		factory: analyzers.New,
		config: Config{
			MaxConcurrency: runtime.NumCPU(),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.initial == nil {
		e.initial = baseline.Empty()
	}
	e.state.Store(&pinned{snap: e.graph.Load(), store: e.initial})
	if e.config.Analyzers == nil {
		def := config.DefaultAnalyzerConfig()
		e.config.Analyzers = &def
	}

	if err := e.config.Analyzers.Validate(); err != nil {
		return nil, err
	}
	if e.config.MaxConcurrency <= 0 {
		e.config.MaxConcurrency = 1
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if e.runs, err = meter.Int64Counter("factorytwin.analyzer.runs",
		metric.WithDescription("Analyzer executions by outcome")); err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	if e.duration, err = meter.Float64Histogram("factorytwin.analyzer.duration",
		metric.WithDescription("Analyzer wall time"), metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}

	e.Logger.Debug("Engine initialised",
		"concurrency", e.config.MaxConcurrency,
		"strict", e.config.StrictMode,
		"policy_rules", e.policyLen(),
	)
	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithConcurrency caps how many analyzers run at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.config.MaxConcurrency = n
		}
	}
}

// WithConfig sets raw config. Zero values keep the defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.MaxConcurrency > 0 {
			e.config.MaxConcurrency = cfg.MaxConcurrency
		}
		e.config.StrictMode = cfg.StrictMode
		if cfg.Analyzers != nil {
			a := *cfg.Analyzers
			a.Normalize()
			e.config.Analyzers = &a
		}
		if cfg.Logger != nil {
			e.Logger = cfg.Logger
		}
	}
}

// WithGraph shares a snapshot handle, typically one a watcher keeps fresh.
func WithGraph(h *graph.Handle) Option {
	return func(e *Engine) {
		if h != nil {
			e.graph = h
		}
	}
}

// WithBaseline sets the intended-state store.
func WithBaseline(b baseline.Store) Option {
	return func(e *Engine) {
		if b != nil {
			e.initial = b
		}
	}
}

// WithMetrics records runs on a Prometheus registry.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPolicy applies compiled rules to every run's findings.
func WithPolicy(p *policy.CELEngine) Option {
	return func(e *Engine) { e.policy = p }
}

// Graph is the snapshot handle runs pin from.
func (e *Engine) Graph() *graph.Handle { return e.graph }

// Baseline is the current intended-state store.
func (e *Engine) Baseline() baseline.Store { return e.current().store }

// SetBaseline swaps the baseline for subsequent runs.
func (e *Engine) SetBaseline(b baseline.Store) {
	if b == nil {
		b = baseline.Empty()
	}
	e.Apply(nil, b)
}

// Apply publishes a new snapshot, baseline or both in one step. A nil
// argument keeps that side. Runs never see one half of an Apply.
func (e *Engine) Apply(snap *graph.Snapshot, store baseline.Store) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.state.Load()
	if snap != nil {
		e.graph.Swap(snap)
	}
	next.snap = e.graph.Load()
	if store != nil {
		next.store = store
	}
	e.state.Store(&next)
}

// current returns the published pair. A snapshot swapped straight into the
// handle, bypassing Apply, is adopted with the baseline in force.
func (e *Engine) current() pinned {
	st := e.state.Load()
	if st.snap.Version() == e.graph.Load().Version() {
		return *st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	st = e.state.Load()
	if cur := e.graph.Load(); st.snap.Version() != cur.Version() {
		st = &pinned{snap: cur, store: st.store}
		e.state.Store(st)
	}
	return *st
}

// AnalyzerConfig returns the thresholds in use.
func (e *Engine) AnalyzerConfig() config.AnalyzerConfig { return *e.config.Analyzers }

// Pin captures the current snapshot and baseline as one analyzer input.
func (e *Engine) Pin() analyzers.Input {
	st := e.current()
	return analyzers.NewInput(st.snap, st.store, e.config.Analyzers)
}

func (e *Engine) policyLen() int {
	if e.policy == nil {
		return 0
	}
	return e.policy.Len()
}

// recoverPanic turns a panic inside one analyzer into that analyzer's error.
func (e *Engine) recoverPanic(ctx context.Context, name string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	_, span := e.Tracer.Start(ctx, "CriticalPanic")
	defer span.End()

	stack := debug.Stack()
	err := fmt.Errorf("analyzer %s panicked: %v", name, r)

	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, "CRITICAL FAILURE")
	span.SetAttributes(
		attribute.String("analyzer", name),
		attribute.String("crash.stack", string(stack)),
		attribute.String("crash.reason", fmt.Sprintf("%v", r)),
	)

	e.Logger.Error("CRITICAL FAILURE", "analyzer", name, "error", r, "stack", string(stack))
	*errp = err
}
