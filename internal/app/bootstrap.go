// Package app wires logging, tracing, metrics, inputs and the engine for
// the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/baseline"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/config"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/policy"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/storage"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/telemetry"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/version"
)

// ErrNoGraph is returned when neither a graph document nor mock mode was
// requested.
var ErrNoGraph = errors.New("no graph source: pass --graph or --mock")

// Config is the union of the global command line flags.
type Config struct {
	GraphPath    string
	BaselinePath string
	RulesPath    string
	MockMode     bool

	JSONLogs  bool
	Verbose   bool
	LogFile   string
	LogOutput io.Writer

	OTelEndpoint string
	Concurrency  int
	Strict       bool
	S3Endpoint   string
	S3Region     string

	Analyzers *config.AnalyzerConfig
}

// App holds the wired components of one process.
type App struct {
	Config  Config
	Logger  *slog.Logger
	Engine  *engine.Engine
	Metrics *telemetry.Metrics

	closers []func(context.Context) error
}

// Bootstrap is Setup followed by LoadEngine. Callers must Close the
// returned App.
func Bootstrap(ctx context.Context, cfg Config) (*App, error) {
	a, err := Setup(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.LoadEngine(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// Setup builds the logger, tracer provider and metrics registry. Commands
// that never touch the graph stop here.
func Setup(ctx context.Context, cfg Config) (*App, error) {
	logger, logCloser := telemetry.NewLogger(telemetry.LogConfig{
		JSON:    cfg.JSONLogs,
		Verbose: cfg.Verbose,
		Output:  cfg.LogOutput,
		File:    cfg.LogFile,
	})
	slog.SetDefault(logger)

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: telemetry.NewMetrics(),
	}
	a.closers = append(a.closers, func(context.Context) error { return logCloser.Close() })

	shutdown, err := telemetry.Init(ctx, telemetry.TraceConfig{
		ServiceName:    "factorytwin",
		ServiceVersion: version.Current,
		Endpoint:       cfg.OTelEndpoint,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, shutdown)
	return a, nil
}

// LoadEngine reads the policy rules, graph snapshot and baseline, then
// builds the engine that runs over them.
func (a *App) LoadEngine(ctx context.Context) error {
	snap, err := a.loadGraph(ctx)
	if err != nil {
		return err
	}
	store, err := a.loadBaseline(ctx)
	if err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithConfig(engine.Config{
			MaxConcurrency: a.Config.Concurrency,
			StrictMode:     a.Config.Strict,
			Analyzers:      a.Config.Analyzers,
			Logger:         a.Logger,
		}),
		engine.WithGraph(graph.NewHandle(snap)),
		engine.WithBaseline(store),
		engine.WithMetrics(a.Metrics),
	}
	if a.Config.RulesPath != "" {
		rules, err := a.loadPolicy(ctx)
		if err != nil {
			return err
		}
		opts = append(opts, engine.WithPolicy(rules))
	}

	a.Engine, err = engine.New(ctx, opts...)
	if err != nil {
		return err
	}

	meta := snap.Metadata()
	a.Logger.Info("Factory graph loaded",
		"source", a.graphSource(),
		"assets", snap.Len(),
		"relationships", snap.EdgeCount(),
		"dangling", len(meta.DanglingEdges),
		"baseline_records", store.Len(),
	)
	return nil
}

func (a *App) graphSource() string {
	if a.Config.MockMode {
		return "mock"
	}
	return a.Config.GraphPath
}

func (a *App) loadGraph(ctx context.Context) (*graph.Snapshot, error) {
	if a.Config.MockMode {
		return graph.DemoFactoryWithLogger(a.Logger).Build(), nil
	}
	if a.Config.GraphPath == "" {
		return nil, ErrNoGraph
	}
	data, err := storage.ReadURL(ctx, a.Config.GraphPath, a.StorageOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph %s: %w", a.Config.GraphPath, err)
	}
	doc, err := graph.DecodeDocument(data, graph.FormatFromName(a.Config.GraphPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Config.GraphPath, err)
	}
	return doc.Build(a.Logger), nil
}

func (a *App) loadBaseline(ctx context.Context) (baseline.Store, error) {
	if a.Config.BaselinePath == "" {
		if a.Config.MockMode {
			return baseline.Demo(), nil
		}
		return baseline.Empty(), nil
	}
	data, err := storage.ReadURL(ctx, a.Config.BaselinePath, a.StorageOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline %s: %w", a.Config.BaselinePath, err)
	}
	return baseline.Load(a.Config.BaselinePath, data)
}

func (a *App) loadPolicy(ctx context.Context) (*policy.CELEngine, error) {
	data, err := storage.ReadURL(ctx, a.Config.RulesPath, a.StorageOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules %s: %w", a.Config.RulesPath, err)
	}
	rules, err := policy.LoadRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Config.RulesPath, err)
	}
	pe, err := policy.NewCELEngine()
	if err != nil {
		return nil, err
	}
	if err := pe.WithLogger(a.Logger).Compile(rules); err != nil {
		return nil, fmt.Errorf("%s: %w", a.Config.RulesPath, err)
	}
	return pe, nil
}

// StorageOptions carries the S3 endpoint and region flags to storage.Open.
func (a *App) StorageOptions() []storage.Option {
	var opts []storage.Option
	if a.Config.S3Endpoint != "" {
		opts = append(opts, storage.WithEndpoint(a.Config.S3Endpoint))
	}
	if a.Config.S3Region != "" {
		opts = append(opts, storage.WithRegion(a.Config.S3Region))
	}
	return opts
}

// Watchable reports whether the graph comes from a local file that a
// watcher can follow.
func (a *App) Watchable() bool {
	if a.Config.MockMode || a.Config.GraphPath == "" {
		return false
	}
	return !strings.HasPrefix(a.Config.GraphPath, "s3://") &&
		(a.Config.BaselinePath == "" || !strings.HasPrefix(a.Config.BaselinePath, "s3://"))
}

// Close flushes spans and releases the log file, in reverse order of setup.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
