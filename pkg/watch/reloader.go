// Package watch reloads the graph and baseline when their files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/baseline"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/telemetry"
)

// Target receives reloaded state. *engine.Engine satisfies it. Apply gets
// both sides of one reload together; a nil side is unchanged.
type Target interface {
	Graph() *graph.Handle
	Apply(snap *graph.Snapshot, store baseline.Store)
}

// Event describes one applied reload.
type Event struct {
	Graph    bool
	Baseline bool
	Snapshot *graph.Snapshot
}

// Reloader watches a graph document and an optional baseline file. Bursts
// of writes within the debounce window collapse into one reload. A file
// that fails to decode leaves the previous state in place.
type Reloader struct {
	target       Target
	graphPath    string
	baselinePath string

	logger   *slog.Logger
	metrics  *telemetry.Metrics
	debounce time.Duration
	onReload func(context.Context, Event)
}

type Option func(*Reloader)

func WithLogger(l *slog.Logger) Option { return func(r *Reloader) { r.logger = l } }

func WithMetrics(m *telemetry.Metrics) Option { return func(r *Reloader) { r.metrics = m } }

// WithDebounce sets the quiet period before a reload. Default 250ms.
func WithDebounce(d time.Duration) Option { return func(r *Reloader) { r.debounce = d } }

// OnReload registers a callback run after every successful reload, on the
// watch goroutine.
func OnReload(fn func(context.Context, Event)) Option {
	return func(r *Reloader) { r.onReload = fn }
}

// New builds a Reloader. baselinePath may be empty.
func New(target Target, graphPath, baselinePath string, opts ...Option) *Reloader {
	r := &Reloader{
		target:       target,
		graphPath:    graphPath,
		baselinePath: baselinePath,
		logger:       slog.Default(),
		debounce:     250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads both files once and installs them. Unlike reloads triggered by
// Run, errors are returned.
func (r *Reloader) Load(ctx context.Context) error {
	snap, err := r.loadGraph()
	if err != nil {
		return err
	}
	var store baseline.Store
	if r.baselinePath != "" {
		if store, err = r.loadBaseline(); err != nil {
			return err
		}
	}
	r.target.Apply(snap, store)
	return nil
}

// Reload re-reads the named sides, logging and counting failures, and fires
// OnReload when at least one side was applied.
func (r *Reloader) Reload(ctx context.Context, graphChanged, baselineChanged bool) Event {
	var (
		ev    Event
		snap  *graph.Snapshot
		store baseline.Store
		err   error
	)
	if graphChanged {
		if snap, err = r.loadGraph(); err != nil {
			r.fail("graph", r.graphPath, err)
		} else {
			ev.Graph = true
		}
	}
	if baselineChanged && r.baselinePath != "" {
		if store, err = r.loadBaseline(); err != nil {
			r.fail("baseline", r.baselinePath, err)
		} else {
			ev.Baseline = true
		}
	}
	if !ev.Graph && !ev.Baseline {
		return ev
	}
	r.target.Apply(snap, store)
	ev.Snapshot = r.target.Graph().Load()
	r.count("ok")
	r.logger.Info("reloaded", "graph", ev.Graph, "baseline", ev.Baseline,
		"version", ev.Snapshot.Version(), "assets", ev.Snapshot.Len())
	if r.onReload != nil {
		r.onReload(ctx, ev)
	}
	return ev
}

func (r *Reloader) loadGraph() (*graph.Snapshot, error) {
	doc, err := graph.LoadDocumentFile(r.graphPath)
	if err != nil {
		return nil, err
	}
	return doc.Build(r.logger), nil
}

func (r *Reloader) loadBaseline() (baseline.Store, error) {
	return baseline.LoadFile(r.baselinePath)
}

func (r *Reloader) fail(kind, path string, err error) {
	r.count("error")
	r.logger.Error("reload failed, keeping previous state", "kind", kind, "path", path, "error", err)
}

func (r *Reloader) count(status string) {
	if r.metrics != nil {
		r.metrics.Reloads.WithLabelValues(status).Inc()
	}
}

// Run watches until ctx is done. Parent directories are watched rather than
// the files so editors that replace files by rename are still seen.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	graphAbs, err := filepath.Abs(r.graphPath)
	if err != nil {
		return err
	}
	var baselineAbs string
	dirs := map[string]bool{filepath.Dir(graphAbs): true}
	if r.baselinePath != "" {
		if baselineAbs, err = filepath.Abs(r.baselinePath); err != nil {
			return err
		}
		dirs[filepath.Dir(baselineAbs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	r.logger.Info("watching", "graph", graphAbs, "baseline", baselineAbs, "debounce", r.debounce)

	var (
		timer        *time.Timer
		timerC       <-chan time.Time
		pendingGraph bool
		pendingBase  bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			switch name {
			case graphAbs:
				pendingGraph = true
			case baselineAbs:
				pendingBase = true
			default:
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(r.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			r.Reload(ctx, pendingGraph, pendingBase)
			pendingGraph, pendingBase = false, false

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watch error", "error", err)
		}
	}
}
