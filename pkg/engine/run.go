package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/policy"
)

// Status is the outcome of one analyzer within a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Request selects analyzers. Empty Analyzers means all of them; Target
// scopes root cause and cascade to one asset.
type Request struct {
	Analyzers []string
	Target    string
}

// Outcome is what one analyzer produced.
type Outcome struct {
	Name     string
	Status   Status
	Err      error
	Duration time.Duration
	Result   analyzers.Result
}

// Run is the fan-in of one scenario run.
type Run struct {
	ID              string
	SnapshotVersion uint64
	Input           analyzers.Input
	StartedAt       time.Time
	Duration        time.Duration

	// Outcomes are in canonical analyzer order.
	Outcomes []Outcome
	// Findings are post-policy, sorted by severity.
	Findings    []analyzers.Finding
	PolicyStats policy.Stats
}

// Failed counts analyzers that errored or panicked.
func (r *Run) Failed() int { return r.count(StatusFailed) }

// Skipped counts analyzers never started because the run was cancelled.
func (r *Run) Skipped() int { return r.count(StatusSkipped) }

func (r *Run) count(st Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == st {
			n++
		}
	}
	return n
}

// Outcome looks up an analyzer's outcome by name.
func (r *Run) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// resolve dedupes names and orders them canonically.
func resolve(names []string) ([]string, error) {
	if len(names) == 0 {
		return append([]string(nil), analyzers.Names...), nil
	}
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		if analyzers.Index(n) < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, n)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return analyzers.Index(out[i]) < analyzers.Index(out[j]) })
	return out, nil
}

// Run pins one snapshot and executes the requested analyzers concurrently.
// One analyzer failing never affects the others. Once ctx is done no
// further analyzer starts; those already running finish and are reported.
func (e *Engine) Run(ctx context.Context, req Request) (*Run, error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Run")
	defer span.End()

	names, err := resolve(req.Analyzers)
	if err != nil {
		return nil, err
	}

	in := e.Pin()
	if req.Target != "" && !in.Graph.Has(req.Target) {
		_, err := in.Graph.Asset(req.Target)
		return nil, err
	}

	run := &Run{
		ID:              uuid.NewString(),
		SnapshotVersion: in.Graph.Version(),
		Input:           in,
		StartedAt:       time.Now().UTC(),
		Outcomes:        make([]Outcome, len(names)),
	}
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int64("snapshot.version", int64(run.SnapshotVersion)),
		attribute.Int("analyzers", len(names)),
	)
	if e.metrics != nil {
		meta := in.Graph.Metadata()
		e.metrics.ObserveSnapshot(run.SnapshotVersion, in.Graph.Len(), in.Graph.EdgeCount(), len(meta.DanglingEdges))
	}
	e.Logger.Info("Starting run", "run_id", run.ID, "snapshot_version", run.SnapshotVersion,
		"analyzers", len(names), "concurrency", e.config.MaxConcurrency)

	var g errgroup.Group
	g.SetLimit(e.config.MaxConcurrency)
	for i, name := range names {
		run.Outcomes[i] = Outcome{Name: name, Status: StatusSkipped}
		if ctx.Err() != nil {
			continue
		}
		a, err := e.factory(name, req.Target)
		if err != nil {
			run.Outcomes[i] = Outcome{Name: name, Status: StatusFailed, Err: err}
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			run.Outcomes[i] = e.runOne(ctx, a, in)
			return nil
		})
	}
	_ = g.Wait()
	run.Duration = time.Since(run.StartedAt)

	var findings []analyzers.Finding
	for _, o := range run.Outcomes {
		if o.Status == StatusOK && o.Result != nil {
			findings = append(findings, o.Result.Findings()...)
		}
	}
	if e.policy != nil && e.policy.Len() > 0 {
		filtered, st, err := e.policy.Apply(ctx, findings)
		if err != nil {
			e.Logger.Warn("Policy evaluation aborted", "run_id", run.ID, "error", err)
		} else {
			findings, run.PolicyStats = filtered, st
		}
	}
	analyzers.SortFindings(findings)
	run.Findings = findings
	e.recordFindings(names, findings)

	failed, skipped := run.Failed(), run.Skipped()
	span.SetAttributes(
		attribute.Int("findings", len(findings)),
		attribute.Int("analyzers.failed", failed),
		attribute.Int("analyzers.skipped", skipped),
	)
	e.Logger.Info("Run complete", "run_id", run.ID, "findings", len(findings),
		"failed", failed, "skipped", skipped, "duration_ms", run.Duration.Milliseconds())

	if skipped > 0 {
		e.observeRun("cancelled")
		return run, fmt.Errorf("run %s cancelled: %w", run.ID, ctx.Err())
	}
	if failed > 0 {
		e.observeRun("partial")
		span.SetAttributes(attribute.Bool("run.partial", true))
		if e.config.StrictMode {
			e.Logger.Error("Strict Mode: failing due to partial results", "run_id", run.ID)
			return run, ErrPartialResult
		}
		e.Logger.Warn("Run finished with analyzer failures (StrictMode=false)", "run_id", run.ID)
		return run, nil
	}
	e.observeRun("ok")
	return run, nil
}

func (e *Engine) runOne(ctx context.Context, a analyzers.Analyzer, in analyzers.Input) (out Outcome) {
	name := a.Name()
	start := time.Now()
	ctx, span := e.Tracer.Start(ctx, "Analyzer."+name)
	defer span.End()

	out.Name = name
	defer func() {
		out.Duration = time.Since(start)
		if out.Err != nil {
			out.Status = StatusFailed
			out.Result = nil
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
			e.Logger.Warn("Analyzer failed", "analyzer", name, "error", out.Err)
		} else {
			out.Status = StatusOK
		}
		attrs := []attribute.KeyValue{
			attribute.String("analyzer", name),
			attribute.Int64("duration_ms", out.Duration.Milliseconds()),
		}
		if out.Result != nil {
			fs := out.Result.Findings()
			attrs = append(attrs,
				attribute.Int("findings", len(fs)),
				attribute.String("severity", analyzers.MaxSeverity(fs).String()),
			)
		}
		span.SetAttributes(attrs...)
		e.observeAnalyzer(ctx, name, out.Status, out.Duration)
	}()
	defer e.recoverPanic(ctx, name, &out.Err)

	out.Result, out.Err = a.Analyze(ctx, in)
	return out
}

func (e *Engine) observeAnalyzer(ctx context.Context, name string, st Status, d time.Duration) {
	set := metric.WithAttributes(attribute.String("analyzer", name), attribute.String("status", string(st)))
	e.runs.Add(ctx, 1, set)
	e.duration.Record(ctx, float64(d.Microseconds())/1000, set)
	if e.metrics != nil {
		e.metrics.ObserveAnalyzer(name, string(st), d)
	}
}

func (e *Engine) observeRun(status string) {
	if e.metrics != nil {
		e.metrics.ScenarioRuns.WithLabelValues(status).Inc()
	}
}

func (e *Engine) recordFindings(names []string, fs []analyzers.Finding) {
	if e.metrics == nil {
		return
	}
	counts := map[string]map[analyzers.Severity]int{}
	for _, n := range names {
		counts[n] = map[analyzers.Severity]int{}
	}
	for _, f := range fs {
		if counts[f.Analyzer] == nil {
			counts[f.Analyzer] = map[analyzers.Severity]int{}
		}
		counts[f.Analyzer][f.Severity]++
	}
	for n, bySev := range counts {
		for s := analyzers.SeverityLow; s <= analyzers.SeverityCritical; s++ {
			e.metrics.Findings.WithLabelValues(n, s.String()).Set(float64(bySev[s]))
		}
	}
}
