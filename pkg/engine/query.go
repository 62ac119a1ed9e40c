package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
)

func (e *Engine) startQuery(ctx context.Context, op, id string) (context.Context, trace.Span) {
	ctx, span := e.Tracer.Start(ctx, "Engine."+op)
	if id != "" {
		span.SetAttributes(attribute.String("asset", id))
	}
	return ctx, span
}

func endQuery(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// RootCause traces id to the furthest failing asset upstream.
func (e *Engine) RootCause(ctx context.Context, id string) (res *analyzers.RootCauseResult, err error) {
	_, span := e.startQuery(ctx, "RootCause", id)
	defer func() { endQuery(span, err) }()
	return analyzers.FindRootCause(e.Pin(), id)
}

// Cascade computes the downstream blast radius of id.
func (e *Engine) Cascade(ctx context.Context, id string) (res *analyzers.CascadeResult, err error) {
	_, span := e.startQuery(ctx, "Cascade", id)
	defer func() { endQuery(span, err) }()
	return analyzers.AnalyzeCascade(e.Pin(), id)
}

// RelatedIncidents lists failing assets around id.
func (e *Engine) RelatedIncidents(ctx context.Context, id string) (res *analyzers.IncidentsResult, err error) {
	_, span := e.startQuery(ctx, "RelatedIncidents", id)
	defer func() { endQuery(span, err) }()
	return analyzers.RelatedIncidents(e.Pin(), id)
}

// RelatedIncidentsWithin lists failing assets around id that changed state
// within window of the newest transition in the graph.
func (e *Engine) RelatedIncidentsWithin(ctx context.Context, id string, window time.Duration) (res *analyzers.IncidentsResult, err error) {
	_, span := e.startQuery(ctx, "RelatedIncidents", id)
	span.SetAttributes(attribute.String("window", window.String()))
	defer func() { endQuery(span, err) }()
	return analyzers.RelatedIncidentsWithin(e.Pin(), id, window)
}

// TraceIncident runs the step by step incident investigation for id.
func (e *Engine) TraceIncident(ctx context.Context, id string) (res *analyzers.IncidentTrace, err error) {
	_, span := e.startQuery(ctx, "TraceIncident", id)
	defer func() { endQuery(span, err) }()
	return analyzers.TraceIncident(e.Pin(), id)
}

// BlastRadius ranks every unhealthy asset by downstream reach.
func (e *Engine) BlastRadius(ctx context.Context) *analyzers.BlastRadiusResult {
	_, span := e.startQuery(ctx, "BlastRadius", "")
	defer span.End()
	return analyzers.BlastRadiusRanking(e.Pin())
}
