// Package report renders run results as JSON, CSV, text and HTML.
package report

import (
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/policy"
)

// Envelope wraps one analyzer's result with its outcome.
type Envelope struct {
	Analyzer   string             `json:"analyzer"`
	Status     string             `json:"status"`
	Severity   analyzers.Severity `json:"severity"`
	DurationMs int64              `json:"durationMs"`
	Error      string             `json:"error,omitempty"`
	Result     analyzers.Result   `json:"result,omitempty"`
}

// Single wraps a directly computed result, e.g. one root cause query.
func Single(name string, res analyzers.Result) Envelope {
	return Envelope{
		Analyzer: name,
		Status:   string(engine.StatusOK),
		Severity: analyzers.MaxSeverity(res.Findings()),
		Result:   res,
	}
}

// Summary aggregates a run.
type Summary struct {
	Assets        int            `json:"assets"`
	Relationships int            `json:"relationships"`
	DanglingEdges int            `json:"danglingEdges"`
	Analyzers     int            `json:"analyzers"`
	Failed        int            `json:"failed"`
	Skipped       int            `json:"skipped"`
	Findings      int            `json:"findings"`
	BySeverity    map[string]int `json:"bySeverity"`
	MaxSeverity   string         `json:"maxSeverity"`
}

// Document is the stable serialized form of a run.
type Document struct {
	RunID           string              `json:"runId"`
	SnapshotVersion uint64              `json:"snapshotVersion"`
	GeneratedAt     time.Time           `json:"generatedAt"`
	Summary         Summary             `json:"summary"`
	Results         []Envelope          `json:"results"`
	Findings        []analyzers.Finding `json:"findings"`
	Policy          *policy.Stats       `json:"policy,omitempty"`
}

// SeverityCounts buckets findings by severity name, all four always present.
func SeverityCounts(fs []analyzers.Finding) map[string]int {
	out := map[string]int{}
	for s := analyzers.SeverityLow; s <= analyzers.SeverityCritical; s++ {
		out[s.String()] = 0
	}
	for _, f := range fs {
		out[f.Severity.String()]++
	}
	return out
}

// FromRun converts a run into a Document.
func FromRun(run *engine.Run, generatedAt time.Time) Document {
	g := run.Input.Graph
	doc := Document{
		RunID:           run.ID,
		SnapshotVersion: run.SnapshotVersion,
		GeneratedAt:     generatedAt.UTC(),
		Results:         make([]Envelope, 0, len(run.Outcomes)),
		Findings:        run.Findings,
		Summary: Summary{
			Assets:        g.Len(),
			Relationships: g.EdgeCount(),
			DanglingEdges: len(g.Metadata().DanglingEdges),
			Analyzers:     len(run.Outcomes),
			Failed:        run.Failed(),
			Skipped:       run.Skipped(),
			Findings:      len(run.Findings),
			BySeverity:    SeverityCounts(run.Findings),
			MaxSeverity:   analyzers.MaxSeverity(run.Findings).String(),
		},
	}
	if doc.Findings == nil {
		doc.Findings = []analyzers.Finding{}
	}
	if run.PolicyStats.Evaluated > 0 {
		st := run.PolicyStats
		doc.Policy = &st
	}
	for _, o := range run.Outcomes {
		env := Envelope{
			Analyzer:   o.Name,
			Status:     string(o.Status),
			DurationMs: o.Duration.Milliseconds(),
			Result:     o.Result,
		}
		if o.Err != nil {
			env.Error = o.Err.Error()
		}
		if o.Result != nil {
			env.Severity = analyzers.MaxSeverity(o.Result.Findings())
		}
		doc.Results = append(doc.Results, env)
	}
	return doc
}
