package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/version"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
	FormatHTML Format = "html"
)

// ParseFormat accepts json, csv, text (or txt) and html.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "text", "txt", "":
		return FormatText, nil
	case "html":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// FormatFor guesses the format from an output name, defaulting to JSON.
func FormatFor(name string) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(name), ".")); err == nil && filepath.Ext(name) != "" {
		return f
	}
	return FormatJSON
}

// Write renders doc in the given format.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatCSV:
		return WriteCSV(w, doc.Findings)
	case FormatHTML:
		return WriteHTML(w, doc)
	default:
		return WriteText(w, doc)
	}
}

// WriteJSON writes v as indented JSON. Used for documents and single
// envelopes alike.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var csvHeader = []string{"severity", "analyzer", "asset", "asset_type", "zone", "score", "title", "detail"}

// WriteCSV writes one row per finding, highest severity first.
func WriteCSV(w io.Writer, findings []analyzers.Finding) error {
	fs := append([]analyzers.Finding(nil), findings...)
	analyzers.SortFindings(fs)

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, f := range fs {
		record := []string{
			f.Severity.String(),
			f.Analyzer,
			f.AssetID,
			f.AssetType,
			f.Zone,
			strconv.FormatFloat(f.Score, 'f', -1, 64),
			f.Title,
			f.Detail,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes a human summary.
func WriteText(w io.Writer, doc Document) error {
	var b strings.Builder
	s := doc.Summary

	fmt.Fprintf(&b, "%s run %s\n", version.AppName, doc.RunID)
	fmt.Fprintf(&b, "Snapshot v%d generated %s\n", doc.SnapshotVersion, doc.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Assets: %d  Relationships: %d  Dangling edges: %d\n\n", s.Assets, s.Relationships, s.DanglingEdges)

	fmt.Fprintf(&b, "%-22s %-8s %-9s %s\n", "ANALYZER", "STATUS", "SEVERITY", "DURATION")
	for _, r := range doc.Results {
		line := fmt.Sprintf("%-22s %-8s %-9s %dms", r.Analyzer, r.Status, r.Severity, r.DurationMs)
		if r.Error != "" {
			line += "  " + r.Error
		}
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(&b, "\nFindings: %d (critical %d, high %d, medium %d, low %d)\n", s.Findings,
		s.BySeverity["critical"], s.BySeverity["high"], s.BySeverity["medium"], s.BySeverity["low"])
	writeFindings(&b, doc.Findings)
	if p := doc.Policy; p != nil {
		fmt.Fprintf(&b, "\nPolicy: %d evaluated, %d escalated, %d suppressed, %d annotated\n",
			p.Evaluated, p.Escalated, p.Suppressed, p.Annotated)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeFindings(b *strings.Builder, fs []analyzers.Finding) {
	for _, f := range fs {
		fmt.Fprintf(b, "[%s] %s\n", strings.ToUpper(f.Severity.String()), f.Title)
		if f.Detail != "" {
			for _, l := range strings.Split(f.Detail, "\n") {
				fmt.Fprintf(b, "    %s\n", l)
			}
		}
		for _, n := range f.Notes {
			fmt.Fprintf(b, "    note: %s\n", n)
		}
	}
}

// WriteEnvelope renders one directly computed result. HTML falls back to
// JSON since the dashboard needs a full run.
func WriteEnvelope(w io.Writer, f Format, env Envelope) error {
	var fs []analyzers.Finding
	if env.Result != nil {
		fs = env.Result.Findings()
	}
	switch f {
	case FormatCSV:
		return WriteCSV(w, fs)
	case FormatText:
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %d finding(s), max severity %s\n", env.Analyzer, len(fs), env.Severity)
		writeFindings(&b, fs)
		_, err := io.WriteString(w, b.String())
		return err
	default:
		return WriteJSON(w, env)
	}
}
