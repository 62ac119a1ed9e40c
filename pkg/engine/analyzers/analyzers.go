// Package analyzers implements the diagnostic analyses run over a graph
// snapshot. Every analyzer is a pure function of its Input.
package analyzers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/baseline"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/config"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
)

// Severity orders findings from low to critical.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"low", "medium", "high", "critical"}

func (s Severity) String() string {
	if s < SeverityLow || s > SeverityCritical {
		return fmt.Sprintf("Severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity accepts the lower or upper case name.
func ParseSeverity(v string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, v) {
			return Severity(i), nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", v)
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Finding is the flat row every result reduces to. Reports, policy rules and
// the TUI work on findings.
type Finding struct {
	Analyzer  string            `json:"analyzer"`
	AssetID   string            `json:"assetId"`
	AssetType string            `json:"assetType,omitempty"`
	Zone      string            `json:"zone,omitempty"`
	Severity  Severity          `json:"severity"`
	Score     float64           `json:"score"`
	Title     string            `json:"title"`
	Detail    string            `json:"detail,omitempty"`
	Props     map[string]string `json:"props,omitempty"`
	Notes     []string          `json:"notes,omitempty"`
}

// Result is the output of one analyzer.
type Result interface {
	Findings() []Finding
}

// MaxSeverity is the highest severity across findings, low when empty.
func MaxSeverity(fs []Finding) Severity {
	max := SeverityLow
	for _, f := range fs {
		if f.Severity > max {
			max = f.Severity
		}
	}
	return max
}

// SortFindings orders by severity desc, analyzer, asset, title.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Analyzer != b.Analyzer {
			return a.Analyzer < b.Analyzer
		}
		if a.AssetID != b.AssetID {
			return a.AssetID < b.AssetID
		}
		return a.Title < b.Title
	})
}

// Input is everything an analyzer may read.
type Input struct {
	Graph    *graph.Snapshot
	Baseline baseline.Store
	Config   config.AnalyzerConfig
}

// NewInput fills missing parts with empty values and default thresholds.
func NewInput(s *graph.Snapshot, b baseline.Store, cfg *config.AnalyzerConfig) Input {
	in := Input{Graph: s, Baseline: b}
	if in.Graph == nil {
		in.Graph = graph.EmptySnapshot()
	}
	if in.Baseline == nil {
		in.Baseline = baseline.Empty()
	}
	if cfg != nil {
		in.Config = *cfg
	} else {
		in.Config = config.DefaultAnalyzerConfig()
	}
	return in
}

// Analyzer is one diagnostic. Analyze must not mutate the input.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, in Input) (Result, error)
}

// Analyzer names in canonical order.
const (
	NameRootCause    = "root_cause"
	NameCascade      = "cascade_impact"
	NameIsolation    = "network_isolation"
	NamePower        = "power_risk"
	NameBottleneck   = "bottleneck"
	NameTemporal     = "temporal_correlation"
	NameDrift        = "drift"
	NameCriticalPath = "critical_path"
)

// Supplementary single-asset and ranking analyses, not part of a scan.
const (
	NameRelatedIncidents = "related_incidents"
	NameBlastRadius      = "blast_radius"
	NameIncidentTrace    = "incident_trace"
)

// Names lists every analyzer in canonical order.
var Names = []string{
	NameRootCause, NameCascade, NameIsolation, NamePower,
	NameBottleneck, NameTemporal, NameDrift, NameCriticalPath,
}

// ErrUnknownAnalyzer is returned by New for names not in Names.
var ErrUnknownAnalyzer = errors.New("unknown analyzer")

// New builds an analyzer by name. target scopes the single-asset analyzers;
// when empty they scan every unhealthy asset.
func New(name, target string) (Analyzer, error) {
	switch name {
	case NameRootCause:
		return &RootCauseAnalyzer{Target: target}, nil
	case NameCascade:
		return &CascadeAnalyzer{Source: target}, nil
	case NameIsolation:
		return IsolationAnalyzer{}, nil
	case NamePower:
		return PowerRiskAnalyzer{}, nil
	case NameBottleneck:
		return BottleneckAnalyzer{}, nil
	case NameTemporal:
		return TemporalAnalyzer{}, nil
	case NameDrift:
		return DriftAnalyzer{}, nil
	case NameCriticalPath:
		return CriticalPathAnalyzer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, name)
}

// Index returns the canonical position of name, or -1.
func Index(name string) int {
	for i, n := range Names {
		if n == name {
			return i
		}
	}
	return -1
}

func relTypes(raw []string) []graph.RelationshipType {
	out := make([]graph.RelationshipType, len(raw))
	for i, r := range raw {
		out[i] = graph.RelationshipType(r)
	}
	return out
}

func typeSet(raw []string) map[graph.AssetType]bool {
	out := make(map[graph.AssetType]bool, len(raw))
	for _, r := range raw {
		out[graph.AssetType(r)] = true
	}
	return out
}

func classify(t config.Thresholds, v float64) Severity {
	s, _ := ParseSeverity(t.Level(v))
	return s
}

func severityOf(level string) Severity {
	s, err := ParseSeverity(level)
	if err != nil {
		return SeverityMedium
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// unhealthy returns every asset that is neither online nor running, in id
// order.
func unhealthy(s *graph.Snapshot) []*graph.Asset {
	return s.Filter(func(a *graph.Asset) bool { return !a.Healthy() && a.Type != graph.TypeZone })
}
