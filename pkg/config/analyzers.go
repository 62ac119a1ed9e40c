package config

import (
	"sort"
	"strings"
	"time"
)

// AnalyzerConfig carries every threshold and policy knob the analyzers use.
// It is read from the `analyzers:` section of the config file.
type AnalyzerConfig struct {
	RootCause    RootCauseConfig    `mapstructure:"root_cause"`
	Cascade      CascadeConfig      `mapstructure:"cascade"`
	Isolation    IsolationConfig    `mapstructure:"isolation"`
	Power        PowerConfig        `mapstructure:"power"`
	Bottleneck   BottleneckConfig   `mapstructure:"bottleneck"`
	Temporal     TemporalConfig     `mapstructure:"temporal"`
	Drift        DriftConfig        `mapstructure:"drift"`
	CriticalPath CriticalPathConfig `mapstructure:"critical_path"`
	BlastRadius  BlastRadiusConfig  `mapstructure:"blast_radius"`
	Incidents    IncidentsConfig    `mapstructure:"incidents"`
	Ownership    OwnershipConfig    `mapstructure:"ownership"`
}

// Thresholds map a score onto a severity. A value at or above Critical is
// critical, and so on down to low. With Exclusive set the comparisons are
// strict.
type Thresholds struct {
	Critical  float64 `mapstructure:"critical" validate:"gtefield=High"`
	High      float64 `mapstructure:"high" validate:"gtefield=Medium"`
	Medium    float64 `mapstructure:"medium" validate:"gte=0"`
	Exclusive bool    `mapstructure:"exclusive"`
}

// Level returns "critical", "high", "medium" or "low" for v.
func (t Thresholds) Level(v float64) string {
	above := func(limit float64) bool {
		if t.Exclusive {
			return v > limit
		}
		return v >= limit
	}
	switch {
	case above(t.Critical):
		return "critical"
	case above(t.High):
		return "high"
	case above(t.Medium):
		return "medium"
	default:
		return "low"
	}
}

type RootCauseConfig struct {
	MaxHops         int      `mapstructure:"max_hops" validate:"min=1,max=10"`
	Types           []string `mapstructure:"types" validate:"min=1"`
	FailureStatuses []string `mapstructure:"failure_statuses" validate:"min=1,dive,oneof=online running warning degraded error offline failed unreachable battery unknown"`
	// PowerTypes are asset types whose failure as a root cause is always critical.
	PowerTypes []string `mapstructure:"power_types"`
	// CriticalChainLength promotes a root cause to critical when its chain
	// has at least this many hops.
	CriticalChainLength int `mapstructure:"critical_chain_length" validate:"min=1"`
}

type CascadeConfig struct {
	MaxHops          int        `mapstructure:"max_hops" validate:"min=1,max=10"`
	Types            []string   `mapstructure:"types" validate:"min=1"`
	AffectedStatuses []string   `mapstructure:"affected_statuses" validate:"min=1,dive,oneof=online running warning degraded error offline failed unreachable battery unknown"`
	Severity         Thresholds `mapstructure:"severity"`
}

type IsolationConfig struct {
	MaxHops          int        `mapstructure:"max_hops" validate:"min=1,max=10"`
	DeviceTypes      []string   `mapstructure:"device_types" validate:"min=1"`
	FailureStatuses  []string   `mapstructure:"failure_statuses" validate:"min=1"`
	IsolatedStatuses []string   `mapstructure:"isolated_statuses" validate:"min=1"`
	Severity         Thresholds `mapstructure:"severity"`
	TopN             int        `mapstructure:"top_n" validate:"min=1"`
}

type PowerConfig struct {
	MaxHops         int      `mapstructure:"max_hops" validate:"min=1,max=10"`
	SourceTypes     []string `mapstructure:"source_types" validate:"min=1"`
	TriggerStatuses []string `mapstructure:"trigger_statuses" validate:"min=1"`
	// Criticality maps dependent asset types onto critical, high or medium.
	// Unlisted types are medium.
	Criticality    map[string]string `mapstructure:"criticality" validate:"dive,oneof=critical high medium"`
	CriticalWeight int               `mapstructure:"critical_weight" validate:"min=0"`
	Severity       Thresholds        `mapstructure:"severity"`
	TopN           int               `mapstructure:"top_n" validate:"min=1"`
}

// CriticalityOf looks up an asset type. Keys are lower case, see Normalize.
func (c PowerConfig) CriticalityOf(assetType string) string {
	if v, ok := c.Criticality[strings.ToLower(assetType)]; ok {
		return v
	}
	return "medium"
}

type BottleneckConfig struct {
	UtilizationThreshold float64    `mapstructure:"utilization_threshold" validate:"gte=0,lte=100"`
	Statuses             []string   `mapstructure:"statuses" validate:"min=1"`
	DependencyTypes      []string   `mapstructure:"dependency_types" validate:"min=1"`
	AdjacencyTypes       []string   `mapstructure:"adjacency_types"`
	RelatedWeight        int        `mapstructure:"related_weight" validate:"min=0"`
	Severity             Thresholds `mapstructure:"severity"`
	TopN                 int        `mapstructure:"top_n" validate:"min=1"`
}

type TemporalConfig struct {
	Window          time.Duration `mapstructure:"window" validate:"gt=0"`
	MinClusterSize  int           `mapstructure:"min_cluster_size" validate:"min=2"`
	FailureStatuses []string      `mapstructure:"failure_statuses" validate:"min=1"`
	// Severity is applied to cluster size.
	Severity Thresholds `mapstructure:"severity"`
}

// DriftConfig sets the severity of a mismatch per tracked field. Status
// mismatches are always critical and are not configurable.
type DriftConfig struct {
	VersionSeverity      string `mapstructure:"version_severity" validate:"oneof=critical high medium low"`
	ChecksumSeverity     string `mapstructure:"checksum_severity" validate:"oneof=critical high medium low"`
	IPAddressSeverity    string `mapstructure:"ip_address_severity" validate:"oneof=critical high medium low"`
	SecurityZoneSeverity string `mapstructure:"security_zone_severity" validate:"oneof=critical high medium low"`
	// HealthyStatuses are treated as equal to each other when comparing status.
	HealthyStatuses []string `mapstructure:"healthy_statuses"`
}

type CriticalPathConfig struct {
	MaxHops       int        `mapstructure:"max_hops" validate:"min=1,max=10"`
	Types         []string   `mapstructure:"types" validate:"min=1"`
	ScoreWeight   int        `mapstructure:"score_weight" validate:"min=1"`
	MinDependents int        `mapstructure:"min_dependents" validate:"min=1"`
	Severity      Thresholds `mapstructure:"severity"`
	TopN          int        `mapstructure:"top_n" validate:"min=1"`
}

type BlastRadiusConfig struct {
	MaxHops  int        `mapstructure:"max_hops" validate:"min=1,max=10"`
	Types    []string   `mapstructure:"types" validate:"min=1"`
	Severity Thresholds `mapstructure:"severity"`
}

type IncidentsConfig struct {
	MaxHops  int      `mapstructure:"max_hops" validate:"min=1,max=10"`
	Types    []string `mapstructure:"types" validate:"min=1"`
	Statuses []string `mapstructure:"statuses" validate:"min=1"`
	// Window keeps incidents whose status changed within this long of the
	// newest transition in the graph. Zero disables the filter.
	Window time.Duration `mapstructure:"window" validate:"gte=0"`
	Limit  int           `mapstructure:"limit" validate:"min=1"`
}

// Team is an owning team and its escalation channel.
type Team struct {
	Name    string `mapstructure:"name" json:"name" validate:"required"`
	Channel string `mapstructure:"channel" json:"channel"`
}

type OwnershipConfig struct {
	Teams   map[string]Team `mapstructure:"teams" validate:"dive"`
	Default Team            `mapstructure:"default"`
}

// TeamFor returns the team owning an asset type.
func (o OwnershipConfig) TeamFor(assetType string) Team {
	if t, ok := o.Teams[strings.ToLower(assetType)]; ok {
		return t
	}
	return o.Default
}

// Normalize re-keys the asset type maps in lower case, the form viper
// produces. When two keys fold together the one already in lower case wins.
func (c *AnalyzerConfig) Normalize() {
	c.Power.Criticality = lowerKeys(c.Power.Criticality)
	c.Ownership.Teams = lowerKeys(c.Ownership.Teams)
}

func lowerKeys[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Mixed-case keys first so the exact lower-case entry is written last.
	sort.Slice(keys, func(i, j int) bool {
		li, lj := keys[i] == strings.ToLower(keys[i]), keys[j] == strings.ToLower(keys[j])
		if li != lj {
			return !li
		}
		return keys[i] < keys[j]
	})
	out := make(map[string]V, len(m))
	for _, k := range keys {
		out[strings.ToLower(k)] = m[k]
	}
	return out
}
