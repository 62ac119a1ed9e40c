// Package config defines analyzer thresholds, ownership and their defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults.
const (
	AppDirName    = ".factorytwin"
	EnvPrefix     = "FACTORYTWIN"
	DefaultConfig = ".factorytwin.yaml"
)

var operational = []string{"POWERS", "CONNECTS_TO", "FEEDS_DATA", "DEPENDS_ON"}

// DefaultAnalyzerConfig returns the thresholds the analyzers ship with.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		RootCause: RootCauseConfig{
			MaxHops:             5,
			Types:               clone(operational),
			FailureStatuses:     []string{"offline", "error", "failed", "unreachable"},
			PowerTypes:          []string{"UPS", "PowerSupply", "PDU"},
			CriticalChainLength: 3,
		},
		Cascade: CascadeConfig{
			MaxHops:          5,
			Types:            append(clone(operational), "CONTROLS"),
			AffectedStatuses: []string{"offline", "error", "failed", "degraded", "unreachable"},
			Severity:         Thresholds{Critical: 15, High: 8, Medium: 3},
		},
		Isolation: IsolationConfig{
			MaxHops:          3,
			DeviceTypes:      []string{"NetworkSwitch", "Router", "Firewall"},
			FailureStatuses:  []string{"offline", "error", "failed", "unreachable"},
			IsolatedStatuses: []string{"offline", "unreachable"},
			Severity:         Thresholds{Critical: 10, High: 5, Medium: 0, Exclusive: true},
			TopN:             10,
		},
		Power: PowerConfig{
			MaxHops:         3,
			SourceTypes:     []string{"UPS", "PowerSupply", "PDU"},
			TriggerStatuses: []string{"battery", "offline", "warning", "error", "failed"},
			Criticality: map[string]string{
				"plc":             "critical",
				"industrialrobot": "critical",
				"server":          "critical",
				"networkswitch":   "high",
				"router":          "high",
			},
			CriticalWeight: 3,
			Severity:       Thresholds{Critical: 15, High: 8, Medium: 3},
			TopN:           10,
		},
		Bottleneck: BottleneckConfig{
			UtilizationThreshold: 85,
			Statuses:             []string{"degraded", "warning"},
			DependencyTypes:      []string{"FEEDS_DATA", "DEPENDS_ON"},
			AdjacencyTypes:       []string{"CONNECTS_TO", "FEEDS_DATA"},
			RelatedWeight:        2,
			Severity:             Thresholds{Critical: 10, High: 6, Medium: 3},
			TopN:                 10,
		},
		Temporal: TemporalConfig{
			Window:          60 * time.Second,
			MinClusterSize:  2,
			FailureStatuses: []string{"offline", "error", "failed", "unreachable", "degraded"},
			Severity:        Thresholds{Critical: 6, High: 4, Medium: 2},
		},
		Drift: DriftConfig{
			VersionSeverity:      "high",
			ChecksumSeverity:     "high",
			IPAddressSeverity:    "medium",
			SecurityZoneSeverity: "critical",
			HealthyStatuses:      []string{"online", "running"},
		},
		CriticalPath: CriticalPathConfig{
			MaxHops:       3,
			Types:         []string{"POWERS", "CONNECTS_TO", "DEPENDS_ON"},
			ScoreWeight:   2,
			MinDependents: 1,
			Severity:      Thresholds{Critical: 20, High: 10, Medium: 0, Exclusive: true},
			TopN:          10,
		},
		BlastRadius: BlastRadiusConfig{
			MaxHops:  5,
			Types:    clone(operational),
			Severity: Thresholds{Critical: 10, High: 5, Medium: 2},
		},
		Incidents: IncidentsConfig{
			MaxHops:  2,
			Types:    clone(operational),
			Statuses: []string{"offline", "error", "failed", "unreachable", "degraded", "warning"},
			Window:   24 * time.Hour,
			Limit:    20,
		},
		Ownership: OwnershipConfig{
			Teams: map[string]Team{
				"sensor":          {Name: "IoT & Sensor Operations", Channel: "#iot-operations"},
				"camera":          {Name: "IoT & Sensor Operations", Channel: "#iot-operations"},
				"plc":             {Name: "Automation & Robotics", Channel: "#automation-team"},
				"industrialrobot": {Name: "Automation & Robotics", Channel: "#automation-team"},
				"hmi":             {Name: "Control Systems Engineering", Channel: "#control-systems"},
				"gateway":         {Name: "Network Infrastructure", Channel: "#network-ops"},
				"edgegateway":     {Name: "Network Infrastructure", Channel: "#network-ops"},
				"networkswitch":   {Name: "Network Infrastructure", Channel: "#network-ops"},
				"router":          {Name: "Network Infrastructure", Channel: "#network-ops"},
				"firewall":        {Name: "Network Infrastructure", Channel: "#network-ops"},
				"server":          {Name: "Data Platform Engineering", Channel: "#data-platform"},
				"ups":             {Name: "Cloud & Enterprise Systems", Channel: "#cloud-ops"},
			},
			Default: Team{Name: "General Maintenance & Operations", Channel: "#general-ops"},
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and enum values.
func (c AnalyzerConfig) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", strings.TrimPrefix(fe.Namespace(), "AnalyzerConfig."), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

func clone(s []string) []string { return append([]string(nil), s...) }
