package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultAnalyzerConfig(t *testing.T) {
	cfg := DefaultAnalyzerConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	if cfg.RootCause.MaxHops != 5 {
		t.Errorf("Expected root cause MaxHops 5, got %d", cfg.RootCause.MaxHops)
	}
	if cfg.Temporal.Window != 60*time.Second {
		t.Errorf("Expected 60s window, got %s", cfg.Temporal.Window)
	}
	if cfg.Incidents.Window != 24*time.Hour || cfg.Incidents.Limit != 20 {
		t.Errorf("Expected a 24h incident window capped at 20, got %s/%d", cfg.Incidents.Window, cfg.Incidents.Limit)
	}

	// Default slices must not alias each other.
	cfg.RootCause.Types[0] = "X"
	if cfg.BlastRadius.Types[0] == "X" {
		t.Error("Types slices share backing arrays")
	}
}

func TestThresholdsLevel(t *testing.T) {
	cascade := DefaultAnalyzerConfig().Cascade.Severity
	for v, want := range map[float64]string{15: "critical", 14: "high", 8: "high", 3: "medium", 2: "low", 0: "low"} {
		if got := cascade.Level(v); got != want {
			t.Errorf("cascade Level(%v) = %s, want %s", v, got, want)
		}
	}

	spof := DefaultAnalyzerConfig().CriticalPath.Severity
	for v, want := range map[float64]string{22: "critical", 20: "high", 12: "high", 10: "medium", 2: "medium"} {
		if got := spof.Level(v); got != want {
			t.Errorf("critical path Level(%v) = %s, want %s", v, got, want)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultAnalyzerConfig()
	cfg.RootCause.MaxHops = 0
	cfg.Cascade.Severity = Thresholds{Critical: 1, High: 5, Medium: 3}
	cfg.Drift.VersionSeverity = "urgent"
	cfg.Temporal.Window = 0
	cfg.Incidents.Window = -time.Minute
	cfg.Incidents.Limit = 0

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	for _, field := range []string{"RootCause.MaxHops", "Cascade.Severity.Critical", "Drift.VersionSeverity", "Temporal.Window", "Incidents.Window", "Incidents.Limit"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestOwnershipLookup(t *testing.T) {
	o := DefaultAnalyzerConfig().Ownership
	if got := o.TeamFor("networkswitch").Channel; got != "#network-ops" {
		t.Errorf("lookup should ignore case, got %q", got)
	}
	if got := o.TeamFor("Conveyor").Name; got != "General Maintenance & Operations" {
		t.Errorf("unexpected default team %q", got)
	}
	if got := DefaultAnalyzerConfig().Power.CriticalityOf("server"); got != "critical" {
		t.Errorf("expected critical, got %s", got)
	}
	if got := DefaultAnalyzerConfig().Power.CriticalityOf("HMI"); got != "medium" {
		t.Errorf("expected medium, got %s", got)
	}
}

func TestViperOverrideReplacesDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	doc := `
analyzers:
  power:
    criticality:
      PLC: medium
  ownership:
    teams:
      PLC:
        name: Line Team
        channel: "#line-1"
  incidents:
    window: 6h
`
	if err := v.ReadConfig(strings.NewReader(doc)); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultAnalyzerConfig()
	if err := v.UnmarshalKey("analyzers", &cfg); err != nil {
		t.Fatal(err)
	}
	cfg.Normalize()

	if _, ok := cfg.Power.Criticality["PLC"]; ok {
		t.Error("mixed-case key survived Normalize")
	}
	// Map order must not decide the answer.
	for i := 0; i < 200; i++ {
		if got := cfg.Power.CriticalityOf("PLC"); got != "medium" {
			t.Fatalf("lookup %d: CriticalityOf(PLC) = %s, want medium", i, got)
		}
		if got := cfg.Ownership.TeamFor("PLC").Name; got != "Line Team" {
			t.Fatalf("lookup %d: TeamFor(PLC) = %s, want Line Team", i, got)
		}
	}
	if got := cfg.Power.CriticalityOf("Server"); got != "critical" {
		t.Errorf("untouched default changed: %s", got)
	}
	if cfg.Incidents.Window != 6*time.Hour || cfg.Incidents.Limit != 20 {
		t.Errorf("incident window override: got %s/%d", cfg.Incidents.Window, cfg.Incidents.Limit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("override must validate: %v", err)
	}
}

func TestNormalizePrefersLowerCaseKey(t *testing.T) {
	cfg := DefaultAnalyzerConfig()
	cfg.Power.Criticality["Robot"] = "high"
	cfg.Power.Criticality["robot"] = "critical"
	for i := 0; i < 50; i++ {
		c := cfg
		c.Normalize()
		if got := c.Power.CriticalityOf("ROBOT"); got != "critical" {
			t.Fatalf("got %s, want critical", got)
		}
	}
}
