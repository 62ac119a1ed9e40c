// Package remediation turns drift into an ordered, verifiable action plan.
package remediation

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
)

// ActionKind is the remediation applied to one drifted field.
type ActionKind string

const (
	InvestigateFailure ActionKind = "investigate_failure"
	SyncVersion        ActionKind = "sync_version"
	UpdateNetwork      ActionKind = "update_network"
	SyncConfig         ActionKind = "sync_config"
	UpdateZone         ActionKind = "update_zone"
)

// ManifestVersion is the schema version written into every plan.
const ManifestVersion = "1.0"

// Condition is a verification check on one asset field.
type Condition struct {
	Type   string            `json:"type"` // FIELD_EQUALS
	Params map[string]string `json:"params"`
}

// Provenance points at the baseline record in the config repository.
type Provenance struct {
	GitRepo    string `json:"gitRepo,omitempty"`
	GitPath    string `json:"gitPath,omitempty"`
	LastCommit string `json:"lastCommit,omitempty"`
}

// PlanAction is a remediation step.
type PlanAction struct {
	ID          string             `json:"id"`
	AssetID     string             `json:"assetId"`
	Field       string             `json:"field"`
	Action      ActionKind         `json:"action"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    analyzers.Severity `json:"priority"`
	Automated   bool               `json:"automated"`

	// PreConditions must hold before the step runs; PostConditions hold
	// once it has.
	PreConditions  []Condition `json:"preConditions"`
	PostConditions []Condition `json:"postConditions"`
	Provenance     Provenance  `json:"provenance"`
}

// Manifest is the remediation plan for one drift result.
type Manifest struct {
	Version     string       `json:"version"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Automated   int          `json:"automated"`
	Manual      int          `json:"manual"`
	Actions     []PlanAction `json:"actions"`
}

// Generator creates remediation plans.
type Generator struct {
	Logger *slog.Logger
}

// NewGenerator initializes the generator.
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{Logger: logger}
}

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9._/-]+$`)

type actionTemplate struct {
	kind      ActionKind
	title     string
	priority  analyzers.Severity
	automated bool
	describe  func(d analyzers.DriftRecord) string
}

var templates = map[string]actionTemplate{
	analyzers.FieldStatus: {
		InvestigateFailure, "Investigate Asset Failure", analyzers.SeverityCritical, false,
		func(d analyzers.DriftRecord) string {
			return fmt.Sprintf("Asset status drifted to %s. Run RCA to identify root cause.", d.ActualValue)
		},
	},
	analyzers.FieldVersion: {
		SyncVersion, "Update to Intended Version", analyzers.SeverityHigh, true,
		func(d analyzers.DriftRecord) string {
			return fmt.Sprintf("Upgrade/downgrade from %s to %s", d.ActualValue, d.IntendedValue)
		},
	},
	analyzers.FieldIPAddress: {
		UpdateNetwork, "Update Network Configuration", analyzers.SeverityMedium, true,
		func(d analyzers.DriftRecord) string {
			return fmt.Sprintf("Reconfigure IP from %s to %s", d.ActualValue, d.IntendedValue)
		},
	},
	analyzers.FieldConfigChecksum: {
		SyncConfig, "Sync Configuration from Git", analyzers.SeverityHigh, true,
		func(analyzers.DriftRecord) string {
			return "Configuration has drifted. Pull latest config from GitOps repository."
		},
	},
	analyzers.FieldSecurityZone: {
		UpdateZone, "Reassign Security Zone", analyzers.SeverityCritical, false,
		func(d analyzers.DriftRecord) string {
			return fmt.Sprintf("Move asset from %s to %s", d.ActualValue, d.IntendedValue)
		},
	},
}

// Generate builds a plan with one action per drift record, highest priority
// first. Records for assets whose id is not safe to embed in a runbook are
// skipped and logged.
func (g *Generator) Generate(dr *analyzers.DriftResult, at time.Time) Manifest {
	m := Manifest{
		Version:     ManifestVersion,
		GeneratedAt: at.UTC(),
		Actions:     []PlanAction{},
	}
	if dr == nil {
		return m
	}

	for _, a := range dr.Assets {
		if !idRegex.MatchString(a.AssetID) {
			g.Logger.Warn("skipping remediation for unsafe asset id", "asset", a.AssetID)
			continue
		}
		prov := Provenance{GitRepo: a.Baseline.GitRepo, GitPath: a.Baseline.GitPath, LastCommit: a.Baseline.LastCommit}
		for _, d := range a.Drifts {
			tpl, ok := templates[d.Field]
			if !ok {
				g.Logger.Debug("no remediation for field", "asset", a.AssetID, "field", d.Field)
				continue
			}
			m.Actions = append(m.Actions, PlanAction{
				ID:          a.AssetID + "/" + d.Field,
				AssetID:     a.AssetID,
				Field:       d.Field,
				Action:      tpl.kind,
				Title:       tpl.title,
				Description: tpl.describe(d),
				Priority:    tpl.priority,
				Automated:   tpl.automated,
				PreConditions: []Condition{
					fieldEquals(a.AssetID, d.Field, d.ActualValue),
				},
				PostConditions: []Condition{
					fieldEquals(a.AssetID, d.Field, d.IntendedValue),
				},
				Provenance: prov,
			})
		}
	}

	sort.SliceStable(m.Actions, func(i, j int) bool {
		a, b := m.Actions[i], m.Actions[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})
	for _, act := range m.Actions {
		if act.Automated {
			m.Automated++
		} else {
			m.Manual++
		}
	}
	return m
}

func fieldEquals(asset, field, value string) Condition {
	return Condition{
		Type:   "FIELD_EQUALS",
		Params: map[string]string{"asset": asset, "field": field, "value": value},
	}
}

// WriteJSON serializes the manifest.
func (m Manifest) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(m)
}

// WriteRunbook renders the plan as a shell runbook. It only prints steps;
// automated actions are left to the sync tooling that owns each repository.
func (m Manifest) WriteRunbook(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "#!/bin/sh\n")
	fmt.Fprintf(&b, "# FactoryTwin drift remediation runbook v%s\n", m.Version)
	fmt.Fprintf(&b, "# Generated: %s\n\n", m.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "set -e\n\n")

	for i, act := range m.Actions {
		mode := "manual"
		if act.Automated {
			mode = "automated"
		}
		fmt.Fprintf(&b, "printf '[%d/%d] %%s %%s (%%s)\\n' %s %s %s\n",
			i+1, len(m.Actions), shellQuote(string(act.Action)), shellQuote(act.AssetID), mode)
		fmt.Fprintf(&b, "printf '  %%s\\n' %s\n", shellQuote(act.Description))
		if act.Provenance.GitRepo != "" {
			fmt.Fprintf(&b, "printf '  source: %%s/%%s@%%s\\n' %s %s %s\n",
				shellQuote(act.Provenance.GitRepo), shellQuote(act.Provenance.GitPath), shellQuote(act.Provenance.LastCommit))
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// shellQuote quotes a string for sh.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
