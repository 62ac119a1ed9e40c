package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
)

// ErrInvalidRule is returned for rules that fail to parse, compile or name
// an unknown action.
var ErrInvalidRule = errors.New("invalid policy rule")

// ActionKind is what a matching rule does to a finding.
type ActionKind string

const (
	ActionEscalate ActionKind = "escalate"
	ActionSuppress ActionKind = "suppress"
	ActionAnnotate ActionKind = "annotate"
)

// Action is a parsed rule action.
type Action struct {
	Kind     ActionKind
	Severity analyzers.Severity
	Note     string
}

// ParseAction accepts "escalate:<severity>", "suppress" and
// "annotate:<text>".
func ParseAction(raw string) (Action, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(raw), ":")
	switch ActionKind(strings.ToLower(kind)) {
	case ActionSuppress:
		return Action{Kind: ActionSuppress}, nil
	case ActionEscalate:
		sev, err := analyzers.ParseSeverity(strings.TrimSpace(arg))
		if err != nil {
			return Action{}, fmt.Errorf("%w: escalate: %v", ErrInvalidRule, err)
		}
		return Action{Kind: ActionEscalate, Severity: sev}, nil
	case ActionAnnotate:
		if strings.TrimSpace(arg) == "" {
			return Action{}, fmt.Errorf("%w: annotate needs text", ErrInvalidRule)
		}
		return Action{Kind: ActionAnnotate, Note: strings.TrimSpace(arg)}, nil
	}
	return Action{}, fmt.Errorf("%w: unknown action %q", ErrInvalidRule, raw)
}

// DynamicRule is a user-defined rule as written in a rules file.
type DynamicRule struct {
	ID        string `json:"id" yaml:"id"`
	Condition string `json:"condition" yaml:"condition"` // CEL: "analyzer == 'drift' && zone == 'Packaging'"
	Action    string `json:"action" yaml:"action"`
}

type ruleFile struct {
	Rules []DynamicRule `yaml:"rules"`
}

// LoadRules parses a YAML document with a top-level rules list.
func LoadRules(data []byte) ([]DynamicRule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return f.Rules, nil
}

// LoadRulesFile reads and parses path.
func LoadRulesFile(path string) ([]DynamicRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return LoadRules(data)
}
