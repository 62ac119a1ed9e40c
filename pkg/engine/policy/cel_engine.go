package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
)

type compiled struct {
	rule   DynamicRule
	action Action
	prg    cel.Program
}

// CELEngine compiles rules once and evaluates them against findings in the
// order they were given.
type CELEngine struct {
	env    *cel.Env
	rules  []compiled
	logger *slog.Logger
}

// NewCELEngine declares the finding variables rules may reference.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("analyzer", cel.StringType),
		cel.Variable("asset", cel.StringType),
		cel.Variable("asset_type", cel.StringType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("score", cel.DoubleType),
		cel.Variable("zone", cel.StringType),
		cel.Variable("props", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &CELEngine{env: env, logger: slog.Default()}, nil
}

// WithLogger replaces the logger used for evaluation errors.
func (e *CELEngine) WithLogger(l *slog.Logger) *CELEngine {
	if l != nil {
		e.logger = l
	}
	return e
}

// Len is the number of compiled rules.
func (e *CELEngine) Len() int { return len(e.rules) }

// Compile adds rules. Conditions must be boolean.
func (e *CELEngine) Compile(rules []DynamicRule) error {
	seen := make(map[string]bool, len(e.rules)+len(rules))
	for _, c := range e.rules {
		seen[c.rule.ID] = true
	}
	for _, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("%w: rule without id", ErrInvalidRule)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRule, r.ID)
		}
		seen[r.ID] = true

		act, err := ParseAction(r.Action)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}
		ast, issues := e.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("%w: rule %s compilation error: %v", ErrInvalidRule, r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return fmt.Errorf("%w: rule %s must evaluate to bool, got %s", ErrInvalidRule, r.ID, ast.OutputType())
		}
		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("%w: rule %s program creation error: %v", ErrInvalidRule, r.ID, err)
		}
		e.rules = append(e.rules, compiled{rule: r, action: act, prg: prg})
	}
	return nil
}

func activation(f analyzers.Finding) map[string]any {
	props := f.Props
	if props == nil {
		props = map[string]string{}
	}
	return map[string]any{
		"analyzer":   f.Analyzer,
		"asset":      f.AssetID,
		"asset_type": f.AssetType,
		"severity":   f.Severity.String(),
		"score":      f.Score,
		"zone":       f.Zone,
		"props":      props,
	}
}

// Evaluate returns the rules matching f. A rule that fails at runtime is
// logged and treated as not matching.
func (e *CELEngine) Evaluate(ctx context.Context, f analyzers.Finding) ([]DynamicRule, error) {
	vars := activation(f)
	var matches []DynamicRule
	for _, c := range e.rules {
		if err := ctx.Err(); err != nil {
			return matches, err
		}
		out, _, err := c.prg.ContextEval(ctx, vars)
		if err != nil {
			e.logger.Error("Rule evaluation failed", "rule_id", c.rule.ID, "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			matches = append(matches, c.rule)
		}
	}
	return matches, nil
}

// Stats counts what Apply did.
type Stats struct {
	Evaluated  int `json:"evaluated"`
	Escalated  int `json:"escalated"`
	Suppressed int `json:"suppressed"`
	Annotated  int `json:"annotated"`
}

// Apply runs every rule over findings and returns the surviving findings.
// Suppression wins over everything else; escalation only ever raises
// severity. The input slice is not modified.
func (e *CELEngine) Apply(ctx context.Context, findings []analyzers.Finding) ([]analyzers.Finding, Stats, error) {
	var st Stats
	out := make([]analyzers.Finding, 0, len(findings))
	for _, f := range findings {
		st.Evaluated++
		vars := activation(f)
		suppressed, escalated, annotated := false, false, false
		for _, c := range e.rules {
			if err := ctx.Err(); err != nil {
				return nil, st, err
			}
			res, _, err := c.prg.ContextEval(ctx, vars)
			if err != nil {
				e.logger.Error("Rule evaluation failed", "rule_id", c.rule.ID, "asset", f.AssetID, "error", err)
				continue
			}
			if match, ok := res.Value().(bool); !ok || !match {
				continue
			}
			switch c.action.Kind {
			case ActionSuppress:
				suppressed = true
			case ActionEscalate:
				if c.action.Severity > f.Severity {
					f.Severity = c.action.Severity
					escalated = true
				}
			case ActionAnnotate:
				f.Notes = append(append([]string(nil), f.Notes...), c.rule.ID+": "+c.action.Note)
				annotated = true
			}
			if suppressed {
				break
			}
		}
		if suppressed {
			st.Suppressed++
			continue
		}
		if escalated {
			st.Escalated++
		}
		if annotated {
			st.Annotated++
		}
		out = append(out, f)
	}
	return out, st, nil
}
