package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/internal/app"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/remediation"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/report"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/graph"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/storage"
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Compare live assets against the baseline",
	Long: `Compare every baselined asset with its live state and report drifted
fields. Optionally write a remediation plan, a shell runbook for the
operators, or a graph document with the automated fixes applied.

Example:
  factorytwin drift --graph plant.yaml --baseline baseline.hcl --plan plan.json --runbook fix.sh`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return runDrift(ctx, cmd, a, f)
		})
	},
}

func runDrift(ctx context.Context, cmd *cobra.Command, a *app.App, f report.Format) error {
	output, _ := cmd.Flags().GetString("output")
	planURL, _ := cmd.Flags().GetString("plan")
	runbookURL, _ := cmd.Flags().GetString("runbook")
	reconcileURL, _ := cmd.Flags().GetString("reconcile")

	run, err := a.Engine.Run(ctx, engine.Request{Analyzers: []string{analyzers.NameDrift}})
	if run == nil {
		return err
	}
	o, _ := run.Outcome(analyzers.NameDrift)
	if o.Status != engine.StatusOK {
		if o.Err != nil {
			return o.Err
		}
		return err
	}
	dr := o.Result.(*analyzers.DriftResult)

	env := report.Single(analyzers.NameDrift, dr)
	if err := emit(ctx, cmd, a, output, func(w io.Writer) error {
		if f == report.FormatText {
			s := dr.Summary
			fmt.Fprintf(w, "Drift: %d of %d baselined assets drifted (%.1f%%), %d drift(s), %d critical, %d missing\n",
				s.DriftedAssets, s.TotalAssets, s.DriftPercentage, s.TotalDrifts, s.CriticalDrifts, s.MissingAssets)
		}
		return report.WriteEnvelope(w, f, env)
	}); err != nil {
		return err
	}

	if planURL == "" && runbookURL == "" && reconcileURL == "" {
		return nil
	}
	plan := remediation.NewGenerator(a.Logger).Generate(dr, time.Now())

	if planURL != "" {
		if err := emit(ctx, cmd, a, planURL, plan.WriteJSON); err != nil {
			return err
		}
	}
	if runbookURL != "" {
		if err := emit(ctx, cmd, a, runbookURL, plan.WriteRunbook); err != nil {
			return err
		}
	}
	if reconcileURL != "" {
		return reconcile(ctx, a, run.Input.Graph, plan, reconcileURL)
	}
	return nil
}

// reconcile applies the automated steps of plan to a copy of the pinned
// graph and writes the result as a new document.
func reconcile(ctx context.Context, a *app.App, snap *graph.Snapshot, plan remediation.Manifest, dest string) error {
	doc := graph.DocumentFromSnapshot(snap)
	outcomes, err := remediation.Apply(doc, plan)
	if err != nil {
		return err
	}
	applied := 0
	for _, o := range outcomes {
		if o.Applied {
			applied++
			continue
		}
		a.Logger.Info("Remediation step left for operators", "action", o.ID, "reason", o.Reason)
	}
	data, err := doc.Encode(graph.FormatFromName(dest))
	if err != nil {
		return err
	}
	if err := storage.WriteURL(ctx, dest, data, a.StorageOptions()...); err != nil {
		return err
	}
	a.Logger.Info("Reconciled graph written", "output", dest, "applied", applied, "manual", len(outcomes)-applied)
	return nil
}

func init() {
	fl := driftCmd.Flags()
	fl.String("format", "text", "Output format: json, csv or text")
	fl.StringP("output", "o", "", "Write to a path or s3:// URL instead of stdout")
	fl.String("plan", "", "Write the remediation plan (JSON) to a path or s3:// URL")
	fl.String("runbook", "", "Write an operator runbook (shell) to a path or s3:// URL")
	fl.String("reconcile", "", "Apply automated fixes and write the resulting graph document")

	rootCmd.AddCommand(driftCmd)
}
