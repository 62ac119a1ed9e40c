package commands

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/internal/app"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/history"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/notifier"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/report"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/tui"
)

type scanOptions struct {
	analyzers   []string
	target      string
	format      string
	output      string
	interactive bool
	metricsFile string
	historyURL  string
	webhook     string
}

var scanOpts scanOptions

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the factory-wide analyzers",
	Long: `Run every analyzer (or the ones named with --analyzers) concurrently over
one pinned snapshot and render the combined report.

Example:
  factorytwin scan --graph plant.yaml --baseline baseline.hcl --format html -o report.html
  factorytwin scan --mock --tui`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := scanOpts.format
		if format == "" && scanOpts.output != "" {
			format = string(report.FormatFor(scanOpts.output))
		}
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return runScan(ctx, cmd, a, f, scanOpts)
		})
	},
}

func runScan(ctx context.Context, cmd *cobra.Command, a *app.App, f report.Format, opts scanOptions) error {
	run, runErr := a.Engine.Run(ctx, engine.Request{Analyzers: opts.analyzers, Target: opts.target})
	if run == nil {
		return runErr
	}
	now := time.Now()

	if opts.historyURL != "" {
		if err := recordHistory(ctx, a, opts.historyURL, run, now); err != nil {
			a.Logger.Warn("Failed to record run history", "history", opts.historyURL, "error", err)
		}
	}
	if opts.metricsFile != "" {
		if err := a.Metrics.WriteTextfile(opts.metricsFile); err != nil {
			a.Logger.Warn("Failed to write metrics textfile", "path", opts.metricsFile, "error", err)
		}
	}

	doc := report.FromRun(run, now)
	notifyRun(ctx, a, opts.webhook, doc)
	if opts.interactive {
		if opts.output != "" {
			if err := emit(ctx, cmd, a, opts.output, func(w io.Writer) error { return report.Write(w, f, doc) }); err != nil {
				return err
			}
		}
		m := tui.NewModel("FACTORYTWIN").Load(findingsMsg(run))
		if err := tui.Run(ctx, m, nil); err != nil {
			return err
		}
		return runErr
	}

	if err := emit(ctx, cmd, a, opts.output, func(w io.Writer) error { return report.Write(w, f, doc) }); err != nil {
		return err
	}
	return runErr
}

func recordHistory(ctx context.Context, a *app.App, location string, run *engine.Run, at time.Time) error {
	backend, err := history.Open(ctx, location, a.StorageOptions()...)
	if err != nil {
		return err
	}
	entry, err := history.NewClient(backend).Record(ctx, run, at)
	if err != nil {
		return err
	}
	a.Logger.Debug("Run recorded", "history", location, "failing", entry.Failing, "drift_pct", entry.DriftPercentage)
	return nil
}

// notifyRun posts high and critical runs to a Slack webhook. Delivery
// problems are logged, never fatal.
func notifyRun(ctx context.Context, a *app.App, webhook string, doc report.Document) {
	if webhook == "" {
		return
	}
	sent, err := notifier.NewSlackClient(webhook, "").SendRunReport(ctx, doc)
	if err != nil {
		a.Logger.Warn("Failed to notify", "error", err)
		return
	}
	if sent {
		a.Logger.Info("Run report sent", "run_id", doc.RunID)
	}
}

func findingsMsg(run *engine.Run) tui.FindingsMsg {
	return tui.FindingsMsg{
		RunID:           run.ID,
		SnapshotVersion: run.SnapshotVersion,
		Graph:           run.Input.Graph,
		Findings:        run.Findings,
	}
}

func init() {
	fl := scanCmd.Flags()
	fl.StringSliceVar(&scanOpts.analyzers, "analyzers", nil, "Analyzers to run (default: all)")
	fl.StringVar(&scanOpts.target, "target", "", "Asset for the root cause and cascade analyzers")
	fl.StringVar(&scanOpts.format, "format", "", "Output format: json, csv, text or html (default: from --output, else text)")
	fl.StringVarP(&scanOpts.output, "output", "o", "", "Write to a path or s3:// URL instead of stdout")
	fl.BoolVar(&scanOpts.interactive, "tui", false, "Browse findings interactively")
	fl.StringVar(&scanOpts.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format")
	fl.StringVar(&scanOpts.historyURL, "history", "", "Append the run to a ledger (path or s3:// URL)")
	fl.StringVar(&scanOpts.webhook, "notify-webhook", "", "Slack webhook for high and critical runs")

	rootCmd.AddCommand(scanCmd)
}
