package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/internal/app"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/report"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/tui"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/watch"
)

var errNotWatchable = errors.New("watch needs local --graph (and --baseline) files")

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the analyzers whenever the graph or baseline changes",
	Long: `Watch the graph document and baseline file. Every change swaps in a new
snapshot and re-runs the selected analyzers; a document that fails to
decode keeps the previous snapshot.

Example:
  factorytwin watch --graph plant.yaml --baseline baseline.yaml --tui`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if !a.Watchable() {
				return errNotWatchable
			}
			return runWatch(ctx, cmd, a)
		})
	},
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app.App) error {
	names, _ := cmd.Flags().GetStringSlice("analyzers")
	interactive, _ := cmd.Flags().GetBool("tui")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	historyURL, _ := cmd.Flags().GetString("history")
	webhook, _ := cmd.Flags().GetString("notify-webhook")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan tui.FindingsMsg, 1)
	publish := func(msg tui.FindingsMsg) {
		// Keep only the newest result if the browser has not caught up.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- msg:
		default:
		}
	}

	scan := func(ctx context.Context) {
		run, err := a.Engine.Run(ctx, engine.Request{Analyzers: names})
		if run == nil {
			a.Logger.Error("Scan failed", "error", err)
			return
		}
		if err != nil {
			a.Logger.Warn("Scan incomplete", "run_id", run.ID, "error", err)
		}
		if historyURL != "" {
			if err := recordHistory(ctx, a, historyURL, run, run.StartedAt); err != nil {
				a.Logger.Warn("Failed to record run history", "history", historyURL, "error", err)
			}
		}
		if metricsFile != "" {
			if err := a.Metrics.WriteTextfile(metricsFile); err != nil {
				a.Logger.Warn("Failed to write metrics textfile", "path", metricsFile, "error", err)
			}
		}
		notifyRun(ctx, a, webhook, report.FromRun(run, run.StartedAt))
		if interactive {
			publish(findingsMsg(run))
			return
		}
		a.Logger.Info("Findings", "run_id", run.ID, "snapshot_version", run.SnapshotVersion,
			"total", len(run.Findings), "failed_analyzers", run.Failed())
		for _, f := range run.Findings {
			a.Logger.Info(f.Title, "severity", f.Severity.String(), "analyzer", f.Analyzer, "asset", f.AssetID)
		}
	}

	r := watch.New(a.Engine,
		strings.TrimPrefix(a.Config.GraphPath, "file://"),
		strings.TrimPrefix(a.Config.BaselinePath, "file://"),
		watch.WithLogger(a.Logger),
		watch.WithMetrics(a.Metrics),
		watch.OnReload(func(ctx context.Context, ev watch.Event) { scan(ctx) }),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.Run(gctx) })
	if interactive {
		g.Go(func() error {
			defer cancel()
			err := tui.Run(gctx, tui.NewModel("FACTORYTWIN WATCH"), updates)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}
	scan(gctx)
	a.Logger.Info("Watching for changes", "graph", a.Config.GraphPath, "baseline", a.Config.BaselinePath)
	return g.Wait()
}

func init() {
	fl := watchCmd.Flags()
	fl.StringSlice("analyzers", nil, "Analyzers to run (default: all)")
	fl.Bool("tui", false, "Browse findings interactively")
	fl.String("metrics-file", "", "Rewrite Prometheus metrics after every run")
	fl.String("history", "", "Append every run to a ledger (path or s3:// URL)")
	fl.String("notify-webhook", "", "Slack webhook for high and critical runs")

	rootCmd.AddCommand(watchCmd)
}
