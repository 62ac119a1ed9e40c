package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/internal/app"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/history"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/notifier"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/report"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show trends across recorded scans",
	Long: `Load the most recent ledger entries written by scan --history and derive
failure velocity, acceleration, drift growth and the overall pattern.

With --mock a synthetic day of scans is analysed instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSetup(cmd, func(ctx context.Context, a *app.App) error {
			backend, cleanup, err := historyBackend(ctx, cmd, a)
			if err != nil {
				return err
			}
			defer cleanup()

			window, _ := cmd.Flags().GetInt("window")
			entries, err := history.NewClient(backend).Window(ctx, window)
			if err != nil {
				return err
			}
			trend := history.Analyze(entries)
			if webhook, _ := cmd.Flags().GetString("notify-webhook"); webhook != "" {
				if _, err := notifier.NewSlackClient(webhook, "").SendTrendAlert(ctx, trend); err != nil {
					a.Logger.Warn("Failed to notify", "error", err)
				}
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			return emit(ctx, cmd, a, "", func(w io.Writer) error {
				if asJSON {
					return report.WriteJSON(w, trend)
				}
				return writeTrendText(w, trend, time.Now())
			})
		})
	},
}

func historyBackend(ctx context.Context, cmd *cobra.Command, a *app.App) (history.Backend, func(), error) {
	if a.Config.MockMode {
		dir, err := os.MkdirTemp("", "factorytwin-history-*")
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() { _ = os.RemoveAll(dir) }
		backend := history.NewBlobBackend(storage.NewLocalStore(dir), "ledger.jsonl")
		if err := history.SeedDemo(ctx, backend, time.Now()); err != nil {
			cleanup()
			return nil, nil, err
		}
		return backend, cleanup, nil
	}

	location, _ := cmd.Flags().GetString("ledger")
	if location == "" {
		var err error
		if location, err = history.DefaultLedgerPath(); err != nil {
			return nil, nil, err
		}
	}
	backend, err := history.Open(ctx, location, a.StorageOptions()...)
	if err != nil {
		return nil, nil, err
	}
	return backend, func() {}, nil
}

func writeTrendText(w io.Writer, t history.Trend, now time.Time) error {
	var b strings.Builder
	if t.Samples == 0 {
		b.WriteString("No history recorded yet. Run scan --history to start a ledger.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	c := t.Current
	fmt.Fprintf(&b, "Samples: %d  Latest: %s (%s ago)\n", t.Samples, c.Timestamp.Format(time.RFC3339), t.Since(now).Round(time.Second))
	fmt.Fprintf(&b, "Failing: %d of %d  Drift: %.1f%%  Critical findings: %d\n",
		c.Failing, c.Assets, c.DriftPercentage, c.FindingsBySeverity["critical"])
	fmt.Fprintf(&b, "Failure velocity: %+.2f/h  Acceleration: %+.2f/h²  Drift velocity: %+.2f pp/h\n",
		t.FailingVelocity, t.Acceleration, t.DriftVelocity)
	fmt.Fprintf(&b, "Pattern: %s\n", t.Pattern)
	for _, alert := range t.Alerts {
		fmt.Fprintf(&b, "%s\n", alert)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func init() {
	fl := historyCmd.Flags()
	fl.String("ledger", "", "Ledger path or s3:// URL (default ~/.factorytwin/ledger.jsonl)")
	fl.Int("window", 24, "Entries to analyse")
	fl.Bool("json", false, "Print JSON")
	fl.String("notify-webhook", "", "Slack webhook for trend alerts")

	rootCmd.AddCommand(historyCmd)
}
