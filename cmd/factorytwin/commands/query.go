package commands

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/internal/app"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/analyzers"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/engine/report"
)

type queryFunc func(ctx context.Context, e *engine.Engine, assetID string) (analyzers.Result, error)

// newQueryCmd builds a command around one single-asset analysis.
func newQueryCmd(use, short, long, name string, query queryFunc) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   use + " <asset>",
		Short: short,
		Long:  long,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := query(ctx, a.Engine, args[0])
				if err != nil {
					return err
				}
				env := report.Single(name, res)
				return emit(ctx, cmd, a, output, func(w io.Writer) error {
					return report.WriteEnvelope(w, f, env)
				})
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: json, csv or text")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a path or s3:// URL instead of stdout")
	return cmd
}

var rcaCmd = newQueryCmd("rca", "Trace a failing asset to its root cause",
	`Walk upstream dependencies of a failing asset and report the furthest
failing ancestor, the chain that connects them and the owning team.

Example:
  factorytwin rca PLC-001 --graph plant.yaml`,
	analyzers.NameRootCause,
	func(ctx context.Context, e *engine.Engine, id string) (analyzers.Result, error) {
		return e.RootCause(ctx, id)
	})

var cascadeCmd = newQueryCmd("cascade", "Show what fails downstream of an asset",
	`Compute the downstream impact of an asset failing, grouped by hop
distance, with how many dependents are already down.`,
	analyzers.NameCascade,
	func(ctx context.Context, e *engine.Engine, id string) (analyzers.Result, error) {
		return e.Cascade(ctx, id)
	})

// windowFlag is a duration flag that remembers whether it was given, so the
// configured window applies otherwise.
type windowFlag struct {
	d   time.Duration
	set bool
}

var _ pflag.Value = (*windowFlag)(nil)

func (w *windowFlag) String() string {
	if !w.set {
		return ""
	}
	return w.d.String()
}

func (w *windowFlag) Set(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.New("window must not be negative")
	}
	w.d, w.set = d, true
	return nil
}

func (w *windowFlag) Type() string { return "duration" }

var incidentsWindow windowFlag

var incidentsCmd = newQueryCmd("incidents", "List failing assets near an asset",
	`List failing assets within a few hops of an asset, in either direction,
the asset itself included. Incidents are ordered by severity, then hop
distance, and capped at analyzers.incidents.limit.

The time window is measured back from the newest status change in the
graph. It defaults to analyzers.incidents.window (24h); --window 0 lists
every incident regardless of age.

Example:
  factorytwin incidents EdgeGateway-02 --window 6h --graph plant.yaml`,
	analyzers.NameRelatedIncidents,
	func(ctx context.Context, e *engine.Engine, id string) (analyzers.Result, error) {
		if incidentsWindow.set {
			return e.RelatedIncidentsWithin(ctx, id, incidentsWindow.d)
		}
		return e.RelatedIncidents(ctx, id)
	})

var traceCmd = newQueryCmd("trace", "Investigate an incident step by step",
	`Trace an incident on one asset: its state, the failing assets upstream,
the affected assets downstream, the root cause, nearby incidents and
recommended actions. Priority is critical when more than three downstream
systems are affected.

Example:
  factorytwin trace PLC-001 --format json`,
	analyzers.NameIncidentTrace,
	func(ctx context.Context, e *engine.Engine, id string) (analyzers.Result, error) {
		return e.TraceIncident(ctx, id)
	})

var blastRadiusCmd = &cobra.Command{
	Use:   "blast-radius",
	Short: "Rank unhealthy assets by downstream reach",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			env := report.Single(analyzers.NameBlastRadius, a.Engine.BlastRadius(ctx))
			return emit(ctx, cmd, a, output, func(w io.Writer) error {
				return report.WriteEnvelope(w, f, env)
			})
		})
	},
}

func init() {
	incidentsCmd.Flags().Var(&incidentsWindow, "window", "Only incidents that changed state within this long (default from config)")
	blastRadiusCmd.Flags().String("format", "text", "Output format: json, csv or text")
	blastRadiusCmd.Flags().StringP("output", "o", "", "Write to a path or s3:// URL instead of stdout")

	rootCmd.AddCommand(rcaCmd, cascadeCmd, incidentsCmd, traceCmd, blastRadiusCmd)
}
