package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/internal/app"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/config"
	"github.com/Kumarhq/factory-digital-twin-gitops-sub001/pkg/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "factorytwin",
	Short: "Factory digital twin diagnostics",
	Long: `FactoryTwin - dependency graph diagnostics for the factory floor

Trace. Correlate. Reconcile.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default $HOME/"+config.DefaultConfig+")")
	pf.String("graph", "", "Graph document (path or s3://bucket/key, .json or .yaml)")
	pf.String("baseline", "", "Baseline records (YAML or HCL)")
	pf.String("rules", "", "Policy rules file (YAML)")
	pf.Bool("json-logs", false, "Emit logs as JSON")
	pf.String("log-file", "", "Also write JSON logs to a rotated file")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.String("otel-endpoint", "", "OTLP HTTP endpoint for traces")
	pf.Int("concurrency", 0, "Analyzers run at once (default: CPU count)")
	pf.Bool("strict", false, "Exit non-zero when any analyzer fails")
	pf.String("s3-endpoint", "", "Custom S3 endpoint, e.g. a localstack URL")
	pf.String("s3-region", "", "S3 region override")

	// Hidden Flags
	pf.Bool("mock", false, "Use the built-in demo factory")
	_ = pf.MarkHidden("mock")

	_ = viper.BindPFlags(pf)

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd.OutOrStdout(), cmd)
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.SetConfigFile(filepath.Join(home, config.DefaultConfig))
			viper.SetConfigType("yaml")
		}
	}
	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" && !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: could not read config %s: %v\n", cfgFile, err)
		}
	}
}

// loadConfig merges flags, environment and the config file. Analyzer
// thresholds start from the defaults and are overlaid by the analyzers
// section.
func loadConfig(cmd *cobra.Command) (app.Config, error) {
	analyzerCfg := config.DefaultAnalyzerConfig()
	if viper.IsSet("analyzers") {
		if err := viper.UnmarshalKey("analyzers", &analyzerCfg); err != nil {
			return app.Config{}, fmt.Errorf("invalid analyzers config: %w", err)
		}
		analyzerCfg.Normalize()
	}
	return app.Config{
		GraphPath:    viper.GetString("graph"),
		BaselinePath: viper.GetString("baseline"),
		RulesPath:    viper.GetString("rules"),
		MockMode:     viper.GetBool("mock"),
		JSONLogs:     viper.GetBool("json-logs"),
		Verbose:      viper.GetBool("verbose"),
		LogFile:      viper.GetString("log-file"),
		LogOutput:    cmd.ErrOrStderr(),
		OTelEndpoint: viper.GetString("otel-endpoint"),
		Concurrency:  viper.GetInt("concurrency"),
		Strict:       viper.GetBool("strict"),
		S3Endpoint:   viper.GetString("s3-endpoint"),
		S3Region:     viper.GetString("s3-region"),
		Analyzers:    &analyzerCfg,
	}, nil
}

// withApp bootstraps the full application for one command and closes it
// afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return bootstrapped(cmd, app.Bootstrap, fn)
}

// withSetup is withApp without loading the graph.
func withSetup(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return bootstrapped(cmd, app.Setup, fn)
}

func bootstrapped(cmd *cobra.Command, boot func(context.Context, app.Config) (*app.App, error), fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := boot(ctx, cfg)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)
	if err := a.Close(context.WithoutCancel(ctx)); err != nil {
		a.Logger.Debug("Shutdown incomplete", "error", err)
	}
	return runErr
}

func renderHelp(w io.Writer, cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF99")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("FACTORYTWIN %s", version.Current)))
	if cmd.Long != "" {
		fmt.Fprintln(w, cmd.Long)
	} else {
		fmt.Fprintln(w, cmd.Short)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render("USAGE"))
	fmt.Fprintf(w, "  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w, titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(w, "  %-14s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, titleStyle.Render("FLAGS"))
	visit := func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "[]" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintln(w, flagStyle.Render(output))
	}
	cmd.LocalFlags().VisitAll(visit)
	cmd.InheritedFlags().VisitAll(visit)
	fmt.Fprintln(w)
}
