// Package commands wires the codegnosis command tree: analysis, stored
// project management, full-text search, and report rendering.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codegnosis/internal/analysis"
	"github.com/Sumatoshi-tech/codegnosis/internal/config"
	"github.com/Sumatoshi-tech/codegnosis/internal/observability"
	"github.com/Sumatoshi-tech/codegnosis/internal/store"
	"github.com/Sumatoshi-tech/codegnosis/pkg/version"
)

// shutdownTimeout bounds telemetry flush on exit.
const shutdownTimeout = 5 * time.Second

// App holds the state shared by every command: loaded configuration and
// initialized telemetry providers.
type App struct {
	configPath string

	cfg         *config.Config
	providers   observability.Providers
	red         *observability.REDMetrics
	diagnostics *observability.DiagnosticsServer
}

// NewRootCommand builds the codegnosis root command with all subcommands.
func NewRootCommand() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "codegnosis",
		Short: "Codegnosis - dependency topology analysis",
		Long: `Codegnosis runs an external code analyzer under a deadline, classifies the
resulting dependency topology, and persists analyses into a searchable store.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  app.setup,
		PersistentPostRunE: app.teardown,
	}

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file path (default: .codegnosis.yaml in CWD or $HOME)")

	rootCmd.AddCommand(
		NewAnalyzeCommand(app),
		NewProjectsCommand(app),
		NewSearchCommand(app),
		NewRenderCommand(app),
		newVersionCommand(),
	)

	return rootCmd
}

func (a *App) setup(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	a.cfg = cfg

	providers, err := observability.Init(cfg.Observability(version.Version))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	a.providers = providers
	slog.SetDefault(providers.Logger)

	red, redErr := observability.NewREDMetrics(providers.Meter)
	if redErr != nil {
		return fmt.Errorf("create request metrics: %w", redErr)
	}

	a.red = red

	if cfg.Diagnostics.Enabled {
		diag, diagErr := observability.NewDiagnosticsServer(cfg.Diagnostics.Addr)
		if diagErr != nil {
			return fmt.Errorf("start diagnostics server: %w", diagErr)
		}

		a.diagnostics = diag
	}

	return nil
}

func (a *App) teardown(_ *cobra.Command, _ []string) error {
	if a.diagnostics != nil {
		closeErr := a.diagnostics.Close()
		if closeErr != nil {
			slog.Warn("diagnostics shutdown failed", "error", closeErr)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := a.providers.Shutdown(ctx)
	if shutdownErr != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", shutdownErr)
	}

	return nil
}

// openStore opens the configured SQLite store.
func (a *App) openStore() (*store.Store, error) {
	st, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", a.cfg.Store.Path, err)
	}

	return st, nil
}

// newService builds the analysis service with the app's telemetry wired in.
// The analyzer config is passed explicitly so flags can override the file
// defaults. A nil store disables persistence.
func (a *App) newService(st *store.Store, analyzer config.AnalyzerConfig) (*analysis.Service, error) {
	metrics, err := observability.NewRunMetrics(a.providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create run metrics: %w", err)
	}

	return analysis.NewService(analysis.Options{
		Analyzer: analyzer,
		Store:    st,
		Logger:   a.providers.Logger,
		Tracer:   a.providers.Tracer,
		Metrics:  metrics,
	}), nil
}

// instrument wraps a command handler with request metrics so every CLI
// operation lands in the rate, error, and duration series.
func (a *App) instrument(op string, run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		release := a.red.TrackInflight(ctx, op)
		defer release()

		started := time.Now()

		runErr := run(cmd, args)

		status := observability.StatusOK
		if runErr != nil {
			status = observability.StatusError
		}

		a.red.RecordRequest(ctx, op, status, time.Since(started))

		return runErr
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "codegnosis %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
