package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/codegnosis/internal/analysis"
	"github.com/Sumatoshi-tech/codegnosis/internal/config"
	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/internal/render"
	"github.com/Sumatoshi-tech/codegnosis/internal/store"
)

// Output format selectors for the analyze and render surfaces.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// yamlIndent is the indent width for yaml result output.
const yamlIndent = 2

// progressPollInterval paces the progress readout on stderr.
const progressPollInterval = 500 * time.Millisecond

// persistWait bounds how long the command lingers for the background
// persistence phase after the result is already printed.
const persistWait = 30 * time.Second

// AnalyzeCommand holds the flags for the analyze command.
type AnalyzeCommand struct {
	app *App

	extensions     []string
	excluded       []string
	theme          string
	format         string
	timeoutSeconds int
	analyzerPath   string
	noColor        bool
	maxFiles       int
	graphPath      string
	noPersist      bool
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(app *App) *cobra.Command {
	cmd := &AnalyzeCommand{app: app}

	cobraCmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Run the analyzer against a project root",
		Long: `Run the external analyzer against a project root, classify the dependency
topology, print the report, and persist the analysis to the store.`,
		Args: cobra.ExactArgs(1),
		RunE: app.instrument("analyze", cmd.Run),
	}

	cobraCmd.Flags().StringSliceVarP(&cmd.extensions, "extensions", "e", nil, "file extensions to include (comma-separated)")
	cobraCmd.Flags().StringSliceVarP(&cmd.excluded, "excluded", "x", nil, "paths to exclude (comma-separated)")
	cobraCmd.Flags().StringVarP(&cmd.theme, "theme", "t", "", "display theme")
	cobraCmd.Flags().StringVarP(&cmd.format, "format", "f", formatText, "result output format: text, json, or yaml")
	cobraCmd.Flags().IntVar(&cmd.timeoutSeconds, "timeout", 0, "analyzer deadline in seconds (0 = configured default)")
	cobraCmd.Flags().StringVar(&cmd.analyzerPath, "analyzer", "", "analyzer executable path (overrides config)")
	cobraCmd.Flags().BoolVar(&cmd.noColor, "no-color", false, "disable colored output")
	cobraCmd.Flags().IntVar(&cmd.maxFiles, "max-files", 0, "limit file table rows (0 = all)")
	cobraCmd.Flags().StringVar(&cmd.graphPath, "graph", "", "write an HTML dependency graph to this path")
	cobraCmd.Flags().BoolVar(&cmd.noPersist, "no-persist", false, "skip persisting the analysis")

	return cobraCmd
}

// Run executes the analyze command.
func (c *AnalyzeCommand) Run(cmd *cobra.Command, args []string) error {
	switch c.format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown format %q: want text, json, or yaml", c.format)
	}

	var st *store.Store

	if !c.noPersist {
		opened, err := c.app.openStore()
		if err != nil {
			return err
		}

		defer func() { _ = opened.Close() }()

		st = opened
	}

	svc, err := c.app.newService(st, c.analyzerConfig())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	done := make(chan struct{})

	go pollProgress(ctx, svc, done)

	result, err := svc.Analyze(ctx, analysis.Request{
		RootPath:   args[0],
		Extensions: c.extensions,
		Excluded:   c.excluded,
		Theme:      c.theme,
	})

	close(done)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	outputErr := c.writeOutput(result)
	if outputErr != nil {
		return outputErr
	}

	if st != nil {
		waitForPersistence(svc)
	}

	return nil
}

// analyzerConfig applies the per-invocation flag overrides on top of the
// configured analyzer settings.
func (c *AnalyzeCommand) analyzerConfig() config.AnalyzerConfig {
	analyzer := c.app.cfg.Analyzer

	if c.analyzerPath != "" {
		analyzer.Path = c.analyzerPath
	}

	if c.timeoutSeconds > 0 {
		analyzer.TimeoutSeconds = c.timeoutSeconds
	}

	return analyzer
}

func (c *AnalyzeCommand) writeOutput(result *ingest.AnalysisResult) error {
	if c.graphPath != "" {
		graphErr := writeGraphFile(c.graphPath, result, c.app.cfg.Analyzer.Theme)
		if graphErr != nil {
			return graphErr
		}

		fmt.Fprintf(os.Stderr, "dependency graph written to %s\n", c.graphPath)
	}

	switch c.format {
	case formatJSON:
		return writeResultJSON(os.Stdout, result)
	case formatYAML:
		return writeResultYAML(os.Stdout, result)
	default:
		return render.Report(os.Stdout, result, render.Options{NoColor: c.noColor, MaxFiles: c.maxFiles})
	}
}

func writeResultJSON(w io.Writer, result *ingest.AnalysisResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(result)
	if encodeErr != nil {
		return fmt.Errorf("encode result: %w", encodeErr)
	}

	return nil
}

// writeResultYAML round-trips the result through its JSON form so the
// custom file-entry marshaling and raw analyzer blocks come out as plain
// yaml mappings instead of binary blobs.
func writeResultYAML(w io.Writer, result *ingest.AnalysisResult) error {
	blob, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return fmt.Errorf("encode result: %w", marshalErr)
	}

	var doc any

	unmarshalErr := json.Unmarshal(blob, &doc)
	if unmarshalErr != nil {
		return fmt.Errorf("encode result: %w", unmarshalErr)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(yamlIndent)

	encodeErr := encoder.Encode(doc)
	if encodeErr != nil {
		return fmt.Errorf("encode result as yaml: %w", encodeErr)
	}

	return encoder.Close()
}

// pollProgress mirrors the analyzer's progress file to stderr until the
// analysis completes.
func pollProgress(ctx context.Context, svc *analysis.Service, done <-chan struct{}) {
	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, ok, err := svc.Progress(ctx)
			if err != nil || !ok {
				continue
			}

			fmt.Fprintf(os.Stderr, "\r[%5.1f%%] %s: %s", snap.Percent, snap.Stage, snap.Message)
		}
	}
}

// waitForPersistence keeps the process alive until the background
// persistence phase reports, or the wait budget runs out. Failures are
// already logged by the service; they never change the exit code.
func waitForPersistence(svc *analysis.Service) {
	select {
	case <-svc.PersistErrs():
	case <-time.After(persistWait):
		fmt.Fprintln(os.Stderr, "warning: persistence still running at exit")
	}
}

func writeGraphFile(path string, result *ingest.AnalysisResult, theme string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create graph file: %w", err)
	}

	renderErr := render.GraphHTML(file, result, theme)
	closeErr := file.Close()

	if renderErr != nil {
		return renderErr
	}

	if closeErr != nil {
		return fmt.Errorf("close graph file: %w", closeErr)
	}

	return nil
}
