package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/internal/render"
	"github.com/Sumatoshi-tech/codegnosis/internal/topology"
)

// RenderCommand holds the flags for the render command.
type RenderCommand struct {
	app *App

	noColor   bool
	maxFiles  int
	graphPath string
}

// NewRenderCommand creates the render command. It re-renders the archived
// raw report of a stored project without re-running the analyzer.
func NewRenderCommand(app *App) *cobra.Command {
	cmd := &RenderCommand{app: app}

	cobraCmd := &cobra.Command{
		Use:   "render <root-path>",
		Short: "Re-render the stored analysis for a project root",
		Args:  cobra.ExactArgs(1),
		RunE:  app.instrument("render", cmd.Run),
	}

	cobraCmd.Flags().BoolVar(&cmd.noColor, "no-color", false, "disable colored output")
	cobraCmd.Flags().IntVar(&cmd.maxFiles, "max-files", 0, "limit file table rows (0 = all)")
	cobraCmd.Flags().StringVar(&cmd.graphPath, "graph", "", "write an HTML dependency graph to this path")

	return cobraCmd
}

// Run executes the render command.
func (c *RenderCommand) Run(_ *cobra.Command, args []string) error {
	result, err := c.loadStoredResult(args[0])
	if err != nil {
		return err
	}

	if c.graphPath != "" {
		graphErr := writeGraphFile(c.graphPath, result, c.app.cfg.Analyzer.Theme)
		if graphErr != nil {
			return graphErr
		}

		fmt.Fprintf(os.Stderr, "dependency graph written to %s\n", c.graphPath)
	}

	return render.Report(os.Stdout, result, render.Options{NoColor: c.noColor, MaxFiles: c.maxFiles})
}

// loadStoredResult replays the archived raw report through the same
// ingest and classification path a live run uses.
func (c *RenderCommand) loadStoredResult(rootPath string) (*ingest.AnalysisResult, error) {
	st, err := c.app.openStore()
	if err != nil {
		return nil, err
	}

	defer func() { _ = st.Close() }()

	project, err := st.ProjectByRoot(rootPath)
	if err != nil {
		return nil, fmt.Errorf("lookup project for %q: %w", rootPath, err)
	}

	raw, err := st.RawReport(project.ID)
	if err != nil {
		return nil, fmt.Errorf("load raw report for %s: %w", project.ID, err)
	}

	result, err := ingest.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse stored report: %w", err)
	}

	topology.Annotate(result)

	return result, nil
}
