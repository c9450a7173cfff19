package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// defaultSearchLimit caps result rows unless overridden.
const defaultSearchLimit = 20

// SearchCommand holds the flags for the search command.
type SearchCommand struct {
	app *App

	limit int
}

// NewSearchCommand creates the search command.
func NewSearchCommand(app *App) *cobra.Command {
	cmd := &SearchCommand{app: app}

	cobraCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over stored file contents",
		Args:  cobra.ExactArgs(1),
		RunE:  app.instrument("search", cmd.Run),
	}

	cobraCmd.Flags().IntVarP(&cmd.limit, "limit", "n", defaultSearchLimit, "maximum number of hits")

	return cobraCmd
}

// Run executes the search command.
func (c *SearchCommand) Run(_ *cobra.Command, args []string) error {
	st, err := c.app.openStore()
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	hits, err := st.Search(args[0], c.limit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(hits) == 0 {
		fmt.Fprintln(os.Stdout, "no matches")

		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Project", "File", "Category", "Snippet"})

	for _, hit := range hits {
		tbl.AppendRow(table.Row{hit.ProjectID, hit.RelPath, hit.Category, hit.Snippet})
	}

	tbl.Render()

	return nil
}
