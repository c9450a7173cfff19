package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewProjectsCommand creates the projects command group: list by default,
// with an explicit delete subcommand.
func NewProjectsCommand(app *App) *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "projects",
		Short: "List stored project analyses",
		Args:  cobra.NoArgs,
		RunE: app.instrument("projects.list", func(_ *cobra.Command, _ []string) error {
			return listProjects(app)
		}),
	}

	cobraCmd.AddCommand(&cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a stored project analysis",
		Args:  cobra.ExactArgs(1),
		RunE: app.instrument("projects.delete", func(_ *cobra.Command, args []string) error {
			return deleteProject(app, args[0])
		}),
	})

	return cobraCmd
}

func listProjects(app *App) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	projects, err := st.Projects()
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Fprintln(os.Stdout, "no stored analyses")

		return nil
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(os.Stdout)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"ID", "Name", "Root", "Analyzed", "Files"})

	for _, project := range projects {
		tbl.AppendRow(table.Row{
			project.ID, project.Name, project.RootPath, project.AnalyzedAt, project.FileCount,
		})
	}

	tbl.Render()

	return nil
}

func deleteProject(app *App, id string) error {
	st, err := app.openStore()
	if err != nil {
		return err
	}

	defer func() { _ = st.Close() }()

	deleteErr := st.DeleteProject(id)
	if deleteErr != nil {
		return fmt.Errorf("delete project %s: %w", id, deleteErr)
	}

	fmt.Fprintf(os.Stdout, "deleted project %s\n", id)

	return nil
}
