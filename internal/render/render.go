// Package render formats classified analysis results for the terminal and
// as a standalone HTML dependency-graph page.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/pkg/depgraph"
	"github.com/Sumatoshi-tech/codegnosis/pkg/units"
)

// Options controls terminal report formatting.
type Options struct {
	// NoColor disables ANSI color output.
	NoColor bool

	// MaxFiles truncates the file table; zero shows every file.
	MaxFiles int
}

// Report writes a human-readable summary of the result: header, file
// classification table, health warnings, and glossary.
func Report(w io.Writer, result *ingest.AnalysisResult, options Options) error {
	sprint := colorizer(options.NoColor)

	fmt.Fprintf(w, "%s\n", sprint(color.Bold, result.ProjectName))
	fmt.Fprintf(w, "generated %s | %d files | %d cycles | %d warnings\n\n",
		result.GeneratedAt, len(result.Files), len(result.Cycles), len(result.HealthWarnings))

	writeFileTable(w, result, options, sprint)
	writeWarnings(w, result)
	writeGlossary(w, result)

	return nil
}

// sprintFunc colors text with the given attribute unless colors are off.
type sprintFunc func(attr color.Attribute, text string) string

func colorizer(noColor bool) sprintFunc {
	if noColor {
		return func(_ color.Attribute, text string) string { return text }
	}

	return func(attr color.Attribute, text string) string {
		return color.New(attr).Sprint(text)
	}
}

// stateColors maps classifier states to terminal colors. Fracture is the
// only alarming state; Silence is stable, not a problem.
var stateColors = map[string]color.Attribute{
	"Taut":     color.FgGreen,
	"Drift":    color.FgYellow,
	"Fracture": color.FgRed,
	"Silence":  color.FgBlue,
}

var roleColors = map[string]color.Attribute{
	"Hub":   color.FgCyan,
	"Titan": color.FgMagenta,
}

func writeFileTable(w io.Writer, result *ingest.AnalysisResult, options Options, sprint sprintFunc) {
	degrees := depgraph.DegreesOf(result.DependencyGraph)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"File", "Category", "Role", "State", "Gravity", "Intent", "In", "Out", "Size", "Lines"})

	names := result.FileNames()
	shown := len(names)

	if options.MaxFiles > 0 && shown > options.MaxFiles {
		shown = options.MaxFiles
	}

	for _, name := range names[:shown] {
		info := result.Files[name]
		tbl.AppendRow(fileRow(name, info, degrees, sprint))
	}

	if shown < len(names) {
		tbl.AppendFooter(table.Row{fmt.Sprintf("… %d more files", len(names)-shown)})
	}

	tbl.Render()
	fmt.Fprintln(w)
}

func fileRow(name string, info *ingest.FileInfo, degrees depgraph.Degrees, sprint sprintFunc) table.Row {
	role, state, gravity, intent := "", "", "", ""

	if tag := info.Classification; tag != nil {
		role, state, gravity, intent = tag.Role, tag.State, tag.Gravity, tag.Intent

		if attr, ok := roleColors[role]; ok {
			role = sprint(attr, role)
		}

		if attr, ok := stateColors[state]; ok {
			state = sprint(attr, state)
		}
	}

	return table.Row{
		name, info.Category, role, state, gravity, intent,
		degrees.Inbound[name], degrees.Outbound[name],
		sizeLabel(info.Size), info.Lines,
	}
}

// sizeLabel renders a parseable descriptor as a 1024-based human size and
// falls back to the raw text for anything else.
func sizeLabel(descriptor string) string {
	if descriptor == "" {
		return "-"
	}

	parsed := units.ParseDescriptor(descriptor)
	if parsed == 0 {
		return descriptor
	}

	return humanize.IBytes(uint64(parsed))
}

func writeWarnings(w io.Writer, result *ingest.AnalysisResult) {
	if len(result.HealthWarnings) == 0 {
		return
	}

	fmt.Fprintln(w, "Health warnings:")

	for _, warning := range result.HealthWarnings {
		fmt.Fprintf(w, "  - %s\n", warningText(warning))
	}

	fmt.Fprintln(w)
}

// warningText unwraps plain-string warnings; structured ones stay as
// compact JSON since their shape belongs to the analyzer.
func warningText(raw json.RawMessage) string {
	var text string

	err := json.Unmarshal(raw, &text)
	if err == nil {
		return text
	}

	return string(raw)
}

func writeGlossary(w io.Writer, result *ingest.AnalysisResult) {
	if len(result.Glossary) == 0 {
		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Term", "Meaning"})

	for _, term := range sortedKeys(result.Glossary) {
		tbl.AppendRow(table.Row{term, result.Glossary[term]})
	}

	tbl.Render()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
