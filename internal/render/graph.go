package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/codegnosis/internal/ingest"
	"github.com/Sumatoshi-tech/codegnosis/pkg/depgraph"
)

const (
	graphPageWidth  = "1280px"
	graphPageHeight = "800px"

	nodeSizeBase = 8
	nodeSizeStep = 2
	nodeSizeMax  = 40

	forceRepulsion = 120

	cycleColor = "#e74c3c"
)

// graphCategories orders the legend entries; node category indexes point
// into this list.
var graphCategories = []string{"Taut", "Drift", "Fracture", "Silence"}

// GraphHTML writes a self-contained HTML page with a force-directed
// dependency graph. Nodes are grouped by classifier state, sized by fan-in,
// and members of detected cycles are drawn in the alarm color even when
// the analyzer did not report them as fractured.
func GraphHTML(w io.Writer, result *ingest.AnalysisResult, theme string) error {
	graph := charts.NewGraph()

	initOpts := opts.Initialization{
		Width:     graphPageWidth,
		Height:    graphPageHeight,
		PageTitle: result.ProjectName + " dependency graph",
	}

	if theme == "dark" {
		initOpts.Theme = "dark"
	}

	graph.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{
			Title:    result.ProjectName,
			Subtitle: fmt.Sprintf("%d files, generated %s", len(result.Files), result.GeneratedAt),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	nodes, links := graphSeries(result)

	graph.AddSeries("dependencies", nodes, links,
		charts.WithGraphChartOpts(opts.GraphChart{
			Layout:             "force",
			Force:              &opts.GraphForce{Repulsion: forceRepulsion},
			Roam:               opts.Bool(true),
			FocusNodeAdjacency: opts.Bool(true),
			Categories:         categories(),
		}))

	err := graph.Render(w)
	if err != nil {
		return fmt.Errorf("render graph page: %w", err)
	}

	return nil
}

func categories() []*opts.GraphCategory {
	out := make([]*opts.GraphCategory, len(graphCategories))
	for i, name := range graphCategories {
		out[i] = &opts.GraphCategory{Name: name}
	}

	return out
}

func graphSeries(result *ingest.AnalysisResult) ([]opts.GraphNode, []opts.GraphLink) {
	degrees := depgraph.DegreesOf(result.DependencyGraph)
	inCycle := cycleMembers(result.DependencyGraph)

	nodes := make([]opts.GraphNode, 0, len(result.Files))

	for _, name := range result.FileNames() {
		node := opts.GraphNode{
			Name:       name,
			SymbolSize: nodeSize(degrees.Inbound[name]),
			Category:   categoryIndex(result.Files[name]),
		}

		if inCycle[name] {
			node.ItemStyle = &opts.ItemStyle{Color: cycleColor}
		}

		nodes = append(nodes, node)
	}

	var links []opts.GraphLink

	for source, targets := range result.DependencyGraph {
		for _, target := range targets {
			links = append(links, opts.GraphLink{Source: source, Target: target})
		}
	}

	return nodes, links
}

// cycleMembers flattens detected cycles into a lookup set. Display only;
// the classifier's fracture set comes from the analyzer's reported cycles.
func cycleMembers(adjacency map[string][]string) map[string]bool {
	members := make(map[string]bool)

	for _, cycle := range depgraph.New(adjacency).Cycles() {
		for _, name := range cycle {
			members[name] = true
		}
	}

	return members
}

func nodeSize(inbound int) int {
	size := nodeSizeBase + nodeSizeStep*inbound
	if size > nodeSizeMax {
		size = nodeSizeMax
	}

	return size
}

func categoryIndex(info *ingest.FileInfo) int {
	if info == nil || info.Classification == nil {
		return 0
	}

	for i, name := range graphCategories {
		if name == info.Classification.State {
			return i
		}
	}

	return 0
}
