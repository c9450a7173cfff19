// Package depgraph provides the directed file-dependency graph used by the
// topology annotator and the graph view. Node names are interned to integer
// IDs so degree counting stays O(E+V) regardless of identifier length.
package depgraph

import "sort"

// Degrees holds afferent (inbound) and efferent (outbound) edge counts per
// file identifier. Identifiers that never appear in the adjacency map have
// zero counts.
type Degrees struct {
	Inbound  map[string]int
	Outbound map[string]int
}

// DegreesOf computes coupling counts for an adjacency list in a single pass:
// outbound[source] is the length of its target list, and every occurrence of
// a target increments inbound[target]. Duplicate targets count twice, which
// matches the analyzer's edge-list semantics.
func DegreesOf(adjacency map[string][]string) Degrees {
	deg := Degrees{
		Inbound:  make(map[string]int, len(adjacency)),
		Outbound: make(map[string]int, len(adjacency)),
	}

	for source, targets := range adjacency {
		deg.Outbound[source] = len(targets)

		for _, target := range targets {
			deg.Inbound[target]++
		}
	}

	return deg
}

// Graph is a directed graph over interned string nodes.
type Graph struct {
	strToID map[string]int
	idToStr []string
	nodes   [][]int
}

// New builds a Graph from an adjacency list.
func New(adjacency map[string][]string) *Graph {
	g := &Graph{strToID: make(map[string]int, len(adjacency))}

	// Deterministic node numbering keeps cycle output stable across runs.
	sources := make([]string, 0, len(adjacency))
	for source := range adjacency {
		sources = append(sources, source)
	}

	sort.Strings(sources)

	for _, source := range sources {
		u := g.intern(source)

		for _, target := range adjacency[source] {
			v := g.intern(target)
			g.nodes[u] = append(g.nodes[u], v)
		}
	}

	return g
}

// Len returns the number of distinct nodes.
func (g *Graph) Len() int {
	return len(g.idToStr)
}

func (g *Graph) intern(name string) int {
	if id, ok := g.strToID[name]; ok {
		return id
	}

	id := len(g.idToStr)
	g.strToID[name] = id
	g.idToStr = append(g.idToStr, name)
	g.nodes = append(g.nodes, nil)

	return id
}

// Cycles returns every strongly connected component with more than one node,
// plus single nodes with a self edge, as sorted member lists. This is display
// metadata for the graph view; the fracture set always comes from the cycles
// the analyzer reported.
func (g *Graph) Cycles() [][]string {
	components := g.stronglyConnected()

	var cycles [][]string

	for _, comp := range components {
		if len(comp) == 1 && !g.hasSelfEdge(comp[0]) {
			continue
		}

		members := make([]string, len(comp))
		for i, id := range comp {
			members[i] = g.idToStr[id]
		}

		sort.Strings(members)
		cycles = append(cycles, members)
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})

	return cycles
}

func (g *Graph) hasSelfEdge(id int) bool {
	for _, v := range g.nodes[id] {
		if v == id {
			return true
		}
	}

	return false
}

// stronglyConnected runs an iterative Tarjan SCC over the graph.
func (g *Graph) stronglyConnected() [][]int {
	n := len(g.nodes)

	const unvisited = -1

	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)

	for i := range index {
		index[i] = unvisited
	}

	var (
		counter    int
		stack      []int
		components [][]int
	)

	type frame struct {
		node int
		edge int
	}

	for start := 0; start < n; start++ {
		if index[start] != unvisited {
			continue
		}

		callStack := []frame{{node: start}}
		index[start] = counter
		lowlink[start] = counter
		counter++

		stack = append(stack, start)
		onStack[start] = true

		for len(callStack) > 0 {
			top := &callStack[len(callStack)-1]
			u := top.node

			if top.edge < len(g.nodes[u]) {
				v := g.nodes[u][top.edge]
				top.edge++

				if index[v] == unvisited {
					index[v] = counter
					lowlink[v] = counter
					counter++

					stack = append(stack, v)
					onStack[v] = true

					callStack = append(callStack, frame{node: v})
				} else if onStack[v] && index[v] < lowlink[u] {
					lowlink[u] = index[v]
				}

				continue
			}

			callStack = callStack[:len(callStack)-1]

			if len(callStack) > 0 {
				parent := callStack[len(callStack)-1].node
				if lowlink[u] < lowlink[parent] {
					lowlink[parent] = lowlink[u]
				}
			}

			if lowlink[u] == index[u] {
				var comp []int

				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)

					if w == u {
						break
					}
				}

				components = append(components, comp)
			}
		}
	}

	return components
}
