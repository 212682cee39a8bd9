package graph

import (
	"fmt"
	"io"
	"strings"
)

// Visualizer provides methods to visualize the dependency graph
type Visualizer[K Key] struct {
	graph *DependencyGraph[K]
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer[K Key](graph *DependencyGraph[K]) *Visualizer[K] {
	return &Visualizer[K]{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format
func (v *Visualizer[K]) WriteDOT(w io.Writer) error {
	v.graph.mu.RLock()
	defer v.graph.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	keys := v.graph.sortedKeys()
	nodeIDs := make(map[K]string, len(keys))
	for i, key := range keys {
		nodeID := fmt.Sprintf("n%d", i)
		nodeIDs[key] = nodeID

		node := v.graph.nodes[key]
		fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q, style=filled];\n",
			nodeID, v.formatNodeLabel(node), nodeColor(node.Label))
	}

	for _, from := range keys {
		for _, to := range v.graph.edges[from] {
			fmt.Fprintf(&b, "  %s -> %s;\n", nodeIDs[from], nodeIDs[to])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes a text representation of the graph
func (v *Visualizer[K]) WriteText(w io.Writer) error {
	v.graph.mu.RLock()
	defer v.graph.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Dependency Graph:\n")
	b.WriteString("=================\n\n")

	for _, key := range v.graph.sortedKeys() {
		v.writeNodeDetails(&b, v.graph.nodes[key], "  ")
	}
	b.WriteString("\n")

	v.writeStatistics(&b)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteAdjacencyList writes the graph as an adjacency list
func (v *Visualizer[K]) WriteAdjacencyList(w io.Writer) error {
	v.graph.mu.RLock()
	defer v.graph.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Adjacency List:\n")
	b.WriteString("===============\n\n")

	for _, from := range v.graph.sortedKeys() {
		tos := v.graph.edges[from]
		toStrs := make([]string, len(tos))
		for i, to := range tos {
			toStrs[i] = to.String()
		}
		fmt.Fprintf(&b, "%s -> [%s]\n", from.String(), strings.Join(toStrs, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatNodeLabel creates a label for a node
func (v *Visualizer[K]) formatNodeLabel(node *Node[K]) string {
	if node.Label != "" {
		return fmt.Sprintf("%s\n[%s]", node.Key, node.Label)
	}
	return node.Key.String()
}

// nodeColor determines the color for a node based on its label
func nodeColor(label string) string {
	switch label {
	case "Singleton":
		return "lightblue"
	case "WeakSingleton":
		return "lightcyan"
	case "Graph":
		return "lightgreen"
	case "Transient":
		return "lightyellow"
	default:
		return "lightgray"
	}
}

// writeNodeDetails writes detailed information about a node
func (v *Visualizer[K]) writeNodeDetails(b *strings.Builder, node *Node[K], indent string) {
	fmt.Fprintf(b, "%s%s\n", indent, node.Key.String())

	if node.Label != "" {
		fmt.Fprintf(b, "%s  Lifetime: %s\n", indent, node.Label)
	}

	if len(node.Dependencies) > 0 {
		fmt.Fprintf(b, "%s  Dependencies: [%s]\n", indent, joinKeys(node.Dependencies))
	}

	if len(node.Dependents) > 0 {
		fmt.Fprintf(b, "%s  Dependents: [%s]\n", indent, joinKeys(node.Dependents))
	}
}

// writeStatistics writes graph statistics. Callers hold the read lock.
func (v *Visualizer[K]) writeStatistics(b *strings.Builder) {
	b.WriteString("Statistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(b, "  Total nodes: %d\n", len(v.graph.nodes))
	fmt.Fprintf(b, "  Total edges: %d\n", v.graph.countEdges())

	entries, leaves := 0, 0
	for _, node := range v.graph.nodes {
		if node.OutDegree == 0 {
			entries++
		}
		if node.InDegree == 0 {
			leaves++
		}
	}

	fmt.Fprintf(b, "  Entry points (no dependents): %d\n", entries)
	fmt.Fprintf(b, "  Leaf nodes (no dependencies): %d\n", leaves)

	if cycle := v.graph.findCycle(); len(cycle) > 0 {
		fmt.Fprintf(b, "  Cycles: resolved through the in-flight cache (%s -> %s)\n",
			joinArrow(cycle), cycle[0].String())
	} else {
		b.WriteString("  Cycles: None (graph is acyclic)\n")
	}
}

func joinKeys[K Key](keys []K) string {
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = k.String()
	}
	return strings.Join(strs, ", ")
}

func joinArrow[K Key](keys []K) string {
	strs := make([]string, len(keys))
	for i, k := range keys {
		strs[i] = k.String()
	}
	return strings.Join(strs, " -> ")
}
