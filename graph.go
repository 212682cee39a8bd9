package weave

import (
	"io"

	"github.com/junioryono/weave/internal/graph"
)

// GraphSnapshot is a copy of the dependency relationships an Environment
// observed while resolving. Edges point from a dependent accessor to the
// accessor it requested. Cycles are legal and reported, not rejected.
type GraphSnapshot struct {
	g *graph.DependencyGraph[Key]
}

// Graph returns a snapshot of the recorded dependency graph. The snapshot is
// empty when recording was disabled with WithGraphRecording(false).
func (env *Environment) Graph() *GraphSnapshot {
	if env.graph == nil {
		return &GraphSnapshot{g: graph.New[Key]()}
	}
	return &GraphSnapshot{g: env.graph.Clone()}
}

// ResetGraph forgets every recorded edge and lifetime.
func (env *Environment) ResetGraph() {
	if env.graph != nil {
		env.graph.Clear()
	}
}

// Len returns the number of recorded accessors.
func (s *GraphSnapshot) Len() int {
	return s.g.Size()
}

// EdgeCount returns the number of recorded requests between accessors.
func (s *GraphSnapshot) EdgeCount() int {
	return s.g.EdgeCount()
}

// Contains reports whether key was resolved at least once.
func (s *GraphSnapshot) Contains(key Key) bool {
	return s.g.HasNode(key)
}

// Keys returns every recorded accessor, sorted by name.
func (s *GraphSnapshot) Keys() []Key {
	return s.g.Keys()
}

// Dependencies returns the accessors key requested.
func (s *GraphSnapshot) Dependencies(key Key) []Key {
	return s.g.GetDependencies(key)
}

// Dependents returns the accessors that requested key.
func (s *GraphSnapshot) Dependents(key Key) []Key {
	return s.g.GetDependents(key)
}

// TransitiveDependencies returns every accessor reachable from key.
func (s *GraphSnapshot) TransitiveDependencies(key Key) []Key {
	return s.g.GetTransitiveDependencies(key)
}

// Lifetime returns the lifetime key was last constructed with.
func (s *GraphSnapshot) Lifetime(key Key) (Lifetime, bool) {
	node, ok := s.g.GetNode(key)
	if !ok || node.Label == "" {
		return Graph, false
	}

	var l Lifetime
	if err := l.UnmarshalText([]byte(node.Label)); err != nil {
		return Graph, false
	}
	return l, true
}

// Cycle returns the accessors of one recorded cycle in dependency order,
// or nil when the graph is acyclic.
func (s *GraphSnapshot) Cycle() []Key {
	return s.g.FindCycle()
}

// EntryPoints returns the accessors no other accessor requested.
func (s *GraphSnapshot) EntryPoints() []Key {
	return s.g.GetRoots()
}

// Leaves returns the accessors that requested nothing.
func (s *GraphSnapshot) Leaves() []Key {
	return s.g.GetLeaves()
}

// WriteDOT writes the graph in Graphviz DOT format.
func (s *GraphSnapshot) WriteDOT(w io.Writer) error {
	return graph.NewVisualizer(s.g).WriteDOT(w)
}

// WriteText writes a readable listing of the graph with statistics.
func (s *GraphSnapshot) WriteText(w io.Writer) error {
	return graph.NewVisualizer(s.g).WriteText(w)
}

// WriteAdjacencyList writes one "key -> [dependencies]" line per accessor.
func (s *GraphSnapshot) WriteAdjacencyList(w io.Writer) error {
	return graph.NewVisualizer(s.g).WriteAdjacencyList(w)
}
