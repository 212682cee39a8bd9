// Package graph records the dependency relationships observed while an
// environment resolves accessors. Unlike a registration-time graph it may
// legitimately contain cycles, which it reports but never rejects.
package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Key is the node identity used by the graph.
type Key interface {
	comparable
	fmt.Stringer
}

// DependencyGraph manages the dependency relationships between accessors.
// Edges point from a dependent to the dependency it requested.
type DependencyGraph[K Key] struct {
	mu    sync.RWMutex
	nodes map[K]*Node[K]
	edges map[K][]K // adjacency list representation
}

// Node represents an accessor in the dependency graph
type Node[K Key] struct {
	Key K

	// Label is a free-form annotation, the lifetime for weave environments.
	Label string

	// Graph metadata
	InDegree  int // number of dependencies
	OutDegree int // number of dependents

	// Dependency information
	Dependencies []K // accessors this node depends on
	Dependents   []K // accessors that depend on this node
}

// New creates a new dependency graph
func New[K Key]() *DependencyGraph[K] {
	return &DependencyGraph[K]{
		nodes: make(map[K]*Node[K]),
		edges: make(map[K][]K),
	}
}

// node returns the node for key, creating it when missing. Callers hold mu.
func (g *DependencyGraph[K]) node(key K) *Node[K] {
	n, exists := g.nodes[key]
	if !exists {
		n = &Node[K]{
			Key:          key,
			Dependencies: make([]K, 0),
			Dependents:   make([]K, 0),
		}
		g.nodes[key] = n
	}
	return n
}

// AddNode ensures key is present in the graph.
func (g *DependencyGraph[K]) AddNode(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.node(key)
}

// SetLabel annotates the node for key, adding it if needed.
func (g *DependencyGraph[K]) SetLabel(key K, label string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.node(key).Label = label
}

// AddEdge records that from depends on to. Repeated edges are ignored.
func (g *DependencyGraph[K]) AddEdge(from, to K) {
	g.mu.Lock()
	defer g.mu.Unlock()

	source := g.node(from)
	target := g.node(to)

	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}

	g.edges[from] = append(g.edges[from], to)
	source.Dependencies = append(source.Dependencies, to)
	source.InDegree++
	target.Dependents = append(target.Dependents, from)
	target.OutDegree++
}

// GetDependencies returns the direct dependencies of key
func (g *DependencyGraph[K]) GetDependencies(key K) []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if n, exists := g.nodes[key]; exists {
		return append([]K(nil), n.Dependencies...)
	}
	return nil
}

// GetDependents returns the accessors that depend on key
func (g *DependencyGraph[K]) GetDependents(key K) []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if n, exists := g.nodes[key]; exists {
		return append([]K(nil), n.Dependents...)
	}
	return nil
}

// GetTransitiveDependencies returns every accessor reachable from key,
// in breadth-first order. key itself is included only when it is part of
// a cycle.
func (g *DependencyGraph[K]) GetTransitiveDependencies(key K) []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[K]bool)
	var result []K

	queue := append([]K(nil), g.edges[key]...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true
		result = append(result, current)
		queue = append(queue, g.edges[current]...)
	}

	return result
}

// GetNode returns a copy of the node for key
func (g *DependencyGraph[K]) GetNode(key K) (Node[K], bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, exists := g.nodes[key]
	if !exists {
		return Node[K]{}, false
	}
	return n.clone(), true
}

// HasNode checks whether key is present
func (g *DependencyGraph[K]) HasNode(key K) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, exists := g.nodes[key]
	return exists
}

// Keys returns all node keys sorted by their string form
func (g *DependencyGraph[K]) Keys() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sortedKeys()
}

// sortedKeys returns node keys in a stable order. Callers hold mu.
func (g *DependencyGraph[K]) sortedKeys() []K {
	keys := make([]K, 0, len(g.nodes))
	for key := range g.nodes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Clear removes all nodes and edges
func (g *DependencyGraph[K]) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[K]*Node[K])
	g.edges = make(map[K][]K)
}

// Size returns the number of nodes
func (g *DependencyGraph[K]) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *DependencyGraph[K]) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.countEdges()
}

func (g *DependencyGraph[K]) countEdges() int {
	count := 0
	for _, edges := range g.edges {
		count += len(edges)
	}
	return count
}

// GetRoots returns the keys nothing depends on, the entry points of passes
func (g *DependencyGraph[K]) GetRoots() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var roots []K
	for _, key := range g.sortedKeys() {
		if g.nodes[key].OutDegree == 0 {
			roots = append(roots, key)
		}
	}
	return roots
}

// GetLeaves returns the keys without dependencies
func (g *DependencyGraph[K]) GetLeaves() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var leaves []K
	for _, key := range g.sortedKeys() {
		if g.nodes[key].InDegree == 0 {
			leaves = append(leaves, key)
		}
	}
	return leaves
}

// IsAcyclic reports whether the graph contains no cycle
func (g *DependencyGraph[K]) IsAcyclic() bool {
	return len(g.FindCycle()) == 0
}

// FindCycle returns the nodes of one cycle in dependency order, or nil.
// The search starts from keys in sorted order so the result is stable.
func (g *DependencyGraph[K]) FindCycle() []K {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.findCycle()
}

func (g *DependencyGraph[K]) findCycle() []K {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[K]int, len(g.nodes))
	var path []K

	var visit func(key K) []K
	visit = func(key K) []K {
		state[key] = visiting
		path = append(path, key)

		for _, next := range g.edges[key] {
			switch state[next] {
			case visiting:
				for i, k := range path {
					if k == next {
						return append([]K(nil), path[i:]...)
					}
				}
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		state[key] = done
		return nil
	}

	for _, key := range g.sortedKeys() {
		if state[key] == unvisited {
			if cycle := visit(key); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// Clone returns an independent copy of the graph
func (g *DependencyGraph[K]) Clone() *DependencyGraph[K] {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := New[K]()
	for key, n := range g.nodes {
		c := n.clone()
		out.nodes[key] = &c
	}
	for key, edges := range g.edges {
		out.edges[key] = append([]K(nil), edges...)
	}
	return out
}

func (n *Node[K]) clone() Node[K] {
	c := *n
	c.Dependencies = append(make([]K, 0, len(n.Dependencies)), n.Dependencies...)
	c.Dependents = append(make([]K, 0, len(n.Dependents)), n.Dependents...)
	return c
}

// String returns a short description of the node
func (n *Node[K]) String() string {
	return fmt.Sprintf("%s (deps: %d, dependents: %d)", n.Key, n.InDegree, n.OutDegree)
}
