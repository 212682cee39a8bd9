package graph

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testKey string

func (k testKey) String() string { return string(k) }

func TestDependencyGraph_AddEdge(t *testing.T) {
	g := New[testKey]()

	g.AddEdge("service", "repository")
	g.AddEdge("service", "logger")
	g.AddEdge("service", "repository")

	assert.Equal(t, 3, g.Size())
	assert.Equal(t, 2, g.EdgeCount(), "duplicate edges are ignored")
	assert.Equal(t, []testKey{"repository", "logger"}, g.GetDependencies("service"))
	assert.Equal(t, []testKey{"service"}, g.GetDependents("logger"))
	assert.Nil(t, g.GetDependencies("missing"))

	node, ok := g.GetNode("service")
	require.True(t, ok)
	assert.Equal(t, 2, node.InDegree)
	assert.Equal(t, 0, node.OutDegree)
	assert.Equal(t, "service (deps: 2, dependents: 0)", node.String())
}

func TestDependencyGraph_Nodes(t *testing.T) {
	g := New[testKey]()

	g.AddNode("b")
	g.AddNode("a")
	g.SetLabel("c", "Singleton")

	assert.True(t, g.HasNode("a"))
	assert.False(t, g.HasNode("z"))
	assert.Equal(t, []testKey{"a", "b", "c"}, g.Keys())

	node, ok := g.GetNode("c")
	require.True(t, ok)
	assert.Equal(t, "Singleton", node.Label)

	node.Dependencies = append(node.Dependencies, "mutated")
	assert.Empty(t, g.GetDependencies("c"), "GetNode returns a copy")

	g.Clear()
	assert.Equal(t, 0, g.Size())
}

func TestDependencyGraph_RootsAndLeaves(t *testing.T) {
	g := New[testKey]()
	g.AddEdge("handler", "service")
	g.AddEdge("service", "repository")
	g.AddEdge("worker", "repository")

	assert.Equal(t, []testKey{"handler", "worker"}, g.GetRoots())
	assert.Equal(t, []testKey{"repository"}, g.GetLeaves())
	assert.Equal(t, []testKey{"service", "repository"}, g.GetTransitiveDependencies("handler"))
}

func TestDependencyGraph_Cycles(t *testing.T) {
	t.Run("acyclic", func(t *testing.T) {
		g := New[testKey]()
		g.AddEdge("a", "b")
		g.AddEdge("b", "c")

		assert.True(t, g.IsAcyclic())
		assert.Nil(t, g.FindCycle())
	})

	t.Run("two node cycle", func(t *testing.T) {
		g := New[testKey]()
		g.AddEdge("parent", "child")
		g.AddEdge("child", "parent")

		assert.False(t, g.IsAcyclic())
		assert.Equal(t, []testKey{"child", "parent"}, g.FindCycle())
		assert.Contains(t, g.GetTransitiveDependencies("parent"), testKey("parent"))
	})

	t.Run("self reference", func(t *testing.T) {
		g := New[testKey]()
		g.AddEdge("node", "node")

		assert.Equal(t, []testKey{"node"}, g.FindCycle())
	})

	t.Run("cycle behind a prefix", func(t *testing.T) {
		g := New[testKey]()
		g.AddEdge("a", "b")
		g.AddEdge("b", "c")
		g.AddEdge("c", "b")

		assert.Equal(t, []testKey{"b", "c"}, g.FindCycle())
	})
}

func TestDependencyGraph_Clone(t *testing.T) {
	g := New[testKey]()
	g.AddEdge("a", "b")

	clone := g.Clone()
	g.AddEdge("b", "c")

	assert.Equal(t, 2, clone.Size())
	assert.Equal(t, 1, clone.EdgeCount())
	assert.Equal(t, 3, g.Size())
}

func TestDependencyGraph_ConcurrentOperations(t *testing.T) {
	g := New[testKey]()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i > 0 {
				g.AddEdge(testKey(fmt.Sprintf("service%d", i)), testKey(fmt.Sprintf("service%d", i-1)))
			}
			g.SetLabel(testKey(fmt.Sprintf("service%d", i)), "Graph")
		}()
	}

	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Size()
			g.Keys()
			g.FindCycle()
			_ = g.Clone()
		}()
	}

	wg.Wait()

	assert.Equal(t, 10, g.Size())
	assert.Equal(t, 9, g.EdgeCount())
	assert.True(t, g.IsAcyclic())
}

func TestVisualizer(t *testing.T) {
	g := New[testKey]()
	g.AddEdge("parent", "child")
	g.AddEdge("child", "parent")
	g.SetLabel("parent", "Singleton")

	v := NewVisualizer(g)

	t.Run("dot", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, v.WriteDOT(&buf))

		out := buf.String()
		assert.Contains(t, out, "digraph dependencies {")
		assert.Contains(t, out, `n1 [label="parent\n[Singleton]", fillcolor="lightblue", style=filled];`)
		assert.Contains(t, out, `n0 [label="child", fillcolor="lightgray", style=filled];`)
		assert.Contains(t, out, "n0 -> n1;")
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, v.WriteText(&buf))

		out := buf.String()
		assert.Contains(t, out, "  parent\n    Lifetime: Singleton\n    Dependencies: [child]\n    Dependents: [child]\n")
		assert.Contains(t, out, "Entry points (no dependents): 0")
		assert.Contains(t, out, "Cycles: resolved through the in-flight cache (child -> parent -> child)")
	})

	t.Run("acyclic text", func(t *testing.T) {
		acyclic := New[testKey]()
		acyclic.AddEdge("a", "b")

		var buf bytes.Buffer
		require.NoError(t, NewVisualizer(acyclic).WriteText(&buf))
		assert.Contains(t, buf.String(), "Cycles: None (graph is acyclic)")
		assert.Contains(t, buf.String(), "Entry points (no dependents): 1")
	})

	t.Run("adjacency list", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, v.WriteAdjacencyList(&buf))
		assert.Equal(t, "Adjacency List:\n===============\n\nchild -> [parent]\nparent -> [child]\n", buf.String())
	})
}
