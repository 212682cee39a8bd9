package weave_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/weave"
	"github.com/junioryono/weave/internal/testutil"
)

func TestEnvironmentGraph(t *testing.T) {
	t.Parallel()

	parentKey := weave.KeyOf[testutil.FamilyAssembly]("parent")
	childKey := weave.KeyOf[testutil.FamilyAssembly]("child")

	t.Run("records the resolved cycle", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		family := testutil.Obtain[testutil.FamilyAssembly](t, env)

		_, err := family.Parent(context.Background())
		require.NoError(t, err)

		snapshot := env.Graph()
		assert.Equal(t, []weave.Key{childKey, parentKey}, snapshot.Keys())
		assert.Equal(t, []weave.Key{childKey}, snapshot.Dependencies(parentKey))
		assert.Equal(t, []weave.Key{parentKey}, snapshot.Dependents(childKey))
		assert.Equal(t, []weave.Key{childKey, parentKey}, snapshot.Cycle())
		assert.Empty(t, snapshot.EntryPoints())

		lifetime, ok := snapshot.Lifetime(parentKey)
		require.True(t, ok)
		assert.Equal(t, weave.Graph, lifetime)
	})

	t.Run("lifetimes and entry points", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		resources := testutil.Obtain[resourceAssembly](t, env)

		_, err := resources.Cache(context.Background())
		require.NoError(t, err)

		snapshot := env.Graph()
		cacheKey := weave.KeyOf[resourceAssembly]("cache")
		databaseKey := weave.KeyOf[resourceAssembly]("database")

		assert.Equal(t, []weave.Key{cacheKey}, snapshot.EntryPoints())
		assert.Nil(t, snapshot.Cycle())

		lifetime, ok := snapshot.Lifetime(databaseKey)
		require.True(t, ok)
		assert.Equal(t, weave.Singleton, lifetime)

		_, ok = snapshot.Lifetime(weave.KeyOf[resourceAssembly]("request"))
		assert.False(t, ok)
	})

	t.Run("reachability and size", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		resources := testutil.Obtain[resourceAssembly](t, env)

		_, err := resources.Cache(context.Background())
		require.NoError(t, err)

		snapshot := env.Graph()
		cacheKey := weave.KeyOf[resourceAssembly]("cache")
		databaseKey := weave.KeyOf[resourceAssembly]("database")

		assert.Equal(t, 2, snapshot.Len())
		assert.Equal(t, 1, snapshot.EdgeCount())
		assert.True(t, snapshot.Contains(databaseKey))
		assert.False(t, snapshot.Contains(weave.KeyOf[resourceAssembly]("request")))
		assert.Equal(t, []weave.Key{databaseKey}, snapshot.TransitiveDependencies(cacheKey))
		assert.Equal(t, []weave.Key{databaseKey}, snapshot.Leaves())

		env.ResetGraph()
		assert.Zero(t, env.Graph().Len())
		assert.Equal(t, 2, snapshot.Len())
	})

	t.Run("snapshot is independent", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		family := testutil.Obtain[testutil.FamilyAssembly](t, env)

		before := env.Graph()
		_, err := family.Child(context.Background())
		require.NoError(t, err)

		assert.Empty(t, before.Keys())
		assert.Len(t, env.Graph().Keys(), 2)
	})

	t.Run("writers", func(t *testing.T) {
		t.Parallel()

		env, _ := testutil.NewEnvironment(t)
		family := testutil.Obtain[testutil.FamilyAssembly](t, env)

		_, err := family.Parent(context.Background())
		require.NoError(t, err)

		snapshot := env.Graph()

		var dot bytes.Buffer
		require.NoError(t, snapshot.WriteDOT(&dot))
		assert.Contains(t, dot.String(), "digraph dependencies {")
		assert.Contains(t, dot.String(), `label="FamilyAssembly.parent\n[Graph]"`)
		assert.Contains(t, dot.String(), "n0 -> n1;")
		assert.Contains(t, dot.String(), "n1 -> n0;")

		var text bytes.Buffer
		require.NoError(t, snapshot.WriteText(&text))
		assert.Contains(t, text.String(), "Total nodes: 2")
		assert.Contains(t, text.String(), "Total edges: 2")
		assert.Contains(t, text.String(), "Cycles: resolved through the in-flight cache (FamilyAssembly.child -> FamilyAssembly.parent -> FamilyAssembly.child)")

		var adjacency bytes.Buffer
		require.NoError(t, snapshot.WriteAdjacencyList(&adjacency))
		assert.Contains(t, adjacency.String(), "FamilyAssembly.child -> [FamilyAssembly.parent]\n")
		assert.Contains(t, adjacency.String(), "FamilyAssembly.parent -> [FamilyAssembly.child]\n")
	})

	t.Run("recording disabled", func(t *testing.T) {
		t.Parallel()

		env := testutil.NewEnvironmentBuilder(t).WithoutGraph().Build()
		family := testutil.Obtain[testutil.FamilyAssembly](t, env)

		_, err := family.Parent(context.Background())
		require.NoError(t, err)

		assert.Empty(t, env.Graph().Keys())
		assert.Nil(t, env.Graph().Cycle())
	})
}
