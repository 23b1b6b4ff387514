package dag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/hookgrid/internal/node"
)

func TestNew(t *testing.T) {
	g := New()
	require.NotNil(t, g)
	assert.NotNil(t, g.nodes)
	assert.Empty(t, g.nodes)
}

func TestAddNode(t *testing.T) {
	g := New()

	assert.True(t, g.AddNode("a"))
	assert.Len(t, g.nodes, 1)
	nodeA, ok := g.nodes["a"]
	require.True(t, ok)
	assert.Equal(t, "a", nodeA.id)
	assert.NotNil(t, nodeA.deps)
	assert.NotNil(t, nodeA.dependents)

	assert.False(t, g.AddNode("a")) // Test idempotency
	assert.Len(t, g.nodes, 1)

	g.AddNode("b")
	assert.Len(t, g.nodes, 2)
	_, ok = g.nodes["b"]
	assert.True(t, ok)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("a", "b") // b depends on a
		require.NoError(t, err)

		nodeA := g.nodes["a"]
		nodeB := g.nodes["b"]

		assert.Contains(t, nodeA.dependents, "b")
		assert.Equal(t, nodeB, nodeA.dependents["b"])
		assert.Contains(t, nodeB.deps, "a")
		assert.Equal(t, nodeA, nodeB.deps["a"])
	})

	t.Run("error cases", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")

		err := g.AddEdge("dne", "a")
		assert.ErrorContains(t, err, "source node not found")

		err = g.AddEdge("a", "dne")
		assert.ErrorContains(t, err, "destination node not found")

		err = g.AddEdge("a", "a")
		assert.ErrorContains(t, err, "self-referential edge")
		assert.ErrorIs(t, err, ErrCycle)
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		g := New()
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("graph with nodes but no edges has no cycles", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		g.AddNode("d")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("a", "c")) // Transitive edge
		require.NoError(t, g.AddEdge("c", "d"))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("simple direct cycle is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "a")) // Cycle
		err := g.DetectCycles()
		assert.Error(t, err)
		assert.ErrorIs(t, err, ErrCycle)
		assert.ErrorContains(t, err, "a -> b -> a")
	})

	t.Run("longer cycle is detected", func(t *testing.T) {
		g := New()
		g.AddNode("a")
		g.AddNode("b")
		g.AddNode("c")
		g.AddNode("d")
		require.NoError(t, g.AddEdge("a", "b"))
		require.NoError(t, g.AddEdge("b", "c"))
		require.NoError(t, g.AddEdge("c", "d"))
		require.NoError(t, g.AddEdge("d", "a")) // Cycle back to the start
		err := g.DetectCycles()
		assert.Error(t, err)
		assert.ErrorContains(t, err, "cycle detected")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := New()
		// Component 1 (valid)
		g.AddNode("a")
		g.AddNode("b")
		require.NoError(t, g.AddEdge("a", "b"))

		// Component 2 (has a cycle)
		g.AddNode("x")
		g.AddNode("y")
		g.AddNode("z")
		require.NoError(t, g.AddEdge("x", "y"))
		require.NoError(t, g.AddEdge("y", "z"))
		require.NoError(t, g.AddEdge("z", "y")) // Cycle

		err := g.DetectCycles()
		assert.Error(t, err)
		assert.ErrorContains(t, err, "cycle detected")
	})
}

func TestQueries(t *testing.T) {
	g := New()
	for _, id := range []string{"c", "a", "b", "d"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("c", "b"))
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "d"))

	assert.Equal(t, 4, g.Len())
	assert.Equal(t, []string{"c", "a", "b", "d"}, g.IDs())
	assert.Equal(t, []string{"c", "a"}, g.Roots())
	assert.True(t, g.Has("d"))
	assert.False(t, g.Has("zzz"))

	deps, err := g.Dependencies("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, deps)

	dependents, err := g.Dependents("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, dependents)

	_, err = g.Dependencies("zzz")
	assert.ErrorContains(t, err, "node not found")
	_, err = g.Dependents("zzz")
	assert.ErrorContains(t, err, "node not found")
}

func compute() node.Computation {
	return node.Func(func(context.Context, node.Inputs) (any, error) { return nil, nil })
}

func TestBuild(t *testing.T) {
	t.Run("valid graph", func(t *testing.T) {
		g, err := Build([]node.Spec{
			{ID: "A", Compute: compute()},
			{ID: "B", DependsOn: []string{"A"}, Compute: compute()},
			{ID: "C", DependsOn: []string{"A", "B"}, Compute: compute()},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, g.Roots())
		deps, _ := g.Dependents("A")
		assert.Equal(t, []string{"B", "C"}, deps)
	})

	t.Run("empty graph", func(t *testing.T) {
		g, err := Build(nil)
		require.NoError(t, err)
		assert.Zero(t, g.Len())
	})

	cases := []struct {
		name  string
		specs []node.Spec
		want  error
	}{
		{"empty id", []node.Spec{{Compute: compute()}}, ErrEmptyID},
		{"duplicate id", []node.Spec{{ID: "A", Compute: compute()}, {ID: "A", Compute: compute()}}, ErrDuplicateNode},
		{"missing computation", []node.Spec{{ID: "A"}}, ErrMissingComputation},
		{"dangling dependency", []node.Spec{{ID: "A", DependsOn: []string{"ghost"}, Compute: compute()}}, ErrDanglingDependency},
		{"self dependency", []node.Spec{{ID: "A", DependsOn: []string{"A"}, Compute: compute()}}, ErrCycle},
		{"cycle", []node.Spec{
			{ID: "A", DependsOn: []string{"C"}, Compute: compute()},
			{ID: "B", DependsOn: []string{"A"}, Compute: compute()},
			{ID: "C", DependsOn: []string{"B"}, Compute: compute()},
		}, ErrCycle},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.specs)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
