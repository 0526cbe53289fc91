package toposort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertTopological checks that order is a permutation of vertices in which
// every edge points forward.
func assertTopological(t *testing.T, order []string, successors map[string][]string, vertices []string) {
	t.Helper()
	require.Len(t, order, len(vertices))

	pos := make(map[string]int, len(order))
	for i, v := range order {
		pos[v] = i
	}
	for _, v := range vertices {
		_, ok := pos[v]
		require.True(t, ok, "vertex %s missing from order", v)
	}
	for u, children := range successors {
		for _, v := range children {
			assert.Less(t, pos[u], pos[v], "edge %s->%s violated", u, v)
		}
	}
}

func TestSort(t *testing.T) {
	t.Run("empty graph", func(t *testing.T) {
		order, err := Sort(nil, nil)
		require.NoError(t, err)
		assert.Empty(t, order)
	})

	t.Run("linear chain", func(t *testing.T) {
		successors := map[string][]string{"a": {"b"}, "b": {"c"}}
		vertices := []string{"c", "a", "b"}
		order, err := Sort(successors, vertices)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, order)
	})

	t.Run("diamond respects every edge", func(t *testing.T) {
		successors := map[string][]string{
			"root": {"left", "right"},
			"left": {"sink"}, "right": {"sink"},
		}
		vertices := []string{"sink", "right", "left", "root"}
		order, err := Sort(successors, vertices)
		require.NoError(t, err)
		assertTopological(t, order, successors, vertices)
	})

	t.Run("ready ties break lexicographically", func(t *testing.T) {
		// All four are ready at once; golden order must be stable.
		vertices := []string{"delta", "bravo", "alpha", "charlie"}
		order, err := Sort(map[string][]string{}, vertices)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, order)
	})

	t.Run("unlocked vertices merge into sorted ready set", func(t *testing.T) {
		successors := map[string][]string{"a": {"z", "m"}}
		vertices := []string{"a", "z", "m", "b"}
		order, err := Sort(successors, vertices)
		require.NoError(t, err)
		// a and b ready first; unlocking z and m must slot them in sorted.
		assert.Equal(t, []string{"a", "b", "m", "z"}, order)
	})

	t.Run("two-node cycle fails with no order", func(t *testing.T) {
		successors := map[string][]string{"a": {"b"}, "b": {"a"}}
		order, err := Sort(successors, []string{"a", "b"})
		assert.Nil(t, order)
		var cerr *CycleError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, []string{"a", "b"}, cerr.Remaining)
	})

	t.Run("cycle in a disjoint component fails", func(t *testing.T) {
		successors := map[string][]string{
			"a": {"b"},
			"x": {"y"}, "y": {"z"}, "z": {"x"},
		}
		order, err := Sort(successors, []string{"a", "b", "x", "y", "z"})
		assert.Nil(t, order)
		var cerr *CycleError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, []string{"x", "y", "z"}, cerr.Remaining)
	})

	t.Run("self-loop is a cycle", func(t *testing.T) {
		successors := map[string][]string{"a": {"a"}}
		_, err := Sort(successors, []string{"a"})
		var cerr *CycleError
		require.ErrorAs(t, err, &cerr)
	})
}
