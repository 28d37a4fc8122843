package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGraph(t *testing.T, targets []Target) *Graph {
	t.Helper()
	g, err := New(targets)
	require.NoError(t, err)
	return g
}

func TestNewRejectsUnknownDependency(t *testing.T) {
	_, err := New([]Target{
		{Name: "app", Dependencies: []string{"lib"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dependency")
}

func TestNewRejectsDuplicateName(t *testing.T) {
	_, err := New([]Target{
		{Name: "app"},
		{Name: "app"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate target name")
}

func TestNewRejectsCycle(t *testing.T) {
	_, err := New([]Target{
		{Name: "a", Dependencies: []string{"b"}},
		{Name: "b", Dependencies: []string{"a"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle")
}

func TestActiveSetTransitiveClosure(t *testing.T) {
	g := mustGraph(t, []Target{
		{Name: "lib"},
		{Name: "api", Dependencies: []string{"lib"}},
		{Name: "web", Dependencies: []string{"api"}},
		{Name: "unrelated"},
	})

	webIdx, _ := g.Index("web")
	active, err := g.ActiveSet([]string{"web"})
	require.NoError(t, err)

	names := namesOf(g, active)
	assert.ElementsMatch(t, []string{"lib", "api", "web"}, names)
	assert.NotContains(t, names, "unrelated")
	assert.Contains(t, active, webIdx)
}

func TestActiveSetUnknownRoot(t *testing.T) {
	g := mustGraph(t, []Target{{Name: "lib"}})
	_, err := g.ActiveSet([]string{"missing"})
	require.Error(t, err)
}

func TestTopoOrderRespectsDependencies(t *testing.T) {
	g := mustGraph(t, []Target{
		{Name: "lib"},
		{Name: "api", Dependencies: []string{"lib"}},
		{Name: "web", Dependencies: []string{"api", "lib"}},
	})

	active, err := g.ActiveSet([]string{"web"})
	require.NoError(t, err)

	order, err := g.TopoOrder(active)
	require.NoError(t, err)
	require.Len(t, order, 3)

	position := make(map[string]int, len(order))
	for pos, idx := range order {
		position[g.Target(idx).Name] = pos
	}

	assert.Less(t, position["lib"], position["api"])
	assert.Less(t, position["api"], position["web"])
}

func TestTopoOrderDeterministicForIndependentTargets(t *testing.T) {
	g := mustGraph(t, []Target{
		{Name: "b"},
		{Name: "a"},
		{Name: "c"},
	})
	active := []int{0, 1, 2}

	order1, err := g.TopoOrder(active)
	require.NoError(t, err)
	order2, err := g.TopoOrder(active)
	require.NoError(t, err)

	assert.Equal(t, order1, order2)
}

func TestDependenciesAndDependents(t *testing.T) {
	g := mustGraph(t, []Target{
		{Name: "lib"},
		{Name: "api", Dependencies: []string{"lib"}},
	})

	libIdx, _ := g.Index("lib")
	apiIdx, _ := g.Index("api")

	assert.Equal(t, []int{libIdx}, g.Dependencies(apiIdx))
	assert.Equal(t, []int{apiIdx}, g.Dependents(libIdx))
}

func namesOf(g *Graph, indices []int) []string {
	names := make([]string, len(indices))
	for i, idx := range indices {
		names[i] = g.Target(idx).Name
	}
	return names
}
