package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/store"
)

func fn(id, name string, vis graph.Visibility) graph.Node {
	return graph.Node{ID: id, Kind: graph.KindFunction, Name: name, QualifiedName: name, FilePath: "f.go", Visibility: vis}
}

// chain builds A -> B -> C -> D via Calls edges, used by both the dead
// code and impact-radius scenarios.
func chain(t *testing.T, ctx context.Context, s store.Store) (a, b, c, d graph.Node) {
	a = fn("fn:a", "A", graph.VisibilityPub)
	b = fn("fn:b", "B", graph.VisibilityPrivate)
	c = fn("fn:c", "C", graph.VisibilityPrivate)
	d = fn("fn:d", "D", graph.VisibilityPrivate)
	require.NoError(t, s.UpsertNodes(ctx, []graph.Node{a, b, c, d}))
	require.NoError(t, s.InsertEdges(ctx, []graph.Edge{
		{Source: a.ID, Target: b.ID, Kind: graph.EdgeCalls, Line: 1, HasLine: true},
		{Source: b.ID, Target: c.ID, Kind: graph.EdgeCalls, Line: 1, HasLine: true},
		{Source: c.ID, Target: d.ID, Kind: graph.EdgeCalls, Line: 1, HasLine: true},
	}))
	return a, b, c, d
}

func TestImpactRadiusRespectsDepth(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	a, b, c, d := chain(t, ctx, s)
	e := New(s)

	full, err := e.Impact(ctx, d.ID, 10)
	require.NoError(t, err)
	ids := nodeIDs(full.Nodes)
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, ids)

	shallow, err := e.Impact(ctx, d.ID, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c.ID}, nodeIDs(shallow.Nodes))
}

func TestDeadCodeExcludesMainPubAndTest(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	a, _, _, _ := chain(t, ctx, s)

	orphan := fn("fn:orphan", "orphan", graph.VisibilityPrivate)
	mainFn := fn("fn:main", "main", graph.VisibilityPrivate)
	testFn := graph.Node{ID: "fn:test1", Kind: graph.KindFunction, Name: "TestSomething", QualifiedName: "TestSomething", FilePath: "f_test.go", Visibility: graph.VisibilityPub}
	require.NoError(t, s.UpsertNodes(ctx, []graph.Node{orphan, mainFn, testFn}))

	e := New(s)
	dead, err := e.DeadCode(ctx, []graph.NodeKind{graph.KindFunction})
	require.NoError(t, err)

	names := make([]string, len(dead))
	for i, n := range dead {
		names[i] = n.Name
	}
	assert.ElementsMatch(t, []string{"orphan"}, names)
	assert.NotContains(t, names, "main")
	assert.NotContains(t, names, "A") // A is Pub
	_ = a
}

func TestCallersAndCallees(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	a, b, c, d := chain(t, ctx, s)
	e := New(s)

	callers, err := e.Callers(ctx, c.ID, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, nodeIDs(callers.Nodes))

	callees, err := e.Callees(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID, d.ID}, nodeIDs(callees.Nodes))
}

func TestTraverseHandlesCycles(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	a := fn("fn:cy1", "Loop1", graph.VisibilityPub)
	b := fn("fn:cy2", "Loop2", graph.VisibilityPub)
	require.NoError(t, s.UpsertNodes(ctx, []graph.Node{a, b}))
	require.NoError(t, s.InsertEdges(ctx, []graph.Edge{
		{Source: a.ID, Target: b.ID, Kind: graph.EdgeCalls, Line: 1, HasLine: true},
		{Source: b.ID, Target: a.ID, Kind: graph.EdgeCalls, Line: 1, HasLine: true},
	}))

	e := New(s)
	result, err := e.CallGraph(ctx, a.ID, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID}, nodeIDs(result.Nodes))
}

func nodeIDs(nodes []graph.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
