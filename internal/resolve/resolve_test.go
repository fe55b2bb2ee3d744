package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/store"
)

func TestResolveQualifiedSuffixStrategy(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	caller := graph.Node{ID: "fn:caller", Kind: graph.KindFunction, Name: "main", QualifiedName: "main", FilePath: "main.go", Visibility: graph.VisibilityPub}
	callee := graph.Node{ID: "fn:helper", Kind: graph.KindFunction, Name: "helper", QualifiedName: "util::helper", FilePath: "util.go", Visibility: graph.VisibilityPub}
	require.NoError(t, s.UpsertNodes(ctx, []graph.Node{caller, callee}))
	require.NoError(t, s.InsertUnresolvedRefs(ctx, []graph.UnresolvedRef{
		{FromNodeID: caller.ID, ReferenceName: "helper", ReferenceKind: graph.EdgeCalls, Line: 1, FilePath: "main.go"},
	}))

	r := New(s)
	result, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Resolved, 1)
	assert.Equal(t, callee.ID, result.Resolved[0].TargetID)
	assert.Equal(t, 0.95, result.Resolved[0].Confidence)
	assert.Empty(t, result.Unresolved)

	edges, err := s.GetOutgoingEdges(ctx, caller.ID, []graph.EdgeKind{graph.EdgeCalls})
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, callee.ID, edges[0].Target)

	remaining, err := s.ListUnresolvedRefs(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestResolveImportScopedStrategy(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	caller := graph.Node{ID: "fn:c2", Kind: graph.KindFunction, Name: "main", QualifiedName: "main", FilePath: "main.rs", Visibility: graph.VisibilityPub}
	// Two functions share the simple name "helper" in different modules,
	// so the qualified-suffix strategy alone is ambiguous; the Use import
	// narrows it to exactly one.
	calleeA := graph.Node{ID: "fn:helperA", Kind: graph.KindFunction, Name: "helper", QualifiedName: "a::helper", FilePath: "a.rs", Visibility: graph.VisibilityPub}
	calleeB := graph.Node{ID: "fn:helperB", Kind: graph.KindFunction, Name: "helper", QualifiedName: "b::helper", FilePath: "b.rs", Visibility: graph.VisibilityPub}
	useNode := graph.Node{ID: "use:1", Kind: graph.KindUse, Name: "a::helper", QualifiedName: "a::helper", FilePath: "main.rs"}
	require.NoError(t, s.UpsertNodes(ctx, []graph.Node{caller, calleeA, calleeB, useNode}))
	require.NoError(t, s.InsertUnresolvedRefs(ctx, []graph.UnresolvedRef{
		{FromNodeID: caller.ID, ReferenceName: "helper", ReferenceKind: graph.EdgeCalls, Line: 3, FilePath: "main.rs"},
	}))

	r := New(s)
	result, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, result.Resolved, 1)
	assert.Equal(t, calleeA.ID, result.Resolved[0].TargetID)
	assert.Equal(t, 0.9, result.Resolved[0].Confidence)
}

func TestResolveScoredStrategyPrefersSameFile(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	caller := graph.Node{ID: "fn:c3", Kind: graph.KindFunction, Name: "main", QualifiedName: "main", FilePath: "app.go", Visibility: graph.VisibilityPub}
	localCallee := graph.Node{ID: "fn:local", Kind: graph.KindFunction, Name: "run", QualifiedName: "run", FilePath: "app.go", Visibility: graph.VisibilityPub}
	distantCallee := graph.Node{ID: "fn:distant", Kind: graph.KindFunction, Name: "run", QualifiedName: "run", FilePath: "other.go", Visibility: graph.VisibilityPrivate}
	require.NoError(t, s.UpsertNodes(ctx, []graph.Node{caller, localCallee, distantCallee}))
	require.NoError(t, s.InsertUnresolvedRefs(ctx, []graph.UnresolvedRef{
		{FromNodeID: caller.ID, ReferenceName: "run", ReferenceKind: graph.EdgeCalls, Line: 2, FilePath: "app.go"},
	}))

	r := New(s)
	result, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, result.Resolved, 1)
	assert.Equal(t, localCallee.ID, result.Resolved[0].TargetID)
	assert.Equal(t, 0.7, result.Resolved[0].Confidence)
}

func TestResolveLeavesAmbiguousRefsUnresolved(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	caller := graph.Node{ID: "fn:c4", Kind: graph.KindFunction, Name: "main", QualifiedName: "main", FilePath: "app.go", Visibility: graph.VisibilityPub}
	// Same file, same visibility, same kind: a true tie at the top score.
	tieA := graph.Node{ID: "fn:tieA", Kind: graph.KindFunction, Name: "dup", QualifiedName: "dup", FilePath: "app.go", Visibility: graph.VisibilityPub}
	tieB := graph.Node{ID: "fn:tieB", Kind: graph.KindFunction, Name: "dup", QualifiedName: "dup2", FilePath: "app.go", Visibility: graph.VisibilityPub}
	require.NoError(t, s.UpsertNodes(ctx, []graph.Node{caller, tieA, tieB}))
	require.NoError(t, s.InsertUnresolvedRefs(ctx, []graph.UnresolvedRef{
		{FromNodeID: caller.ID, ReferenceName: "dup", ReferenceKind: graph.EdgeCalls, Line: 2, FilePath: "app.go"},
	}))

	r := New(s)
	result, err := r.Resolve(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Resolved)
	require.Len(t, result.Unresolved, 1)

	remaining, err := s.ListUnresolvedRefs(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestResolveReceivesBonusBreaksTie(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	caller := graph.Node{ID: "fn:c5", Kind: graph.KindFunction, Name: "main", QualifiedName: "main", FilePath: "app.go", Visibility: graph.VisibilityPub}
	// Two same-named methods on different receiver types, in different
	// files so the same-file bonus alone can't disambiguate; the
	// Receives-edge bonus should tip the scored strategy toward the one
	// whose Receives edge resolves to a type (Foo) that prefixes its own
	// qualified name (Foo::Save).
	methodOnFoo := graph.Node{ID: "m:foo", Kind: graph.KindMethod, Name: "Save", QualifiedName: "Foo::Save", FilePath: "foo.go", Visibility: graph.VisibilityPub}
	methodOnBar := graph.Node{ID: "m:bar", Kind: graph.KindMethod, Name: "Save", QualifiedName: "Bar::Save", FilePath: "bar.go", Visibility: graph.VisibilityPub}
	fooType := graph.Node{ID: "t:foo", Kind: graph.KindStruct, Name: "Foo", QualifiedName: "Foo", FilePath: "foo.go"}
	require.NoError(t, s.UpsertNodes(ctx, []graph.Node{caller, methodOnFoo, methodOnBar, fooType}))
	require.NoError(t, s.InsertEdge(ctx, graph.Edge{Source: methodOnFoo.ID, Target: fooType.ID, Kind: graph.EdgeReceives}))
	require.NoError(t, s.InsertUnresolvedRefs(ctx, []graph.UnresolvedRef{
		{FromNodeID: caller.ID, ReferenceName: "Save", ReferenceKind: graph.EdgeCalls, Line: 2, FilePath: "app.go"},
	}))

	r := New(s)
	result, err := r.Resolve(ctx)
	require.NoError(t, err)
	require.Len(t, result.Resolved, 1)
	assert.Equal(t, methodOnFoo.ID, result.Resolved[0].TargetID)
}
