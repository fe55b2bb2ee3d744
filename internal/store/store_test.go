package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/graph"
)

// backends returns a fresh Store of each implementation so the shared
// behavioral contract can be exercised identically against both.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := OpenMemory()
	require.NoError(t, err)
	require.NoError(t, sqliteStore.InitSchema(context.Background()))
	t.Cleanup(func() { sqliteStore.Close() })

	mem := NewMemStore()
	return map[string]Store{
		"sqlite": sqliteStore,
		"mem":    mem,
	}
}

func sampleNode(id, name, path string, line int) graph.Node {
	return graph.Node{
		ID:            id,
		Kind:          graph.KindFunction,
		Name:          name,
		QualifiedName: name,
		FilePath:      path,
		StartLine:     line,
		EndLine:       line + 1,
		Visibility:    graph.VisibilityPub,
		UpdatedAt:     1,
	}
}

func TestUpsertNodeReplacesByID(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n := sampleNode("fn:aaa", "helper", "a.go", 10)
			require.NoError(t, s.UpsertNode(ctx, n))

			n.Docstring = "updated"
			n.EndLine = 20
			require.NoError(t, s.UpsertNode(ctx, n))

			got, err := s.GetNodeByID(ctx, "fn:aaa")
			require.NoError(t, err)
			assert.Equal(t, "updated", got.Docstring)
			assert.Equal(t, 20, got.EndLine)

			all, err := s.GetNodesByFile(ctx, "a.go")
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestGetNodeByIDNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetNodeByID(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestInsertEdgesAppendOnly(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := sampleNode("fn:a", "a", "x.go", 1)
			b := sampleNode("fn:b", "b", "x.go", 5)
			require.NoError(t, s.UpsertNodes(ctx, []graph.Node{a, b}))

			// Two distinct call sites between the same pair of nodes.
			require.NoError(t, s.InsertEdge(ctx, graph.Edge{Source: a.ID, Target: b.ID, Kind: graph.EdgeCalls, Line: 2, HasLine: true}))
			require.NoError(t, s.InsertEdge(ctx, graph.Edge{Source: a.ID, Target: b.ID, Kind: graph.EdgeCalls, Line: 3, HasLine: true}))

			out, err := s.GetOutgoingEdges(ctx, a.ID, nil)
			require.NoError(t, err)
			assert.Len(t, out, 2)

			in, err := s.GetIncomingEdges(ctx, b.ID, []graph.EdgeKind{graph.EdgeCalls})
			require.NoError(t, err)
			assert.Len(t, in, 2)

			filtered, err := s.GetIncomingEdges(ctx, b.ID, []graph.EdgeKind{graph.EdgeUses})
			require.NoError(t, err)
			assert.Empty(t, filtered)
		})
	}
}

func TestDeleteNodesByFileCascades(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := sampleNode("fn:a2", "a", "y.go", 1)
			b := sampleNode("fn:b2", "b", "other.go", 1)
			require.NoError(t, s.UpsertNodes(ctx, []graph.Node{a, b}))
			require.NoError(t, s.InsertEdge(ctx, graph.Edge{Source: a.ID, Target: b.ID, Kind: graph.EdgeCalls, Line: 1, HasLine: true}))
			require.NoError(t, s.InsertUnresolvedRefs(ctx, []graph.UnresolvedRef{
				{FromNodeID: a.ID, ReferenceName: "b", ReferenceKind: graph.EdgeCalls, Line: 1, FilePath: "y.go"},
			}))
			require.NoError(t, s.UpsertVector(ctx, graph.Vector{NodeID: a.ID, Embedding: []byte{1, 2, 3, 4}, Model: "test", CreatedAt: 1}))

			require.NoError(t, s.DeleteNodesByFile(ctx, "y.go"))

			_, err := s.GetNodeByID(ctx, a.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			remaining, err := s.GetNodesByFile(ctx, "other.go")
			require.NoError(t, err)
			assert.Len(t, remaining, 1)

			edges, err := s.GetIncomingEdges(ctx, b.ID, nil)
			require.NoError(t, err)
			assert.Empty(t, edges)

			refs, err := s.ListUnresolvedRefs(ctx)
			require.NoError(t, err)
			assert.Empty(t, refs)

			_, err = s.GetVector(ctx, a.ID)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileRecordLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fr := graph.FileRecord{Path: "z.go", ContentHash: "abc", Size: 10, ModifiedAt: 1, IndexedAt: 1, NodeCount: 1}
			require.NoError(t, s.UpsertFile(ctx, fr))

			got, err := s.GetFile(ctx, "z.go")
			require.NoError(t, err)
			assert.Equal(t, "abc", got.ContentHash)

			fr.ContentHash = "def"
			require.NoError(t, s.UpsertFile(ctx, fr))
			got, err = s.GetFile(ctx, "z.go")
			require.NoError(t, err)
			assert.Equal(t, "def", got.ContentHash)

			list, err := s.ListFiles(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)

			require.NoError(t, s.DeleteFile(ctx, "z.go"))
			_, err = s.GetFile(ctx, "z.go")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSearchNodesExactNameFindsRow(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n := sampleNode("fn:search1", "ParseConfig", "cfg.go", 1)
			require.NoError(t, s.UpsertNode(ctx, n))

			results, err := s.SearchNodes(ctx, "ParseConfig", 10)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "ParseConfig", results[0].Node.Name)
		})
	}
}

func TestSearchNodesFallsBackToLike(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n := sampleNode("fn:search2", "xyzzyCustom", "weird.go", 1)
			require.NoError(t, s.UpsertNode(ctx, n))

			results, err := s.SearchNodes(ctx, "zzyCust", 10)
			require.NoError(t, err)
			require.NotEmpty(t, results)
			assert.Equal(t, "xyzzyCustom", results[0].Node.Name)
		})
	}
}

func TestReplaceFileAtomicallySwapsContents(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			old := sampleNode("fn:old", "old", "r.go", 1)
			other := sampleNode("fn:other", "other", "keep.go", 1)
			require.NoError(t, s.UpsertNodes(ctx, []graph.Node{old, other}))
			require.NoError(t, s.InsertUnresolvedRefs(ctx, []graph.UnresolvedRef{
				{FromNodeID: old.ID, ReferenceName: "x", ReferenceKind: graph.EdgeCalls, Line: 1, FilePath: "r.go"},
			}))

			fresh := sampleNode("fn:fresh", "fresh", "r.go", 1)
			fr := graph.FileRecord{Path: "r.go", ContentHash: "new-hash", Size: 5, ModifiedAt: 1, IndexedAt: 2, NodeCount: 1}

			require.NoError(t, s.ReplaceFile(ctx, "r.go", []graph.Node{fresh},
				[]graph.Edge{{Source: fresh.ID, Target: other.ID, Kind: graph.EdgeCalls, Line: 1, HasLine: true}},
				nil, fr))

			_, err := s.GetNodeByID(ctx, old.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			got, err := s.GetNodeByID(ctx, fresh.ID)
			require.NoError(t, err)
			assert.Equal(t, "fresh", got.Name)

			keep, err := s.GetNodeByID(ctx, other.ID)
			require.NoError(t, err)
			assert.Equal(t, "other", keep.Name)

			refs, err := s.ListUnresolvedRefs(ctx)
			require.NoError(t, err)
			assert.Empty(t, refs)

			storedFile, err := s.GetFile(ctx, "r.go")
			require.NoError(t, err)
			assert.Equal(t, "new-hash", storedFile.ContentHash)

			edges, err := s.GetOutgoingEdges(ctx, fresh.ID, nil)
			require.NoError(t, err)
			assert.Len(t, edges, 1)
		})
	}
}

func TestCheckIntegrityPassesOnFreshDatabase(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.InitSchema(context.Background()))

	assert.NoError(t, s.CheckIntegrity(context.Background()))
}

func TestGetStatsCountsAndGroups(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.UpsertNodes(ctx, []graph.Node{
				sampleNode("fn:s1", "one", "s.go", 1),
				sampleNode("fn:s2", "two", "s.go", 2),
			}))
			stats, err := s.GetStats(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, stats.NodeCount)
			assert.Equal(t, 2, stats.NodesByKind[string(graph.KindFunction)])
		})
	}
}
