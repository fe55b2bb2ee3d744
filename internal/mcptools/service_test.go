package mcptools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/store"
)

func TestSearchRequiresQuery(t *testing.T) {
	svc := NewService(store.NewMemStore())
	_, _, err := svc.Search(context.Background(), nil, SearchInput{})
	assert.Error(t, err)
}

func TestSearchFindsUpsertedNode(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	require.NoError(t, s.UpsertNode(ctx, graph.Node{
		ID: "fn:x", Kind: graph.KindFunction, Name: "ParseConfig", QualifiedName: "ParseConfig", FilePath: "cfg.go",
	}))

	svc := NewService(s)
	_, out, err := svc.Search(ctx, nil, SearchInput{Query: "ParseConfig"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "ParseConfig", out.Results[0].Name)
}

func TestNodeNotFoundReturnsFoundFalse(t *testing.T) {
	svc := NewService(store.NewMemStore())
	_, out, err := svc.Node(context.Background(), nil, NodeInput{NodeID: "missing"})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Nil(t, out.Node)
}

func TestStatusReportsCounts(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	require.NoError(t, s.UpsertNode(ctx, graph.Node{ID: "fn:y", Kind: graph.KindFunction, Name: "Y"}))

	svc := NewService(s)
	_, out, err := svc.Status(ctx, nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.NodeCount)
}

func TestCallersRequiresNodeID(t *testing.T) {
	svc := NewService(store.NewMemStore())
	_, _, err := svc.Callers(context.Background(), nil, CallersInput{})
	assert.Error(t, err)
}

func TestSearchCapsResultsAtMaxResponseNodes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	for i := 0; i < maxResponseNodes+50; i++ {
		id := "fn:bulk" + string(rune('a'+(i%26))) + string(rune(i))
		require.NoError(t, s.UpsertNode(ctx, graph.Node{
			ID: id, Kind: graph.KindFunction, Name: "bulkFn", QualifiedName: "bulkFn", FilePath: "bulk.go",
		}))
	}

	svc := NewService(s)
	_, out, err := svc.Search(ctx, nil, SearchInput{Query: "bulkFn", Limit: maxResponseNodes + 50})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.Results), maxResponseNodes)
}

func TestToSummaryTruncatesLongSignature(t *testing.T) {
	n := graph.Node{ID: "fn:long", Kind: graph.KindFunction, Name: "Long", Signature: strings.Repeat("x", maxResponseChars+100)}
	summary := toSummary(n, 0)
	assert.LessOrEqual(t, len(summary.Signature), maxResponseChars+len("..."))
}
