package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/query"
)

func TestGenerateMermaidGroupsNodesByFileAndDrawsEdges(t *testing.T) {
	sub := &query.Subgraph{
		Nodes: []graph.Node{
			{ID: "fn:a", Kind: graph.KindFunction, Name: "A", FilePath: "pkg/a.go"},
			{ID: "fn:b", Kind: graph.KindFunction, Name: "B", FilePath: "pkg/b.go"},
		},
		Edges: []graph.Edge{
			{Source: "fn:a", Target: "fn:b", Kind: graph.EdgeCalls},
		},
		Roots: []string{"fn:a"},
	}

	out := GenerateMermaid(sub)

	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "pkg/a.go")
	assert.Contains(t, out, "pkg/b.go")
	assert.Contains(t, out, "A (Function)")
	assert.Contains(t, out, "B (Function)")
	assert.Contains(t, out, "-->|Calls|")
}

func TestGenerateMermaidSkipsEdgesToMissingNodes(t *testing.T) {
	sub := &query.Subgraph{
		Nodes: []graph.Node{
			{ID: "fn:a", Kind: graph.KindFunction, Name: "A", FilePath: "pkg/a.go"},
		},
		Edges: []graph.Edge{
			{Source: "fn:a", Target: "fn:unknown", Kind: graph.EdgeCalls},
		},
	}

	out := GenerateMermaid(sub)
	assert.NotContains(t, out, "-->")
}

func TestShortPathKeepsLastTwoSegments(t *testing.T) {
	assert.Equal(t, "pkg/a.go", shortPath("repo/src/pkg/a.go"))
	assert.Equal(t, "a.go", shortPath("a.go"))
}
