// Package contextbuild turns a free-text task description into a ranked
// set of relevant symbols plus a prose summary, shared by the CLI
// `context` verb and the codegraph_context MCP tool.
package contextbuild

import (
	"context"
	"fmt"
	"strings"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/store"
)

// Result is the output of Build: the symbols judged relevant to a task,
// and a prose rendering of the same.
type Result struct {
	Nodes   []graph.Node
	Summary string
}

// Build searches the store for nodes relevant to task, optionally scoped
// to a file path prefix, and renders a short prose summary naming each
// hit's location and docstring.
func Build(ctx context.Context, s store.Store, task, pathPrefix string, limit int) (*Result, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := s.SearchNodes(ctx, task, limit)
	if err != nil {
		return nil, fmt.Errorf("search nodes for task: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Context for task: %s\n\n", task)
	var nodes []graph.Node
	for _, r := range results {
		if pathPrefix != "" && !strings.HasPrefix(r.Node.FilePath, pathPrefix) {
			continue
		}
		nodes = append(nodes, r.Node)
		fmt.Fprintf(&b, "- %s (%s) at %s:%d\n", r.Node.QualifiedName, r.Node.Kind, r.Node.FilePath, r.Node.StartLine)
		if r.Node.Docstring != "" {
			fmt.Fprintf(&b, "  %s\n", r.Node.Docstring)
		}
	}
	if len(nodes) == 0 {
		fmt.Fprintf(&b, "(no matching symbols found)\n")
	}

	return &Result{Nodes: nodes, Summary: b.String()}, nil
}
