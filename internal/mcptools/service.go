// Package mcptools exposes the graph's query surface as MCP tools over
// stdio, for editor and agent integrations.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codegraph/codegraph/internal/contextbuild"
	"github.com/codegraph/codegraph/internal/query"
	"github.com/codegraph/codegraph/internal/store"
)

// maxResponseChars is the length to which the context summary and each
// node signature are truncated. The length of a tool response as a whole
// is not measured or capped.
const maxResponseChars = 15000

// maxResponseNodes caps how many NodeSummary entries any one tool
// response carries; applied uniformly by every handler that returns a
// node list, not just the ones that happen to return prose.
const maxResponseNodes = 500

// Service holds the store and query engine backing every tool handler.
type Service struct {
	s store.Store
	q *query.Engine
}

func NewService(s store.Store) *Service {
	return &Service{s: s, q: query.New(s)}
}

func (svc *Service) Search(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	results, err := svc.s.SearchNodes(ctx, input.Query, limit)
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("search nodes: %w", err)
	}

	out := SearchOutput{Total: len(results)}
	for _, r := range results {
		if input.Path != "" && !strings.HasPrefix(r.Node.FilePath, input.Path) {
			continue
		}
		out.Results = append(out.Results, toSummary(r.Node, r.Score))
	}
	out.Results = capNodes(out.Results)
	return nil, out, nil
}

func (svc *Service) Context(ctx context.Context, _ *mcp.CallToolRequest, input ContextInput) (*mcp.CallToolResult, ContextOutput, error) {
	if strings.TrimSpace(input.Task) == "" {
		return nil, ContextOutput{}, fmt.Errorf("task is required")
	}
	result, err := contextbuild.Build(ctx, svc.s, input.Task, input.Path, 10)
	if err != nil {
		return nil, ContextOutput{}, err
	}

	summaries := make([]NodeSummary, len(result.Nodes))
	for i, n := range result.Nodes {
		summaries[i] = toSummary(n, 0)
	}
	return nil, ContextOutput{Summary: truncate(result.Summary), Nodes: capNodes(summaries)}, nil
}

func (svc *Service) Callers(ctx context.Context, _ *mcp.CallToolRequest, input CallersInput) (*mcp.CallToolResult, SubgraphOutput, error) {
	if input.NodeID == "" {
		return nil, SubgraphOutput{}, fmt.Errorf("nodeId is required")
	}
	depth := input.MaxDepth
	if depth <= 0 {
		depth = 5
	}
	sub, err := svc.q.Callers(ctx, input.NodeID, depth)
	if err != nil {
		return nil, SubgraphOutput{}, fmt.Errorf("find callers: %w", err)
	}
	return nil, toSubgraphOutput(sub), nil
}

func (svc *Service) Callees(ctx context.Context, _ *mcp.CallToolRequest, input CalleesInput) (*mcp.CallToolResult, SubgraphOutput, error) {
	if input.NodeID == "" {
		return nil, SubgraphOutput{}, fmt.Errorf("nodeId is required")
	}
	depth := input.MaxDepth
	if depth <= 0 {
		depth = 5
	}
	sub, err := svc.q.Callees(ctx, input.NodeID, depth)
	if err != nil {
		return nil, SubgraphOutput{}, fmt.Errorf("find callees: %w", err)
	}
	return nil, toSubgraphOutput(sub), nil
}

func (svc *Service) Impact(ctx context.Context, _ *mcp.CallToolRequest, input ImpactInput) (*mcp.CallToolResult, SubgraphOutput, error) {
	if input.NodeID == "" {
		return nil, SubgraphOutput{}, fmt.Errorf("nodeId is required")
	}
	depth := input.MaxDepth
	if depth <= 0 {
		depth = 10
	}
	sub, err := svc.q.Impact(ctx, input.NodeID, depth)
	if err != nil {
		return nil, SubgraphOutput{}, fmt.Errorf("assess impact: %w", err)
	}
	return nil, toSubgraphOutput(sub), nil
}

func (svc *Service) Node(ctx context.Context, _ *mcp.CallToolRequest, input NodeInput) (*mcp.CallToolResult, NodeOutput, error) {
	if input.NodeID == "" {
		return nil, NodeOutput{}, fmt.Errorf("nodeId is required")
	}
	n, err := svc.s.GetNodeByID(ctx, input.NodeID)
	if err == store.ErrNotFound {
		return nil, NodeOutput{Found: false}, nil
	}
	if err != nil {
		return nil, NodeOutput{}, fmt.Errorf("get node: %w", err)
	}
	summary := toSummary(*n, 0)
	return nil, NodeOutput{Node: &summary, Found: true}, nil
}

func (svc *Service) Status(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	stats, err := svc.s.GetStats(ctx)
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("get stats: %w", err)
	}
	return nil, StatusOutput{
		NodeCount:       stats.NodeCount,
		EdgeCount:       stats.EdgeCount,
		FileCount:       stats.FileCount,
		UnresolvedCount: stats.UnresolvedCount,
		NodesByKind:     stats.NodesByKind,
		DatabaseBytes:   stats.DatabaseBytes,
	}, nil
}

func toSubgraphOutput(sub *query.Subgraph) SubgraphOutput {
	out := SubgraphOutput{Roots: sub.Roots}
	for _, n := range sub.Nodes {
		out.Nodes = append(out.Nodes, toSummary(n, 0))
	}
	out.Nodes = capNodes(out.Nodes)
	return out
}

// capNodes bounds a NodeSummary list at maxResponseNodes, applied by every
// handler that returns one (Search, Context, Callers, Callees, Impact) so
// an unexpectedly large subgraph or result set can't flood a client.
func capNodes(nodes []NodeSummary) []NodeSummary {
	if len(nodes) > maxResponseNodes {
		return nodes[:maxResponseNodes]
	}
	return nodes
}

func truncate(s string) string {
	if len(s) <= maxResponseChars {
		return s
	}
	return s[:maxResponseChars] + "..."
}
