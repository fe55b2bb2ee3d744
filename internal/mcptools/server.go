package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewServer creates an MCP server with all 7 codegraph tools registered.
func NewServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "codegraph",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "codegraph_search",
		Description: "Search indexed symbols by name, qualified name, docstring, or signature substring.",
	}, svc.Search)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "codegraph_context",
		Description: "Gather the symbols most relevant to a free-text task description, with a prose summary.",
	}, svc.Context)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "codegraph_callers",
		Description: "Find every symbol with a call path into the given node, up to maxDepth hops.",
	}, svc.Callers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "codegraph_callees",
		Description: "Find every symbol reachable by calls from the given node, up to maxDepth hops.",
	}, svc.Callees)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "codegraph_impact",
		Description: "Compute the blast radius of changing the given node: every caller that could be affected.",
	}, svc.Impact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "codegraph_node",
		Description: "Fetch one node's full record by ID.",
	}, svc.Node)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "codegraph_status",
		Description: "Report graph population statistics: node/edge/file counts and database size.",
	}, svc.Status)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin
// is closed or the context is cancelled. The tool server is a
// single-threaded, cooperative event loop: each request runs to
// completion before the next is read.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
