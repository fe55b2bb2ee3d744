package mcptools

import "github.com/codegraph/codegraph/internal/graph"

// --- MCP Tool Input/Output Types ---
// These structs define the JSON schema for each MCP tool. The MCP Go SDK
// auto-generates JSON schemas from the struct tags below.

// SearchInput is the input for the codegraph_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"search query matched against symbol names, qualified names, docstrings, and signatures"`
	Path  string `json:"path,omitempty" jsonschema:"restrict results to this file path prefix"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default: 20)"`
}

// SearchOutput is the result of codegraph_search.
type SearchOutput struct {
	Results []NodeSummary `json:"results"`
	Total   int           `json:"total"`
}

// NodeSummary is the tool-facing projection of a graph.Node plus search
// score, trimmed to the fields worth surfacing over the wire.
type NodeSummary struct {
	ID            string  `json:"id"`
	Kind          string  `json:"kind"`
	Name          string  `json:"name"`
	QualifiedName string  `json:"qualifiedName"`
	FilePath      string  `json:"filePath"`
	StartLine     int     `json:"startLine"`
	Signature     string  `json:"signature,omitempty"`
	Score         float64 `json:"score,omitempty"`
}

func toSummary(n graph.Node, score float64) NodeSummary {
	return NodeSummary{
		ID: n.ID, Kind: string(n.Kind), Name: n.Name, QualifiedName: n.QualifiedName,
		FilePath: n.FilePath, StartLine: n.StartLine, Signature: truncate(n.Signature), Score: score,
	}
}

// ContextInput is the input for the codegraph_context tool.
type ContextInput struct {
	Task string `json:"task" jsonschema:"free-text description of the task to gather context for"`
	Path string `json:"path,omitempty" jsonschema:"restrict search to this file path prefix"`
}

// ContextOutput is the result of codegraph_context: a formatted prose
// summary plus the raw nodes it was built from.
type ContextOutput struct {
	Summary string        `json:"summary"`
	Nodes   []NodeSummary `json:"nodes"`
}

// CallersInput is the input for codegraph_callers.
type CallersInput struct {
	NodeID   string `json:"nodeId" jsonschema:"node ID to find callers of"`
	MaxDepth int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// CalleesInput is the input for codegraph_callees.
type CalleesInput struct {
	NodeID   string `json:"nodeId" jsonschema:"node ID to find callees of"`
	MaxDepth int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// SubgraphOutput is the shared result shape for callers/callees/impact.
type SubgraphOutput struct {
	Nodes []NodeSummary `json:"nodes"`
	Roots []string      `json:"roots"`
}

// ImpactInput is the input for codegraph_impact.
type ImpactInput struct {
	NodeID   string `json:"nodeId" jsonschema:"node ID to assess the blast radius of"`
	MaxDepth int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 10)"`
}

// NodeInput is the input for codegraph_node.
type NodeInput struct {
	NodeID string `json:"nodeId" jsonschema:"node ID to fetch"`
}

// NodeOutput is the result of codegraph_node.
type NodeOutput struct {
	Node *NodeSummary `json:"node,omitempty"`
	Found bool        `json:"found"`
}

// StatusInput is the input for codegraph_status.
type StatusInput struct{}

// StatusOutput is the result of codegraph_status.
type StatusOutput struct {
	NodeCount       int            `json:"nodeCount"`
	EdgeCount       int            `json:"edgeCount"`
	FileCount       int            `json:"fileCount"`
	UnresolvedCount int            `json:"unresolvedCount"`
	NodesByKind     map[string]int `json:"nodesByKind"`
	DatabaseBytes   int64          `json:"databaseBytes"`
}
