// Package store implements the embedded relational persistence layer:
// nodes, edges, files, unresolved refs, and vectors, plus a full-text
// mirror of nodes kept in sync by triggers.
package store

import (
	"context"
	"io"

	"github.com/codegraph/codegraph/internal/graph"
)

// SearchResult is one full-text or fallback match from SearchNodes.
type SearchResult struct {
	Node  graph.Node
	Score float64
}

// Store is the public contract the rest of the core depends on. Every
// implementation must uphold file-scoped deletion atomicity: readers
// never observe a file half re-indexed.
type Store interface {
	io.Closer

	InitSchema(ctx context.Context) error

	UpsertNode(ctx context.Context, n graph.Node) error
	UpsertNodes(ctx context.Context, nodes []graph.Node) error
	GetNodeByID(ctx context.Context, id string) (*graph.Node, error)
	GetNodesByFile(ctx context.Context, path string) ([]graph.Node, error)
	GetNodesByKind(ctx context.Context, kind graph.NodeKind) ([]graph.Node, error)

	InsertEdge(ctx context.Context, e graph.Edge) error
	InsertEdges(ctx context.Context, edges []graph.Edge) error
	GetOutgoingEdges(ctx context.Context, source string, kinds []graph.EdgeKind) ([]graph.Edge, error)
	GetIncomingEdges(ctx context.Context, target string, kinds []graph.EdgeKind) ([]graph.Edge, error)

	DeleteNodesByFile(ctx context.Context, path string) error
	SearchNodes(ctx context.Context, q string, limit int) ([]SearchResult, error)

	// ReplaceFile atomically clears path's prior nodes (and their cascaded
	// edges/refs/vectors) and repopulates it with nodes, edges, and refs,
	// then records fr as the file's new indexed state — all as one
	// indivisible unit, so a concurrent reader only ever observes the
	// pre-replace or post-replace state of the file, never a partial one.
	ReplaceFile(ctx context.Context, path string, nodes []graph.Node, edges []graph.Edge, refs []graph.UnresolvedRef, fr graph.FileRecord) error

	UpsertFile(ctx context.Context, fr graph.FileRecord) error
	GetFile(ctx context.Context, path string) (*graph.FileRecord, error)
	DeleteFile(ctx context.Context, path string) error
	ListFiles(ctx context.Context) ([]graph.FileRecord, error)

	InsertUnresolvedRefs(ctx context.Context, refs []graph.UnresolvedRef) error
	ListUnresolvedRefs(ctx context.Context) ([]graph.UnresolvedRef, error)
	DeleteUnresolvedRefsByIDs(ctx context.Context, ids []int64) error

	UpsertVector(ctx context.Context, v graph.Vector) error
	GetVector(ctx context.Context, nodeID string) (*graph.Vector, error)

	GetStats(ctx context.Context) (*graph.Stats, error)
}

// ErrNotFound is returned by single-row lookups when no row matches.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "store: not found" }

// ErrCorrupt signals that the underlying database failed an integrity
// check; the CLI maps this to exit code 2.
var ErrCorrupt = corruptError{}

type corruptError struct{}

func (corruptError) Error() string { return "store: corrupt database" }
