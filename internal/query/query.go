// Package query implements graph traversal over a Store: a single BFS
// primitive parameterized by direction, edge-kind, and node-kind filters,
// plus the derived queries built on top of it.
package query

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/store"
)

// Direction controls which edges a traversal follows from each frontier
// node.
type Direction int

const (
	DirectionOutgoing Direction = iota
	DirectionIncoming
	DirectionBoth
)

// Params configures one traversal. EdgeKinds and NodeKinds are filters;
// an empty slice means "any kind". MaxDepth bounds how many hops from the
// start set are followed; Limit bounds the total number of nodes returned
// (0 means unbounded).
type Params struct {
	Start     []string
	Direction Direction
	EdgeKinds []graph.EdgeKind
	NodeKinds []graph.NodeKind
	MaxDepth  int
	Limit     int
}

// Subgraph is the materialized result of a traversal: the visited nodes
// other than the start nodes (filtered by NodeKinds), the edges followed,
// and the start node IDs, which appear only in Roots.
type Subgraph struct {
	Nodes []graph.Node
	Edges []graph.Edge
	Roots []string
}

// Engine runs traversals against a Store.
type Engine struct {
	s store.Store
}

func New(s store.Store) *Engine {
	return &Engine{s: s}
}

// ids assigns each node ID a dense integer so traversal's visited set can
// be a roaring.Bitmap instead of a Go map, the way a hot BFS path would
// track visitation over a large node population.
type ids struct {
	toInt map[string]uint32
	next  uint32
}

func newIDs() *ids { return &ids{toInt: make(map[string]uint32)} }

func (m *ids) intern(id string) uint32 {
	if n, ok := m.toInt[id]; ok {
		return n
	}
	n := m.next
	m.toInt[id] = n
	m.next++
	return n
}

func nodeKindAllowed(kind graph.NodeKind, allowed []graph.NodeKind) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}

// Traverse runs a breadth-first search from Params.Start, following edges
// per Params.Direction and Params.EdgeKinds, stopping at MaxDepth hops or
// once Limit nodes have been collected.
func (e *Engine) Traverse(ctx context.Context, p Params) (*Subgraph, error) {
	visited := roaring.New()
	interned := newIDs()
	result := &Subgraph{Roots: append([]string{}, p.Start...)}
	nodeByID := make(map[string]graph.Node)
	edgeSeen := make(map[int64]bool)
	isRoot := make(map[string]bool, len(p.Start))
	for _, id := range p.Start {
		isRoot[id] = true
	}

	type frontierEntry struct {
		id    string
		depth int
	}
	var frontier []frontierEntry
	for _, id := range p.Start {
		n := interned.intern(id)
		if !visited.Contains(n) {
			visited.Add(n)
			frontier = append(frontier, frontierEntry{id: id, depth: 0})
		}
	}

	for len(frontier) > 0 {
		var next []frontierEntry
		for _, cur := range frontier {
			if p.Limit > 0 && len(nodeByID) >= p.Limit {
				break
			}
			if !isRoot[cur.id] {
				node, err := e.s.GetNodeByID(ctx, cur.id)
				if err == nil && nodeKindAllowed(node.Kind, p.NodeKinds) {
					nodeByID[cur.id] = *node
				}
			}

			if p.MaxDepth > 0 && cur.depth >= p.MaxDepth {
				continue
			}

			edges, err := e.neighbors(ctx, cur.id, p)
			if err != nil {
				return nil, fmt.Errorf("fetch neighbors of %s: %w", cur.id, err)
			}
			for _, edge := range edges {
				if !edgeSeen[edge.ID] {
					edgeSeen[edge.ID] = true
					result.Edges = append(result.Edges, edge)
				}
				other := edge.Target
				if edge.Source != cur.id {
					other = edge.Source
				}
				dense := interned.intern(other)
				if visited.Contains(dense) {
					continue
				}
				visited.Add(dense)
				next = append(next, frontierEntry{id: other, depth: cur.depth + 1})
			}
		}
		frontier = next
	}

	for _, n := range nodeByID {
		result.Nodes = append(result.Nodes, n)
	}
	return result, nil
}

func (e *Engine) neighbors(ctx context.Context, id string, p Params) ([]graph.Edge, error) {
	switch p.Direction {
	case DirectionOutgoing:
		return e.s.GetOutgoingEdges(ctx, id, p.EdgeKinds)
	case DirectionIncoming:
		return e.s.GetIncomingEdges(ctx, id, p.EdgeKinds)
	default:
		out, err := e.s.GetOutgoingEdges(ctx, id, p.EdgeKinds)
		if err != nil {
			return nil, err
		}
		in, err := e.s.GetIncomingEdges(ctx, id, p.EdgeKinds)
		if err != nil {
			return nil, err
		}
		return append(out, in...), nil
	}
}

// Callers returns every node with a path of Calls edges into nodeID, up
// to maxDepth hops away.
func (e *Engine) Callers(ctx context.Context, nodeID string, maxDepth int) (*Subgraph, error) {
	return e.Traverse(ctx, Params{
		Start:     []string{nodeID},
		Direction: DirectionIncoming,
		EdgeKinds: []graph.EdgeKind{graph.EdgeCalls},
		MaxDepth:  maxDepth,
	})
}

// Callees returns every node reachable from nodeID by following Calls
// edges forward, up to maxDepth hops away.
func (e *Engine) Callees(ctx context.Context, nodeID string, maxDepth int) (*Subgraph, error) {
	return e.Traverse(ctx, Params{
		Start:     []string{nodeID},
		Direction: DirectionOutgoing,
		EdgeKinds: []graph.EdgeKind{graph.EdgeCalls},
		MaxDepth:  maxDepth,
	})
}

// Impact returns the full set of callers that would be affected by a
// change to nodeID, found by walking Calls edges backward to maxDepth.
func (e *Engine) Impact(ctx context.Context, nodeID string, maxDepth int) (*Subgraph, error) {
	return e.Callers(ctx, nodeID, maxDepth)
}

// CallGraph returns the bidirectional Calls neighborhood of nodeID: who
// calls it and who it calls, to maxDepth hops in either direction.
func (e *Engine) CallGraph(ctx context.Context, nodeID string, maxDepth int) (*Subgraph, error) {
	return e.Traverse(ctx, Params{
		Start:     []string{nodeID},
		Direction: DirectionBoth,
		EdgeKinds: []graph.EdgeKind{graph.EdgeCalls},
		MaxDepth:  maxDepth,
	})
}

// TypeHierarchy returns every type related to nodeID by Implements or
// Extends edges, in either direction, to maxDepth hops.
func (e *Engine) TypeHierarchy(ctx context.Context, nodeID string, maxDepth int) (*Subgraph, error) {
	return e.Traverse(ctx, Params{
		Start:     []string{nodeID},
		Direction: DirectionBoth,
		EdgeKinds: []graph.EdgeKind{graph.EdgeImplements, graph.EdgeExtends},
		MaxDepth:  maxDepth,
	})
}

// testAnnotatedPrefixes names qualified-name segments conventionally used
// by test code across the supported languages; dead_code excludes any
// node whose qualified name contains one of them, since test entry points
// legitimately have no callers.
var testAnnotatedPrefixes = []string{"Test", "test_", "_test"}

func looksLikeTest(qualifiedName string) bool {
	for _, p := range testAnnotatedPrefixes {
		if len(qualifiedName) >= len(p) {
			for i := 0; i+len(p) <= len(qualifiedName); i++ {
				if qualifiedName[i:i+len(p)] == p {
					return true
				}
			}
		}
	}
	return false
}

// DeadCode returns every node of the given kinds that has zero incoming
// edges, excluding "main" entry points, Pub (exported) declarations, and
// anything whose qualified name marks it as test code.
func (e *Engine) DeadCode(ctx context.Context, kinds []graph.NodeKind) ([]graph.Node, error) {
	var candidates []graph.Node
	for _, k := range kinds {
		nodes, err := e.s.GetNodesByKind(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("list nodes of kind %s: %w", k, err)
		}
		candidates = append(candidates, nodes...)
	}

	var dead []graph.Node
	for _, n := range candidates {
		if n.Name == "main" || n.Visibility == graph.VisibilityPub || looksLikeTest(n.QualifiedName) {
			continue
		}
		incoming, err := e.s.GetIncomingEdges(ctx, n.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("incoming edges for %s: %w", n.ID, err)
		}
		if len(incoming) == 0 {
			dead = append(dead, n)
		}
	}
	return dead, nil
}
