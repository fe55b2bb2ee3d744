package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/codegraph/codegraph/internal/graph"
)

// MemStore is an in-process Store backed by maps and a single mutex. It
// exists for tests that want Store semantics without opening a database
// file, and mirrors the same file-scoped deletion and search-fallback
// contracts as SQLiteStore so both can share the same test suite.
type MemStore struct {
	mu   sync.RWMutex
	next atomic.Int64

	nodes         map[string]graph.Node
	edges         map[int64]graph.Edge
	files         map[string]graph.FileRecord
	unresolved    map[int64]graph.UnresolvedRef
	vectors       map[string]graph.Vector
	unresolvedNxt atomic.Int64
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		nodes:      make(map[string]graph.Node),
		edges:      make(map[int64]graph.Edge),
		files:      make(map[string]graph.FileRecord),
		unresolved: make(map[int64]graph.UnresolvedRef),
		vectors:    make(map[string]graph.Vector),
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) InitSchema(ctx context.Context) error { return nil }

func (m *MemStore) UpsertNode(ctx context.Context, n graph.Node) error {
	return m.UpsertNodes(ctx, []graph.Node{n})
}

func (m *MemStore) UpsertNodes(ctx context.Context, nodes []graph.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertNodesLocked(nodes)
	return nil
}

func (m *MemStore) upsertNodesLocked(nodes []graph.Node) {
	for _, n := range nodes {
		m.nodes[n.ID] = n
	}
}

func (m *MemStore) GetNodeByID(ctx context.Context, id string) (*graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (m *MemStore) GetNodesByFile(ctx context.Context, path string) ([]graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []graph.Node
	for _, n := range m.nodes {
		if n.FilePath == path {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartLine < result[j].StartLine })
	return result, nil
}

func (m *MemStore) GetNodesByKind(ctx context.Context, kind graph.NodeKind) ([]graph.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []graph.Node
	for _, n := range m.nodes {
		if n.Kind == kind {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MemStore) InsertEdge(ctx context.Context, e graph.Edge) error {
	return m.InsertEdges(ctx, []graph.Edge{e})
}

func (m *MemStore) InsertEdges(ctx context.Context, edges []graph.Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertEdgesLocked(edges)
	return nil
}

func (m *MemStore) insertEdgesLocked(edges []graph.Edge) {
	for _, e := range edges {
		e.ID = m.next.Add(1)
		m.edges[e.ID] = e
	}
}

func matchesKind(kind graph.EdgeKind, kinds []graph.EdgeKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (m *MemStore) GetOutgoingEdges(ctx context.Context, source string, kinds []graph.EdgeKind) ([]graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []graph.Edge
	for _, e := range m.edges {
		if e.Source == source && matchesKind(e.Kind, kinds) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MemStore) GetIncomingEdges(ctx context.Context, target string, kinds []graph.EdgeKind) ([]graph.Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []graph.Edge
	for _, e := range m.edges {
		if e.Target == target && matchesKind(e.Kind, kinds) {
			result = append(result, e)
		}
	}
	return result, nil
}

// DeleteNodesByFile mirrors SQLiteStore's cascade order so both
// implementations can be exercised by the same atomicity-focused tests.
func (m *MemStore) DeleteNodesByFile(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteNodesByFileLocked(path)
	return nil
}

func (m *MemStore) deleteNodesByFileLocked(path string) {
	doomed := make(map[string]bool)
	for id, n := range m.nodes {
		if n.FilePath == path {
			doomed[id] = true
		}
	}
	for id, e := range m.edges {
		if doomed[e.Source] || doomed[e.Target] {
			delete(m.edges, id)
		}
	}
	for id, r := range m.unresolved {
		if r.FilePath == path {
			delete(m.unresolved, id)
		}
	}
	for id := range doomed {
		delete(m.vectors, id)
		delete(m.nodes, id)
	}
}

// SearchNodes does a case-insensitive substring scan of name/qualified_name.
// A hit whose name equals q (ignoring case) scores 1.0; every other hit
// gets SQLiteStore's LIKE-fallback score of 0.5.
func (m *MemStore) SearchNodes(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	lower := strings.ToLower(q)
	var results []SearchResult
	for _, n := range m.nodes {
		if strings.Contains(strings.ToLower(n.Name), lower) || strings.Contains(strings.ToLower(n.QualifiedName), lower) {
			score := 0.5
			if strings.EqualFold(n.Name, q) {
				score = 1.0
			}
			results = append(results, SearchResult{Node: n, Score: score})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemStore) UpsertFile(ctx context.Context, fr graph.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertFileLocked(fr)
	return nil
}

func (m *MemStore) upsertFileLocked(fr graph.FileRecord) {
	m.files[fr.Path] = fr
}

func (m *MemStore) GetFile(ctx context.Context, path string) (*graph.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fr, ok := m.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	return &fr, nil
}

func (m *MemStore) DeleteFile(ctx context.Context, path string) error {
	if err := m.DeleteNodesByFile(ctx, path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *MemStore) ListFiles(ctx context.Context) ([]graph.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]graph.FileRecord, 0, len(m.files))
	for _, fr := range m.files {
		result = append(result, fr)
	}
	return result, nil
}

func (m *MemStore) InsertUnresolvedRefs(ctx context.Context, refs []graph.UnresolvedRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertUnresolvedRefsLocked(refs)
	return nil
}

func (m *MemStore) insertUnresolvedRefsLocked(refs []graph.UnresolvedRef) {
	for _, r := range refs {
		r.ID = m.unresolvedNxt.Add(1)
		m.unresolved[r.ID] = r
	}
}

// ReplaceFile performs the same delete-then-repopulate cycle as
// SQLiteStore.ReplaceFile, holding the single mutex for the whole
// sequence so a concurrent reader never observes a half-replaced file.
func (m *MemStore) ReplaceFile(ctx context.Context, path string, nodes []graph.Node, edges []graph.Edge, refs []graph.UnresolvedRef, fr graph.FileRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteNodesByFileLocked(path)
	m.upsertNodesLocked(nodes)
	m.insertEdgesLocked(edges)
	m.insertUnresolvedRefsLocked(refs)
	m.upsertFileLocked(fr)
	return nil
}

func (m *MemStore) ListUnresolvedRefs(ctx context.Context) ([]graph.UnresolvedRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]graph.UnresolvedRef, 0, len(m.unresolved))
	for _, r := range m.unresolved {
		result = append(result, r)
	}
	return result, nil
}

func (m *MemStore) DeleteUnresolvedRefsByIDs(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.unresolved, id)
	}
	return nil
}

func (m *MemStore) UpsertVector(ctx context.Context, v graph.Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[v.NodeID] = v
	return nil
}

func (m *MemStore) GetVector(ctx context.Context, nodeID string) (*graph.Vector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vectors[nodeID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (m *MemStore) GetStats(ctx context.Context) (*graph.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &graph.Stats{
		NodeCount:       len(m.nodes),
		EdgeCount:       len(m.edges),
		FileCount:       len(m.files),
		UnresolvedCount: len(m.unresolved),
		NodesByKind:     make(map[string]int),
	}
	for _, n := range m.nodes {
		stats.NodesByKind[string(n.Kind)]++
	}
	return stats, nil
}
