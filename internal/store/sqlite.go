package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/codegraph/codegraph/internal/graph"
)

// SQLiteStore is the production Store backed by a single embedded SQLite
// database file, write-ahead logging, foreign keys on, and a long busy
// timeout so concurrent readers never fail outright under a writer.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if necessary) the database at path and configures
// it per the store's concurrency contract: WAL mode, foreign keys on, a
// two-minute busy timeout.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=120000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure database (%s): %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.CheckIntegrity(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMemory opens an in-process, non-persistent database, used by tests
// that want real SQL semantics without a file on disk.
func OpenMemory() (*SQLiteStore, error) {
	return Open(":memory:")
}

// CheckIntegrity runs SQLite's own `PRAGMA integrity_check` and returns
// ErrCorrupt, wrapping the check's detail, if it reports anything other
// than "ok". Open runs this once on every database it opens, so a
// corrupted file is rejected before any caller can observe it.
func (s *SQLiteStore) CheckIntegrity(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", ErrCorrupt, result)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

const schemaNodes = `
CREATE TABLE IF NOT EXISTS nodes (
	id             TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	name           TEXT NOT NULL,
	qualified_name TEXT NOT NULL,
	file_path      TEXT NOT NULL,
	start_line     INTEGER NOT NULL,
	end_line       INTEGER NOT NULL,
	start_column   INTEGER NOT NULL DEFAULT 0,
	end_column     INTEGER NOT NULL DEFAULT 0,
	signature      TEXT,
	docstring      TEXT,
	visibility     TEXT NOT NULL DEFAULT 'Private',
	is_async       INTEGER NOT NULL DEFAULT 0,
	updated_at     INTEGER NOT NULL
)`

const schemaEdges = `
CREATE TABLE IF NOT EXISTS edges (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	kind      TEXT NOT NULL,
	line      INTEGER,
	FOREIGN KEY (source_id) REFERENCES nodes(id) ON DELETE CASCADE,
	FOREIGN KEY (target_id) REFERENCES nodes(id) ON DELETE CASCADE
)`

const schemaFiles = `
CREATE TABLE IF NOT EXISTS files (
	path          TEXT PRIMARY KEY,
	content_hash  TEXT NOT NULL,
	size          INTEGER NOT NULL,
	modified_at   INTEGER NOT NULL,
	indexed_at    INTEGER NOT NULL,
	node_count    INTEGER NOT NULL DEFAULT 0
)`

const schemaUnresolvedRefs = `
CREATE TABLE IF NOT EXISTS unresolved_refs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	from_node_id   TEXT NOT NULL,
	reference_name TEXT NOT NULL,
	reference_kind TEXT NOT NULL,
	line           INTEGER NOT NULL,
	column         INTEGER NOT NULL,
	file_path      TEXT NOT NULL
)`

const schemaVectors = `
CREATE TABLE IF NOT EXISTS vectors (
	node_id    TEXT PRIMARY KEY,
	embedding  BLOB NOT NULL,
	model      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
)`

const schemaVersions = `
CREATE TABLE IF NOT EXISTS schema_versions (
	version    INTEGER NOT NULL,
	applied_at INTEGER NOT NULL
)`

var schemaIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind)",
	"CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name)",
	"CREATE INDEX IF NOT EXISTS idx_nodes_qualified_name ON nodes(qualified_name)",
	"CREATE INDEX IF NOT EXISTS idx_nodes_file_path ON nodes(file_path)",
	"CREATE INDEX IF NOT EXISTS idx_nodes_file_line ON nodes(file_path, start_line)",
	"CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)",
	"CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)",
	"CREATE INDEX IF NOT EXISTS idx_edges_kind ON edges(kind)",
	"CREATE INDEX IF NOT EXISTS idx_edges_source_kind ON edges(source_id, kind)",
	"CREATE INDEX IF NOT EXISTS idx_edges_target_kind ON edges(target_id, kind)",
	"CREATE INDEX IF NOT EXISTS idx_unresolved_from ON unresolved_refs(from_node_id)",
	"CREATE INDEX IF NOT EXISTS idx_unresolved_name ON unresolved_refs(reference_name)",
	"CREATE INDEX IF NOT EXISTS idx_unresolved_file ON unresolved_refs(file_path)",
}

const schemaVersion = 1

// InitSchema creates every table and index this store needs, then the
// FTS5 virtual table and its sync triggers outside the transaction (SQLite
// does not allow virtual table DDL inside one).
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []string{schemaNodes, schemaEdges, schemaFiles, schemaUnresolvedRefs, schemaVectors, schemaVersions}
	for _, ddl := range tables {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, ddl := range schemaIndexes {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_versions").Scan(&count); err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}
	if count == 0 {
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_versions(version, applied_at) VALUES (?, ?)", schemaVersion, time.Now().Unix()); err != nil {
			return fmt.Errorf("seed schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
		name, qualified_name, docstring, signature, content='nodes', content_rowid='rowid'
	)`); err != nil {
		return fmt.Errorf("create nodes_fts: %w", err)
	}

	return s.createFTSTriggers(ctx)
}

// createFTSTriggers keeps nodes_fts in lock-step with nodes. SQLite
// requires these outside any transaction that also creates the virtual
// table, so InitSchema calls this after committing the base schema.
func (s *SQLiteStore) createFTSTriggers(ctx context.Context) error {
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS nodes_ai AFTER INSERT ON nodes BEGIN
			INSERT INTO nodes_fts(rowid, name, qualified_name, docstring, signature)
			VALUES (new.rowid, new.name, new.qualified_name, new.docstring, new.signature);
		END`,
		`CREATE TRIGGER IF NOT EXISTS nodes_ad AFTER DELETE ON nodes BEGIN
			INSERT INTO nodes_fts(nodes_fts, rowid, name, qualified_name, docstring, signature)
			VALUES ('delete', old.rowid, old.name, old.qualified_name, old.docstring, old.signature);
		END`,
		`CREATE TRIGGER IF NOT EXISTS nodes_au AFTER UPDATE ON nodes BEGIN
			INSERT INTO nodes_fts(nodes_fts, rowid, name, qualified_name, docstring, signature)
			VALUES ('delete', old.rowid, old.name, old.qualified_name, old.docstring, old.signature);
			INSERT INTO nodes_fts(rowid, name, qualified_name, docstring, signature)
			VALUES (new.rowid, new.name, new.qualified_name, new.docstring, new.signature);
		END`,
	}
	for _, t := range triggers {
		if _, err := s.db.ExecContext(ctx, t); err != nil {
			return fmt.Errorf("create fts trigger: %w", err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteStore) UpsertNode(ctx context.Context, n graph.Node) error {
	return s.UpsertNodes(ctx, []graph.Node{n})
}

// UpsertNodes replaces rows by id within a single transaction spanning
// every row, matching the store's batch-insertion contract.
func (s *SQLiteStore) UpsertNodes(ctx context.Context, nodes []graph.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert nodes: %w", err)
	}
	defer tx.Rollback()

	if err := upsertNodesTx(ctx, tx, nodes); err != nil {
		return err
	}
	return tx.Commit()
}

// upsertNodesTx is the transaction-scoped body of UpsertNodes, shared
// with ReplaceFile so both can run inside one caller-owned transaction.
func upsertNodesTx(ctx context.Context, tx *sql.Tx, nodes []graph.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes
		(id, kind, name, qualified_name, file_path, start_line, end_line, start_column, end_column, signature, docstring, visibility, is_async, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			kind=excluded.kind, name=excluded.name, qualified_name=excluded.qualified_name,
			file_path=excluded.file_path, start_line=excluded.start_line, end_line=excluded.end_line,
			start_column=excluded.start_column, end_column=excluded.end_column,
			signature=excluded.signature, docstring=excluded.docstring, visibility=excluded.visibility,
			is_async=excluded.is_async, updated_at=excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert node: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx, n.ID, string(n.Kind), n.Name, n.QualifiedName, n.FilePath,
			n.StartLine, n.EndLine, n.StartColumn, n.EndColumn, n.Signature, n.Docstring,
			string(n.Visibility), boolToInt(n.IsAsync), n.UpdatedAt); err != nil {
			return fmt.Errorf("upsert node %s: %w", n.ID, err)
		}
	}
	return nil
}

func scanNode(row interface {
	Scan(dest ...any) error
}) (*graph.Node, error) {
	var n graph.Node
	var kind, vis string
	var isAsync int
	if err := row.Scan(&n.ID, &kind, &n.Name, &n.QualifiedName, &n.FilePath, &n.StartLine, &n.EndLine,
		&n.StartColumn, &n.EndColumn, &n.Signature, &n.Docstring, &vis, &isAsync, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Kind = graph.ParseNodeKind(kind)
	n.Visibility = graph.Visibility(vis)
	n.IsAsync = isAsync != 0
	return &n, nil
}

const nodeColumns = "id, kind, name, qualified_name, file_path, start_line, end_line, start_column, end_column, signature, docstring, visibility, is_async, updated_at"

func (s *SQLiteStore) GetNodeByID(ctx context.Context, id string) (*graph.Node, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	return n, nil
}

func (s *SQLiteStore) queryNodes(ctx context.Context, query string, args ...any) ([]graph.Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()
	var result []graph.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) GetNodesByFile(ctx context.Context, path string) ([]graph.Node, error) {
	return s.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE file_path = ? ORDER BY start_line", path)
}

func (s *SQLiteStore) GetNodesByKind(ctx context.Context, kind graph.NodeKind) ([]graph.Node, error) {
	return s.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE kind = ?", string(kind))
}

func (s *SQLiteStore) InsertEdge(ctx context.Context, e graph.Edge) error {
	return s.InsertEdges(ctx, []graph.Edge{e})
}

// InsertEdges is append-only: duplicates at different call sites are
// distinguished by the implicit autoincrement surrogate key.
func (s *SQLiteStore) InsertEdges(ctx context.Context, edges []graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert edges: %w", err)
	}
	defer tx.Rollback()

	if err := insertEdgesTx(ctx, tx, edges); err != nil {
		return err
	}
	return tx.Commit()
}

// insertEdgesTx is the transaction-scoped body of InsertEdges.
func insertEdgesTx(ctx context.Context, tx *sql.Tx, edges []graph.Edge) error {
	if len(edges) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO edges(source_id, target_id, kind, line) VALUES (?,?,?,?)")
	if err != nil {
		return fmt.Errorf("prepare insert edge: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		var line any
		if e.HasLine {
			line = e.Line
		}
		if _, err := stmt.ExecContext(ctx, e.Source, e.Target, string(e.Kind), line); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return nil
}

func (s *SQLiteStore) queryEdges(ctx context.Context, base string, endpoint string, kinds []graph.EdgeKind) ([]graph.Edge, error) {
	query := base
	args := []any{endpoint}
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, k := range kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		query += " AND kind IN (" + strings.Join(placeholders, ",") + ")"
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()
	var result []graph.Edge
	for rows.Next() {
		var e graph.Edge
		var kind string
		var line sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &kind, &line); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = graph.EdgeKind(kind)
		if line.Valid {
			e.Line = int(line.Int64)
			e.HasLine = true
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) GetOutgoingEdges(ctx context.Context, source string, kinds []graph.EdgeKind) ([]graph.Edge, error) {
	return s.queryEdges(ctx, "SELECT id, source_id, target_id, kind, line FROM edges WHERE source_id = ?", source, kinds)
}

func (s *SQLiteStore) GetIncomingEdges(ctx context.Context, target string, kinds []graph.EdgeKind) ([]graph.Edge, error) {
	return s.queryEdges(ctx, "SELECT id, source_id, target_id, kind, line FROM edges WHERE target_id = ?", target, kinds)
}

// DeleteNodesByFile performs the transactional cascade the store's
// correctness invariant requires: edges referencing the file's nodes,
// then unresolved refs, then vectors, then the nodes themselves, all in
// one transaction so readers never see a half-deleted file.
func (s *SQLiteStore) DeleteNodesByFile(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete nodes by file: %w", err)
	}
	defer tx.Rollback()

	if err := deleteNodesByFileTx(ctx, tx, path); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteNodesByFileTx is the transaction-scoped body of DeleteNodesByFile.
func deleteNodesByFileTx(ctx context.Context, tx *sql.Tx, path string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source_id IN (SELECT id FROM nodes WHERE file_path = ?)
		OR target_id IN (SELECT id FROM nodes WHERE file_path = ?)`, path, path); err != nil {
		return fmt.Errorf("delete edges for %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM unresolved_refs WHERE file_path = ?", path); err != nil {
		return fmt.Errorf("delete unresolved refs for %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM vectors WHERE node_id IN (SELECT id FROM nodes WHERE file_path = ?)", path); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", path, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE file_path = ?", path); err != nil {
		return fmt.Errorf("delete nodes for %s: %w", path, err)
	}
	return nil
}

// ReplaceFile runs the delete-then-repopulate cycle for one file as a
// single transaction: readers never observe nodes deleted but not yet
// reinserted, only the file's pre-replace or post-replace state.
func (s *SQLiteStore) ReplaceFile(ctx context.Context, path string, nodes []graph.Node, edges []graph.Edge, refs []graph.UnresolvedRef, fr graph.FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace file: %w", err)
	}
	defer tx.Rollback()

	if err := deleteNodesByFileTx(ctx, tx, path); err != nil {
		return err
	}
	if err := upsertNodesTx(ctx, tx, nodes); err != nil {
		return err
	}
	if err := insertEdgesTx(ctx, tx, edges); err != nil {
		return err
	}
	if err := insertUnresolvedRefsTx(ctx, tx, refs); err != nil {
		return err
	}
	if err := upsertFileTx(ctx, tx, fr); err != nil {
		return err
	}
	return tx.Commit()
}

// SearchNodes runs an FTS5 prefix query and falls back to a LIKE scan of
// name/qualified_name when FTS finds nothing, per the store's documented
// fallback contract. FTS rank (more negative is better) is negated into a
// positive score; fallback matches default to a score of 0.5.
func (s *SQLiteStore) SearchNodes(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	ftsQuery := strings.TrimSpace(q) + "*"
	rows, err := s.db.QueryContext(ctx, `SELECT n.`+nodeColumns+`, -bm25(nodes_fts) AS score
		FROM nodes_fts JOIN nodes n ON n.rowid = nodes_fts.rowid
		WHERE nodes_fts MATCH ? ORDER BY score DESC LIMIT ?`, ftsQuery, limit)
	if err == nil {
		defer rows.Close()
		var results []SearchResult
		for rows.Next() {
			n, score, err := scanNodeWithScore(rows)
			if err != nil {
				return nil, fmt.Errorf("scan fts result: %w", err)
			}
			results = append(results, SearchResult{Node: *n, Score: score})
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if len(results) > 0 {
			return results, nil
		}
	}

	return s.likeFallbackSearch(ctx, q, limit)
}

// likeFallbackSearch runs the LIKE-based fallback as two separate scans —
// by name, then by qualified name — and merges them through an ordered
// map so a node matching both keeps its first-seen rank instead of being
// listed twice.
func (s *SQLiteStore) likeFallbackSearch(ctx context.Context, q string, limit int) ([]SearchResult, error) {
	like := "%" + q + "%"
	seen := orderedmap.New[string, graph.Node]()

	byName, err := s.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE name LIKE ? LIMIT ?", like, limit)
	if err != nil {
		return nil, fmt.Errorf("fallback search by name: %w", err)
	}
	for _, n := range byName {
		seen.Set(n.ID, n)
	}

	byQualified, err := s.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE qualified_name LIKE ? LIMIT ?", like, limit)
	if err != nil {
		return nil, fmt.Errorf("fallback search by qualified name: %w", err)
	}
	for _, n := range byQualified {
		if _, ok := seen.Get(n.ID); !ok {
			seen.Set(n.ID, n)
		}
	}

	var results []SearchResult
	for pair := seen.Oldest(); pair != nil && len(results) < limit; pair = pair.Next() {
		results = append(results, SearchResult{Node: pair.Value, Score: 0.5})
	}
	return results, nil
}

func scanNodeWithScore(rows *sql.Rows) (*graph.Node, float64, error) {
	var n graph.Node
	var kind, vis string
	var isAsync int
	var score float64
	if err := rows.Scan(&n.ID, &kind, &n.Name, &n.QualifiedName, &n.FilePath, &n.StartLine, &n.EndLine,
		&n.StartColumn, &n.EndColumn, &n.Signature, &n.Docstring, &vis, &isAsync, &n.UpdatedAt, &score); err != nil {
		return nil, 0, err
	}
	n.Kind = graph.ParseNodeKind(kind)
	n.Visibility = graph.Visibility(vis)
	n.IsAsync = isAsync != 0
	return &n, score, nil
}

func (s *SQLiteStore) UpsertFile(ctx context.Context, fr graph.FileRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO files(path, content_hash, size, modified_at, indexed_at, node_count)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash, size=excluded.size,
			modified_at=excluded.modified_at, indexed_at=excluded.indexed_at, node_count=excluded.node_count`,
		fr.Path, fr.ContentHash, fr.Size, fr.ModifiedAt, fr.IndexedAt, fr.NodeCount)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", fr.Path, err)
	}
	return nil
}

// upsertFileTx is the transaction-scoped body of UpsertFile.
func upsertFileTx(ctx context.Context, tx *sql.Tx, fr graph.FileRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO files(path, content_hash, size, modified_at, indexed_at, node_count)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(path) DO UPDATE SET content_hash=excluded.content_hash, size=excluded.size,
			modified_at=excluded.modified_at, indexed_at=excluded.indexed_at, node_count=excluded.node_count`,
		fr.Path, fr.ContentHash, fr.Size, fr.ModifiedAt, fr.IndexedAt, fr.NodeCount)
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", fr.Path, err)
	}
	return nil
}

func (s *SQLiteStore) GetFile(ctx context.Context, path string) (*graph.FileRecord, error) {
	var fr graph.FileRecord
	err := s.db.QueryRowContext(ctx, "SELECT path, content_hash, size, modified_at, indexed_at, node_count FROM files WHERE path = ?", path).
		Scan(&fr.Path, &fr.ContentHash, &fr.Size, &fr.ModifiedAt, &fr.IndexedAt, &fr.NodeCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", path, err)
	}
	return &fr, nil
}

// DeleteFile implies the file-scoped cascade: it removes the file's nodes
// (and transitively edges/refs/vectors) before the files row itself.
func (s *SQLiteStore) DeleteFile(ctx context.Context, path string) error {
	if err := s.DeleteNodesByFile(ctx, path); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete file row %s: %w", path, err)
	}
	return nil
}

func (s *SQLiteStore) ListFiles(ctx context.Context) ([]graph.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, content_hash, size, modified_at, indexed_at, node_count FROM files")
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var result []graph.FileRecord
	for rows.Next() {
		var fr graph.FileRecord
		if err := rows.Scan(&fr.Path, &fr.ContentHash, &fr.Size, &fr.ModifiedAt, &fr.IndexedAt, &fr.NodeCount); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		result = append(result, fr)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) InsertUnresolvedRefs(ctx context.Context, refs []graph.UnresolvedRef) error {
	if len(refs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert unresolved refs: %w", err)
	}
	defer tx.Rollback()

	if err := insertUnresolvedRefsTx(ctx, tx, refs); err != nil {
		return err
	}
	return tx.Commit()
}

// insertUnresolvedRefsTx is the transaction-scoped body of InsertUnresolvedRefs.
func insertUnresolvedRefsTx(ctx context.Context, tx *sql.Tx, refs []graph.UnresolvedRef) error {
	if len(refs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO unresolved_refs
		(from_node_id, reference_name, reference_kind, line, column, file_path) VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert unresolved ref: %w", err)
	}
	defer stmt.Close()

	for _, r := range refs {
		if _, err := stmt.ExecContext(ctx, r.FromNodeID, r.ReferenceName, string(r.ReferenceKind), r.Line, r.Column, r.FilePath); err != nil {
			return fmt.Errorf("insert unresolved ref: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ListUnresolvedRefs(ctx context.Context) ([]graph.UnresolvedRef, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, from_node_id, reference_name, reference_kind, line, column, file_path FROM unresolved_refs")
	if err != nil {
		return nil, fmt.Errorf("list unresolved refs: %w", err)
	}
	defer rows.Close()
	var result []graph.UnresolvedRef
	for rows.Next() {
		var r graph.UnresolvedRef
		var kind string
		if err := rows.Scan(&r.ID, &r.FromNodeID, &r.ReferenceName, &kind, &r.Line, &r.Column, &r.FilePath); err != nil {
			return nil, fmt.Errorf("scan unresolved ref: %w", err)
		}
		r.ReferenceKind = graph.EdgeKind(kind)
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) DeleteUnresolvedRefsByIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := "DELETE FROM unresolved_refs WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete unresolved refs: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertVector(ctx context.Context, v graph.Vector) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO vectors(node_id, embedding, model, created_at) VALUES (?,?,?,?)
		ON CONFLICT(node_id) DO UPDATE SET embedding=excluded.embedding, model=excluded.model, created_at=excluded.created_at`,
		v.NodeID, v.Embedding, v.Model, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert vector for %s: %w", v.NodeID, err)
	}
	return nil
}

func (s *SQLiteStore) GetVector(ctx context.Context, nodeID string) (*graph.Vector, error) {
	var v graph.Vector
	err := s.db.QueryRowContext(ctx, "SELECT node_id, embedding, model, created_at FROM vectors WHERE node_id = ?", nodeID).
		Scan(&v.NodeID, &v.Embedding, &v.Model, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vector for %s: %w", nodeID, err)
	}
	return &v, nil
}

// GetStats summarizes the current graph population for `status` and the
// codegraph_status tool.
func (s *SQLiteStore) GetStats(ctx context.Context) (*graph.Stats, error) {
	stats := &graph.Stats{NodesByKind: make(map[string]int)}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&stats.NodeCount); err != nil {
		return nil, fmt.Errorf("count nodes: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&stats.EdgeCount); err != nil {
		return nil, fmt.Errorf("count edges: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM files").Scan(&stats.FileCount); err != nil {
		return nil, fmt.Errorf("count files: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM unresolved_refs").Scan(&stats.UnresolvedCount); err != nil {
		return nil, fmt.Errorf("count unresolved refs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM nodes GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("group nodes by kind: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan kind group: %w", err)
		}
		stats.NodesByKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&stats.DatabaseBytes); err != nil {
		stats.DatabaseBytes = 0
	}

	return stats, nil
}
