// Package sync drives the enumerate-hash-diff-extract-persist pipeline
// that keeps a Store's contents matching a source tree on disk.
package sync

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/codegraph/codegraph/internal/codegraphlog"
	"github.com/codegraph/codegraph/internal/config"
	"github.com/codegraph/codegraph/internal/extract"
	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/resolve"
	"github.com/codegraph/codegraph/internal/store"
)

var log = codegraphlog.New("sync")

// indexConcurrency bounds how many files are read, extracted, and
// persisted in parallel during one sync pass. The store's own connection
// (single for SQLite, mutex-guarded for the in-memory backend) serializes
// the actual writes; the concurrency here overlaps file I/O and
// extraction across files instead.
const indexConcurrency = 8

// Orchestrator runs sync passes against one Store using one Dispatcher.
type Orchestrator struct {
	s    store.Store
	disp *extract.Dispatcher
}

func New(s store.Store, disp *extract.Dispatcher) *Orchestrator {
	return &Orchestrator{s: s, disp: disp}
}

// Report summarizes one sync run.
type Report struct {
	New          []string
	Dirty        []string
	Removed      []string
	Errors       []string
	NodesWritten int
	EdgesWritten int
	Resolved     int
	Unresolved   int
}

// Run enumerates rootDir per cfg's include/exclude globs and max file
// size, diffs the result against the store's files table by content
// hash, persists new and dirty files (each under its own transaction,
// per the store's atomicity contract), runs the resolver globally across
// the whole store, and materializes newly resolved edges.
func (o *Orchestrator) Run(ctx context.Context, rootDir string, cfg *config.Config) (*Report, error) {
	candidates, err := enumerate(rootDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("enumerate source tree: %w", err)
	}

	existing, err := o.s.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexed files: %w", err)
	}
	existingByPath := make(map[string]graph.FileRecord, len(existing))
	for _, fr := range existing {
		existingByPath[fr.Path] = fr
	}

	report := &Report{}

	for path := range existingByPath {
		if _, ok := candidates[path]; !ok {
			if err := o.s.DeleteFile(ctx, path); err != nil {
				return nil, fmt.Errorf("delete removed file %s: %w", path, err)
			}
			report.Removed = append(report.Removed, path)
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexConcurrency)

	for relPath, abs := range candidates {
		relPath, abs := relPath, abs
		prior, known := existingByPath[relPath]

		g.Go(func() error {
			content, err := os.ReadFile(abs)
			if err != nil {
				mu.Lock()
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", relPath, err))
				mu.Unlock()
				return nil
			}
			hash := graph.ContentHash(content)
			if known && prior.ContentHash == hash {
				return nil
			}

			info, err := os.Stat(abs)
			if err != nil {
				mu.Lock()
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", relPath, err))
				mu.Unlock()
				return nil
			}

			if err := o.indexFile(gctx, relPath, content, hash, info.ModTime().Unix()); err != nil {
				log.Printf("failed to index %s: %v", relPath, err)
				mu.Lock()
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", relPath, err))
				mu.Unlock()
				return nil
			}

			mu.Lock()
			if known {
				report.Dirty = append(report.Dirty, relPath)
			} else {
				report.New = append(report.New, relPath)
			}
			mu.Unlock()
			return nil
		})
	}
	// Errors are collected into report.Errors rather than returned, so
	// g.Wait's error is always nil; its role here is purely to block
	// until every bounded goroutine has finished.
	_ = g.Wait()

	resolver := resolve.New(o.s)
	result, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve references: %w", err)
	}
	report.Resolved = len(result.Resolved)
	report.Unresolved = len(result.Unresolved)

	return report, nil
}

// indexFile performs the atomic per-file cycle: extract the new content,
// then replace this path's prior nodes/edges/refs/file-record with the
// result in one store-level transaction, so a concurrent reader only
// ever observes the file's pre-replace or post-replace state, never one
// with its nodes deleted but not yet reinserted.
func (o *Orchestrator) indexFile(ctx context.Context, relPath string, content []byte, hash string, modifiedAt int64) error {
	ext := filepath.Ext(relPath)
	result, ok := o.disp.Extract(relPath, ext, content)
	if !ok {
		result = extract.ExtractionResult{}
	}

	fr := graph.FileRecord{
		Path:        relPath,
		ContentHash: hash,
		Size:        int64(len(content)),
		ModifiedAt:  modifiedAt,
		IndexedAt:   time.Now().Unix(),
		NodeCount:   len(result.Nodes),
	}
	if err := o.s.ReplaceFile(ctx, relPath, result.Nodes, result.Edges, result.UnresolvedRefs, fr); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}

// enumerate walks rootDir and returns every file matching cfg's include
// globs and not matching its exclude globs, within the max file size,
// keyed by path relative to rootDir.
func enumerate(rootDir string, cfg *config.Config) (map[string]string, error) {
	include := cfg.Include
	if len(include) == 0 {
		include = config.Default(rootDir).Include
	}
	maxSize := cfg.MaxFileSize
	if maxSize == 0 {
		maxSize = config.DefaultMaxFileSize
	}

	candidates := make(map[string]string)
	err := filepath.WalkDir(rootDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(rootDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if matchesAny(rel, cfg.Exclude) {
			return nil
		}
		if !matchesAny(rel, include) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxSize {
			return nil
		}

		candidates[rel] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

func matchesAny(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := doublestar.Match(pattern, filepath.Base(relPath)); err == nil && ok {
				return true
			}
		}
	}
	return false
}
