// Package extract implements the language-agnostic extraction framework:
// a dispatcher that routes source files to per-language walkers, each of
// which emits the common graph model without ever touching the store.
package extract

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codegraph/codegraph/internal/graph"
)

// astCacheSize bounds the number of (file path, content hash) pairs whose
// extraction result the dispatcher keeps warm across calls.
const astCacheSize = 256

// ExtractionResult is the pure output of extracting one file. Extractors
// never contact the store; the sync orchestrator persists the result.
type ExtractionResult struct {
	Nodes          []graph.Node
	Edges          []graph.Edge
	UnresolvedRefs []graph.UnresolvedRef
	Errors         []string
	DurationMS     int64
}

// Extractor is the capability a language plugs into the dispatcher:
// which extensions it handles, its human-readable name, and the pure
// extraction function itself.
type Extractor interface {
	Extensions() []string
	Language() string
	Extract(filePath string, source []byte) ExtractionResult
}

// Dispatcher owns an ordered list of extractors and resolves a file
// extension to the first extractor that declares it.
type Dispatcher struct {
	extractors []Extractor
	byExt      map[string]Extractor
	cache      *lru.Cache[string, ExtractionResult]
}

// NewDispatcher builds a dispatcher from the given extractors, indexing
// them by extension. Earlier entries win on extension collision. Each
// dispatcher carries its own extraction cache, keyed by file path and
// content hash, so only a file seen again unchanged by the same dispatcher
// skips parsing; identical content at a different path is parsed again.
func NewDispatcher(extractors ...Extractor) *Dispatcher {
	d := &Dispatcher{
		extractors: extractors,
		byExt:      make(map[string]Extractor),
	}
	for _, e := range extractors {
		for _, ext := range e.Extensions() {
			if _, exists := d.byExt[ext]; !exists {
				d.byExt[ext] = e
			}
		}
	}
	cache, err := lru.New[string, ExtractionResult](astCacheSize)
	if err == nil {
		d.cache = cache
	}
	return d
}

// Default returns a dispatcher wired with every extractor this module
// ships, in the order the default include globs list them: Rust, Go,
// Java, then the non-default Python and TypeScript extractors kept
// registered as an extension point.
func Default() *Dispatcher {
	return NewDispatcher(
		NewRustExtractor(),
		NewGoExtractor(),
		NewJavaExtractor(),
		NewPythonExtractor(),
		NewTypeScriptExtractor(),
	)
}

// Extensions returns every extension known to the dispatcher, used by the
// sync orchestrator to decide whether a candidate file is extractable at
// all before hashing it.
func (d *Dispatcher) Extensions() []string {
	exts := make([]string, 0, len(d.byExt))
	for ext := range d.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Extract looks up the extractor for filePath's extension and runs it,
// recording wall-clock duration on the result. Returns false if no
// extractor is registered for the extension. Results are cached by
// (filePath, content hash): a file revisited with unchanged content
// across repeated syncs against the same dispatcher skips re-parsing.
func (d *Dispatcher) Extract(filePath, ext string, source []byte) (ExtractionResult, bool) {
	e, ok := d.byExt[ext]
	if !ok {
		return ExtractionResult{}, false
	}

	key := filePath + "|" + graph.ContentHash(source)
	if d.cache != nil {
		if cached, ok := d.cache.Get(key); ok {
			return cached, true
		}
	}

	start := time.Now()
	result := e.Extract(filePath, source)
	result.DurationMS = time.Since(start).Milliseconds()

	if d.cache != nil {
		d.cache.Add(key, result)
	}
	return result, true
}
