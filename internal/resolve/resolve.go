// Package resolve turns the unresolved textual references extractors leave
// behind into concrete graph edges, using three progressively weaker
// strategies run in a fixed order.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/codegraph/codegraph/internal/graph"
	"github.com/codegraph/codegraph/internal/store"
)

// callableKinds is the set of node kinds a Calls reference may legitimately
// target; strategy three rewards a candidate whose kind falls in this set.
var callableKinds = map[graph.NodeKind]bool{
	graph.KindFunction:       true,
	graph.KindMethod:         true,
	graph.KindStructMethod:   true,
	graph.KindConstructor:    true,
	graph.KindAbstractMethod: true,
}

// Resolver resolves unresolved refs against every node currently in a
// Store. It is stateless between runs: Resolve loads what it needs from
// the store on each call.
type Resolver struct {
	s store.Store
}

func New(s store.Store) *Resolver {
	return &Resolver{s: s}
}

// Result aggregates one resolution pass over a batch of unresolved refs.
type Result struct {
	Total      int
	Resolved   []graph.ResolvedRef
	Unresolved []graph.UnresolvedRef
}

// candidateIndex holds the lookup tables the resolution strategies need,
// built once per pass: candidates by name, each node's enclosing module
// (the Contains edge is not re-walked per ref), and each file's imported
// names (needed by the import-scoped strategy).
type candidateIndex struct {
	byQualifiedSuffix map[string][]graph.Node
	byFileAndName     map[string][]graph.Node
	byName            map[string][]graph.Node
	enclosingModule   map[string]string // node ID -> nearest Module/Package qualified name
	fileImports       map[string]map[string]string // file path -> imported simple name -> qualified name
	receivesTarget    map[string]string // method node ID -> receiver type's qualified name
	qualifiedByID     map[string]string // node ID -> qualified name, for resolving edge targets
}

// Resolve runs all three strategies, in order, over every unresolved ref
// currently stored. Refs a strategy resolves are removed from later
// strategies' consideration within the same pass.
func (r *Resolver) Resolve(ctx context.Context) (*Result, error) {
	refs, err := r.s.ListUnresolvedRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unresolved refs: %w", err)
	}
	if len(refs) == 0 {
		return &Result{}, nil
	}

	idx, err := r.buildIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("build candidate index: %w", err)
	}

	result := &Result{Total: len(refs)}
	var resolvedIDs []int64

	for _, ref := range refs {
		if target, confidence, strategy, ok := idx.resolveOne(ref); ok {
			result.Resolved = append(result.Resolved, graph.ResolvedRef{
				Ref:        ref,
				TargetID:   target,
				Confidence: confidence,
				Strategy:   strategy,
			})
			resolvedIDs = append(resolvedIDs, ref.ID)
			continue
		}
		result.Unresolved = append(result.Unresolved, ref)
	}

	edges := make([]graph.Edge, 0, len(result.Resolved))
	for _, rr := range result.Resolved {
		edges = append(edges, graph.Edge{
			Source:  rr.Ref.FromNodeID,
			Target:  rr.TargetID,
			Kind:    rr.Ref.ReferenceKind,
			Line:    rr.Ref.Line,
			HasLine: true,
		})
	}
	if len(edges) > 0 {
		if err := r.s.InsertEdges(ctx, edges); err != nil {
			return nil, fmt.Errorf("materialize resolved edges: %w", err)
		}
	}
	if len(resolvedIDs) > 0 {
		if err := r.s.DeleteUnresolvedRefsByIDs(ctx, resolvedIDs); err != nil {
			return nil, fmt.Errorf("clear resolved refs: %w", err)
		}
	}

	return result, nil
}

func (r *Resolver) buildIndex(ctx context.Context) (*candidateIndex, error) {
	idx := &candidateIndex{
		byQualifiedSuffix: make(map[string][]graph.Node),
		byFileAndName:     make(map[string][]graph.Node),
		byName:            make(map[string][]graph.Node),
		enclosingModule:   make(map[string]string),
		fileImports:       make(map[string]map[string]string),
		receivesTarget:    make(map[string]string),
		qualifiedByID:     make(map[string]string),
	}

	var modules, members []graph.Node
	for _, kind := range []graph.NodeKind{
		graph.KindFunction, graph.KindMethod, graph.KindStructMethod, graph.KindConstructor,
		graph.KindAbstractMethod, graph.KindStruct, graph.KindClass, graph.KindInterface,
		graph.KindTrait, graph.KindInterfaceType, graph.KindEnum, graph.KindModule, graph.KindPackage,
		graph.KindField, graph.KindConst, graph.KindStatic, graph.KindTypeAlias,
	} {
		nodes, err := r.s.GetNodesByKind(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			idx.byQualifiedSuffix["::"+n.Name] = append(idx.byQualifiedSuffix["::"+n.Name], n)
			idx.byFileAndName[n.FilePath+"\x00"+n.Name] = append(idx.byFileAndName[n.FilePath+"\x00"+n.Name], n)
			idx.byName[n.Name] = append(idx.byName[n.Name], n)
			idx.qualifiedByID[n.ID] = n.QualifiedName
			if kind == graph.KindModule || kind == graph.KindPackage {
				idx.enclosingModule[n.ID] = n.QualifiedName
				modules = append(modules, n)
			} else {
				members = append(members, n)
			}
		}
	}
	for _, n := range members {
		best := ""
		for _, m := range modules {
			if m.FilePath == n.FilePath && len(m.QualifiedName) > len(best) && strings.HasPrefix(n.QualifiedName, m.QualifiedName+"::") {
				best = m.QualifiedName
			}
		}
		if best != "" {
			idx.enclosingModule[n.ID] = best
		}
	}

	useNodes, err := r.s.GetNodesByKind(ctx, graph.KindUse)
	if err != nil {
		return nil, err
	}
	for _, n := range useNodes {
		simple := n.Name
		if i := strings.LastIndex(n.Name, "::"); i >= 0 {
			simple = n.Name[i+2:]
		} else if i := strings.LastIndex(n.Name, "."); i >= 0 {
			simple = n.Name[i+1:]
		}
		if idx.fileImports[n.FilePath] == nil {
			idx.fileImports[n.FilePath] = make(map[string]string)
		}
		idx.fileImports[n.FilePath][simple] = n.Name
	}

	receivesEdges, err := r.allEdgesOfKind(ctx, graph.EdgeReceives)
	if err != nil {
		return nil, err
	}
	for _, e := range receivesEdges {
		if qn, ok := idx.qualifiedByID[e.Target]; ok {
			idx.receivesTarget[e.Source] = qn
		}
	}

	return idx, nil
}

// allEdgesOfKind collects the outgoing edges of a given kind from every
// Method, StructMethod and Constructor node; edges leaving nodes of other
// kinds are not scanned. The store does not expose a global edge scan, so
// this walks those nodes one by one, which keeps the API surface on Store
// minimal.
func (r *Resolver) allEdgesOfKind(ctx context.Context, kind graph.EdgeKind) ([]graph.Edge, error) {
	var all []graph.Edge
	for _, k := range []graph.NodeKind{graph.KindMethod, graph.KindStructMethod, graph.KindConstructor} {
		nodes, err := r.s.GetNodesByKind(ctx, k)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			edges, err := r.s.GetOutgoingEdges(ctx, n.ID, []graph.EdgeKind{kind})
			if err != nil {
				return nil, err
			}
			all = append(all, edges...)
		}
	}
	return all, nil
}

// resolveOne tries strategies in order: exact qualified-name suffix match,
// import-scoped match, then name-plus-scoring. Each returns a target node
// ID, a confidence, and a strategy label, or ok=false to fall through.
func (idx *candidateIndex) resolveOne(ref graph.UnresolvedRef) (string, float64, string, bool) {
	if target, ok := idx.byQualifiedSuffixStrategy(ref); ok {
		return target, 0.95, "qualified_suffix", true
	}
	if target, ok := idx.importScopedStrategy(ref); ok {
		return target, 0.9, "import_scoped", true
	}
	if target, ok := idx.scoredStrategy(ref); ok {
		return target, 0.7, "name_scoring", true
	}
	return "", 0, "", false
}

// byQualifiedSuffixStrategy matches when exactly one node's qualified name
// ends in "::<reference_name>".
func (idx *candidateIndex) byQualifiedSuffixStrategy(ref graph.UnresolvedRef) (string, bool) {
	candidates := idx.byQualifiedSuffix["::"+ref.ReferenceName]
	var matches []graph.Node
	for _, n := range candidates {
		if strings.HasSuffix(n.QualifiedName, "::"+ref.ReferenceName) {
			matches = append(matches, n)
		}
	}
	if len(matches) == 1 {
		return matches[0].ID, true
	}
	return "", false
}

// importScopedStrategy matches when the reference name is imported exactly
// once in the same file via a Use sibling.
func (idx *candidateIndex) importScopedStrategy(ref graph.UnresolvedRef) (string, bool) {
	imports, ok := idx.fileImports[ref.FilePath]
	if !ok {
		return "", false
	}
	qualified, ok := imports[ref.ReferenceName]
	if !ok {
		return "", false
	}
	var matches []graph.Node
	for _, n := range idx.byName[ref.ReferenceName] {
		if n.QualifiedName == qualified || strings.HasSuffix(qualified, "::"+n.QualifiedName) {
			matches = append(matches, n)
		}
	}
	if len(matches) == 1 {
		return matches[0].ID, true
	}
	return "", false
}

// scoredStrategy ranks every same-name candidate by a fixed weighting and
// accepts the unique top scorer if it clears the threshold of 50. Equal
// scores are ordered by lowest node ID so the ranking is deterministic; a
// tie at the top score leaves the reference unresolved.
func (idx *candidateIndex) scoredStrategy(ref graph.UnresolvedRef) (string, bool) {
	candidates := idx.byName[ref.ReferenceName]
	if len(candidates) == 0 {
		return "", false
	}

	type scored struct {
		node  graph.Node
		score int
	}
	var scores []scored
	for _, n := range candidates {
		s := 0
		if n.FilePath == ref.FilePath {
			s += 100
		}
		if enclosing, ok := idx.enclosingModule[ref.FromNodeID]; ok && enclosing != "" && strings.HasPrefix(n.QualifiedName, enclosing+"::") {
			s += 50
		}
		if ref.ReferenceKind == graph.EdgeCalls && callableKinds[n.Kind] {
			s += 25
		}
		if n.Visibility != graph.VisibilityPrivate {
			s += 10
		}
		if receiver, ok := idx.receivesTarget[n.ID]; ok && receiver != "" {
			if strings.HasPrefix(n.QualifiedName, receiver+"::") {
				s += 15
			}
		}
		scores = append(scores, scored{node: n, score: s})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].node.ID < scores[j].node.ID
	})

	if scores[0].score < 50 {
		return "", false
	}
	if len(scores) > 1 && scores[1].score == scores[0].score {
		return "", false
	}
	return scores[0].node.ID, true
}
