package extract

import (
	"strings"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/codegraph/internal/graph"
)

// declStack tracks the chain of enclosing declarations while a walker
// descends the concrete syntax tree. The top of the stack is the parent
// of whatever node is emitted next: a Contains edge runs from it, and
// its accumulated names form the new node's qualified name.
type declStack struct {
	ids   []string
	names []string
}

func newDeclStack(fileNodeID string) *declStack {
	return &declStack{ids: []string{fileNodeID}, names: nil}
}

func (s *declStack) push(id, name string) {
	s.ids = append(s.ids, id)
	s.names = append(s.names, name)
}

func (s *declStack) pop() {
	s.ids = s.ids[:len(s.ids)-1]
	if len(s.names) > 0 {
		s.names = s.names[:len(s.names)-1]
	}
}

func (s *declStack) topID() string {
	return s.ids[len(s.ids)-1]
}

func (s *declStack) qualify(name string) string {
	return graph.QualifiedName(s.names, name)
}

// builder accumulates nodes, edges, and unresolved refs for one file
// extraction and owns the shared bookkeeping every language walker needs:
// Contains edges, docstring capture, and UnresolvedRef emission.
type builder struct {
	filePath string
	source   []byte
	updated  int64

	nodes  []graph.Node
	edges  []graph.Edge
	refs   []graph.UnresolvedRef
	errors []string
}

func newBuilder(filePath string, source []byte, updatedAt int64) *builder {
	return &builder{filePath: filePath, source: source, updated: updatedAt}
}

// addNode registers a node, sets its ID and QualifiedName from the decl
// stack, and emits the Contains edge from the current top of stack.
func (b *builder) addNode(stack *declStack, kind graph.NodeKind, name string, start, end tree_sitter.Point, signature, docstring string, vis graph.Visibility, isAsync bool) graph.Node {
	id := graph.GenerateNodeID(b.filePath, kind, name, int(start.Row)+1)
	n := graph.Node{
		ID:            id,
		Kind:          kind,
		Name:          name,
		QualifiedName: stack.qualify(name),
		FilePath:      b.filePath,
		StartLine:     int(start.Row) + 1,
		EndLine:       int(end.Row) + 1,
		StartColumn:   int(start.Column),
		EndColumn:     int(end.Column),
		Signature:     signature,
		Docstring:     docstring,
		Visibility:    vis,
		IsAsync:       isAsync,
		UpdatedAt:     b.updated,
	}
	b.nodes = append(b.nodes, n)
	b.edges = append(b.edges, graph.Edge{Source: stack.topID(), Target: id, Kind: graph.EdgeContains})
	return n
}

// addRef records an unresolved textual reference emitted from fromID.
func (b *builder) addRef(fromID, name string, kind graph.EdgeKind, line, column int) {
	b.refs = append(b.refs, graph.UnresolvedRef{
		FromNodeID:    fromID,
		ReferenceName: name,
		ReferenceKind: kind,
		Line:          line,
		Column:        column,
		FilePath:      b.filePath,
	})
}

func (b *builder) addError(msg string) {
	b.errors = append(b.errors, msg)
}

func (b *builder) result() ExtractionResult {
	return ExtractionResult{
		Nodes:          b.nodes,
		Edges:          b.edges,
		UnresolvedRefs: b.refs,
		Errors:         b.errors,
	}
}

// signatureText returns the verbatim source text from a node's start up
// to (but excluding) its body, falling back to the whole node's text when
// no body field is present.
func signatureText(node *tree_sitter.Node, source []byte, bodyFieldNames ...string) string {
	var body *tree_sitter.Node
	for _, f := range bodyFieldNames {
		if c := node.ChildByFieldName(f); c != nil {
			body = c
			break
		}
	}
	text := node.Utf8Text(source)
	if body == nil {
		return strings.TrimSpace(firstLine(text))
	}
	startByte := node.StartByte()
	bodyByte := body.StartByte()
	if bodyByte <= startByte || int(bodyByte-startByte) > len(text) {
		return strings.TrimSpace(firstLine(text))
	}
	return strings.TrimSpace(string(source[startByte:bodyByte]))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// precedingDocComment returns the text of an immediately preceding
// comment sibling, treated as the node's docstring. commentKinds lists
// the tree-sitter node kinds considered comments in this language.
func precedingDocComment(node *tree_sitter.Node, source []byte, commentKinds map[string]bool) string {
	prev := node.PrevSibling()
	if prev == nil || !commentKinds[prev.Kind()] {
		return ""
	}
	return strings.TrimSpace(prev.Utf8Text(source))
}

func nowUnix() int64 {
	return time.Now().Unix()
}
