package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/codegraph/codegraph/internal/graph"
)

var rustCommentKinds = map[string]bool{"line_comment": true, "block_comment": true}

// RustExtractor maps Rust source to the common graph model. Visibility
// follows Rust's explicit modifiers: pub, pub(crate), pub(super), or
// their absence (private).
type RustExtractor struct {
	lang *tree_sitter.Language
}

func NewRustExtractor() *RustExtractor {
	return &RustExtractor{lang: tree_sitter.NewLanguage(tree_sitter_rust.Language())}
}

func (e *RustExtractor) Extensions() []string { return []string{".rs"} }
func (e *RustExtractor) Language() string     { return "rust" }

func (e *RustExtractor) Extract(filePath string, source []byte) ExtractionResult {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.lang); err != nil {
		return ExtractionResult{Errors: []string{err.Error()}}
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return ExtractionResult{Errors: []string{"rust: parse returned no tree"}}
	}
	defer tree.Close()

	b := newBuilder(filePath, source, nowUnix())
	fileNode := graph.Node{
		ID:            graph.GenerateNodeID(filePath, graph.KindFile, filePath, 0),
		Kind:          graph.KindFile,
		Name:          filePath,
		QualifiedName: filePath,
		FilePath:      filePath,
		UpdatedAt:     b.updated,
	}
	b.nodes = append(b.nodes, fileNode)

	stack := newDeclStack(fileNode.ID)
	cursor := tree.RootNode().Walk()
	defer cursor.Close()
	e.walk(cursor, b, stack)
	return b.result()
}

func (e *RustExtractor) walk(cursor *tree_sitter.TreeCursor, b *builder, stack *declStack) {
	node := cursor.Node()
	pushed := false
	switch node.Kind() {
	case "mod_item":
		pushed = e.extractMod(node, b, stack)
	case "function_item":
		pushed = e.extractNamed(node, b, stack, graph.KindFunction)
	case "struct_item":
		e.extractStruct(node, b, stack)
	case "enum_item":
		e.extractEnum(node, b, stack)
	case "trait_item":
		e.extractNamed(node, b, stack, graph.KindTrait)
	case "type_item":
		e.extractNamed(node, b, stack, graph.KindTypeAlias)
	case "impl_item":
		e.extractImpl(node, b, stack)
		// impl bodies are walked explicitly by extractImpl.
		return
	case "use_declaration":
		e.extractUse(node, b, stack)
	case "call_expression":
		e.extractCall(node, b, stack)
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, b, stack)
		for cursor.GotoNextSibling() {
			e.walk(cursor, b, stack)
		}
		cursor.GotoParent()
	}
	if pushed {
		stack.pop()
	}
}

func (e *RustExtractor) extractMod(node *tree_sitter.Node, b *builder, stack *declStack) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	n := b.addNode(stack, graph.KindModule, name, node.StartPosition(), node.EndPosition(), "", "", rustVisibility(node, b.source), false)
	stack.push(n.ID, name)
	return true
}

func (e *RustExtractor) extractNamed(node *tree_sitter.Node, b *builder, stack *declStack, kind graph.NodeKind) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	sig := signatureText(node, b.source, "body")
	doc := precedingDocComment(node, b.source, rustCommentKinds)
	n := b.addNode(stack, kind, name, node.StartPosition(), node.EndPosition(), sig, doc, rustVisibility(node, b.source), false)
	if kind == graph.KindFunction {
		stack.push(n.ID, name)
		return true
	}
	return false
}

func (e *RustExtractor) extractStruct(node *tree_sitter.Node, b *builder, stack *declStack) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(b.source)
	doc := precedingDocComment(derivesSkip(node), b.source, rustCommentKinds)
	n := b.addNode(stack, graph.KindStruct, name, node.StartPosition(), node.EndPosition(), signatureText(node, b.source, "body"), doc, rustVisibility(node, b.source), false)
	e.extractDerives(node, n.ID, b)
}

func (e *RustExtractor) extractEnum(node *tree_sitter.Node, b *builder, stack *declStack) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(b.source)
	n := b.addNode(stack, graph.KindEnum, name, node.StartPosition(), node.EndPosition(), signatureText(node, b.source, "body"), "", rustVisibility(node, b.source), false)
	e.extractDerives(node, n.ID, b)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	variantStack := &declStack{ids: stack.ids, names: append(append([]string{}, stack.names...), name)}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil || child.Kind() != "enum_variant" {
			continue
		}
		vNameNode := child.ChildByFieldName("name")
		if vNameNode == nil {
			continue
		}
		b.addNode(variantStack, graph.KindEnumVariant, vNameNode.Utf8Text(b.source), child.StartPosition(), child.EndPosition(), "", "", graph.VisibilityPub, false)
	}
}

// extractDerives walks backward over preceding attribute_item siblings
// looking for #[derive(...)], emitting a DerivesMacro ref per named trait.
func (e *RustExtractor) extractDerives(node *tree_sitter.Node, fromID string, b *builder) {
	for prev := node.PrevSibling(); prev != nil && prev.Kind() == "attribute_item"; prev = prev.PrevSibling() {
		text := prev.Utf8Text(b.source)
		if !strings.Contains(text, "derive") {
			continue
		}
		start := strings.IndexByte(text, '(')
		end := strings.LastIndexByte(text, ')')
		if start < 0 || end <= start {
			continue
		}
		for _, part := range strings.Split(text[start+1:end], ",") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			b.addRef(fromID, name, graph.EdgeDerivesMacro, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
		}
	}
}

// derivesSkip returns node itself; kept as a named hook so docstring
// capture reads the same node extractDerives scans backward from.
func derivesSkip(node *tree_sitter.Node) *tree_sitter.Node { return node }

func (e *RustExtractor) extractImpl(node *tree_sitter.Node, b *builder, stack *declStack) {
	traitNode := node.ChildByFieldName("trait")
	typeNode := node.ChildByFieldName("type")
	var typeName string
	if typeNode != nil {
		typeName = typeNode.Utf8Text(b.source)
	}
	if typeName == "" {
		return
	}

	implNode := b.addNode(stack, graph.KindImpl, typeName, node.StartPosition(), node.EndPosition(), "", "", graph.VisibilityPub, false)
	if traitNode != nil {
		traitName := traitNode.Utf8Text(b.source)
		b.addRef(implNode.ID, traitName, graph.EdgeImplements, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
	}

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	methodStack := &declStack{ids: stack.ids, names: append(append([]string{}, stack.names...), typeName)}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil || child.Kind() != "function_item" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(b.source)
		sig := signatureText(child, b.source, "body")
		doc := precedingDocComment(child, b.source, rustCommentKinds)
		n := b.addNode(methodStack, graph.KindMethod, name, child.StartPosition(), child.EndPosition(), sig, doc, rustVisibility(child, b.source), false)
		b.addRef(n.ID, typeName, graph.EdgeReceives, int(child.StartPosition().Row)+1, int(child.StartPosition().Column))

		if fnBody := child.ChildByFieldName("body"); fnBody != nil {
			innerStack := &declStack{ids: append(append([]string{}, methodStack.ids...), n.ID), names: append(append([]string{}, methodStack.names...), name)}
			bodyCursor := fnBody.Walk()
			e.walk(bodyCursor, b, innerStack)
			bodyCursor.Close()
		}
	}
}

func (e *RustExtractor) extractUse(node *tree_sitter.Node, b *builder, stack *declStack) {
	argNode := node.ChildByFieldName("argument")
	var importPath string
	if argNode != nil {
		importPath = argNode.Utf8Text(b.source)
	} else {
		importPath = node.Utf8Text(b.source)
	}
	if importPath == "" {
		return
	}
	n := b.addNode(stack, graph.KindUse, importPath, node.StartPosition(), node.EndPosition(), "", "", rustVisibility(node, b.source), false)
	b.addRef(n.ID, importPath, graph.EdgeUses, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

func (e *RustExtractor) extractCall(node *tree_sitter.Node, b *builder, stack *declStack) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	var callee string
	switch fnNode.Kind() {
	case "identifier", "scoped_identifier", "field_expression":
		callee = fnNode.Utf8Text(b.source)
	default:
		return
	}
	if callee == "" {
		return
	}
	if i := strings.LastIndex(callee, "::"); i >= 0 {
		callee = callee[i+2:]
	}
	b.addRef(stack.topID(), callee, graph.EdgeCalls, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

// rustVisibility classifies a declaration's visibility_modifier child, if
// any, into the shared four-way scale. Absence of the modifier means
// private (module-local).
func rustVisibility(node *tree_sitter.Node, source []byte) graph.Visibility {
	if node.ChildCount() == 0 {
		return graph.VisibilityPrivate
	}
	first := node.Child(0)
	if first == nil || first.Kind() != "visibility_modifier" {
		return graph.VisibilityPrivate
	}
	text := first.Utf8Text(source)
	switch {
	case strings.Contains(text, "crate"):
		return graph.VisibilityPubCrate
	case strings.Contains(text, "super"):
		return graph.VisibilityPubSuper
	default:
		return graph.VisibilityPub
	}
}
