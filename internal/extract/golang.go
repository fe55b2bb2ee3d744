package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"github.com/codegraph/codegraph/internal/graph"
)

var goCommentKinds = map[string]bool{"comment": true}

// GoExtractor maps Go source to the common graph model. Visibility
// follows Go's capitalization convention: an exported name's first rune
// is uppercase.
type GoExtractor struct {
	lang *tree_sitter.Language
}

// NewGoExtractor constructs a GoExtractor with its grammar loaded once.
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{lang: tree_sitter.NewLanguage(tree_sitter_go.Language())}
}

func (e *GoExtractor) Extensions() []string { return []string{".go"} }
func (e *GoExtractor) Language() string     { return "go" }

func (e *GoExtractor) Extract(filePath string, source []byte) ExtractionResult {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.lang); err != nil {
		return ExtractionResult{Errors: []string{err.Error()}}
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return ExtractionResult{Errors: []string{"go: parse returned no tree"}}
	}
	defer tree.Close()

	root := tree.RootNode()
	b := newBuilder(filePath, source, nowUnix())
	fileNode := graph.Node{
		ID:        graph.GenerateNodeID(filePath, graph.KindFile, filePath, 0),
		Kind:      graph.KindFile,
		Name:      filePath,
		FilePath:  filePath,
		UpdatedAt: b.updated,
	}
	fileNode.QualifiedName = filePath
	b.nodes = append(b.nodes, fileNode)

	stack := newDeclStack(fileNode.ID)
	cursor := root.Walk()
	defer cursor.Close()
	e.walk(cursor, b, stack)
	return b.result()
}

func (e *GoExtractor) walk(cursor *tree_sitter.TreeCursor, b *builder, stack *declStack) {
	node := cursor.Node()
	pushed := false
	switch node.Kind() {
	case "function_declaration":
		pushed = e.extractFunction(node, b, stack)
	case "method_declaration":
		pushed = e.extractMethod(node, b, stack)
	case "type_declaration":
		e.extractTypeDeclaration(node, b, stack)
	case "const_declaration":
		e.extractConstDeclaration(node, b, stack)
	case "import_spec":
		e.extractImport(node, b, stack)
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

func (e *GoExtractor) extractFunction(node *tree_sitter.Node, b *builder, stack *declStack) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	sig := signatureText(node, b.source, "body")
	doc := precedingDocComment(node, b.source, goCommentKinds)
	n := b.addNode(stack, graph.KindFunction, name, node.StartPosition(), node.EndPosition(), sig, doc, goVisibility(name), false)
	stack.push(n.ID, name)
	return true
}

func (e *GoExtractor) extractMethod(node *tree_sitter.Node, b *builder, stack *declStack) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	receiver := goReceiverType(node, b.source)
	sig := signatureText(node, b.source, "body")
	doc := precedingDocComment(node, b.source, goCommentKinds)

	qualified := stack
	if receiver != "" {
		qualified = &declStack{ids: stack.ids, names: append(append([]string{}, stack.names...), receiver)}
	}
	n := b.addNode(qualified, graph.KindMethod, name, node.StartPosition(), node.EndPosition(), sig, doc, goVisibility(name), false)
	if receiver != "" {
		b.addRef(n.ID, receiver, graph.EdgeReceives, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
	}
	stack.push(n.ID, name)
	return true
}

func goReceiverType(node *tree_sitter.Node, source []byte) string {
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	for i := uint(0); i < recv.ChildCount(); i++ {
		child := recv.Child(i)
		if child == nil || child.Kind() != "parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		text := typeNode.Utf8Text(source)
		return strings.TrimPrefix(text, "*")
	}
	return ""
}

func (e *GoExtractor) extractTypeDeclaration(node *tree_sitter.Node, b *builder, stack *declStack) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "type_spec" {
			continue
		}
		e.extractTypeSpec(child, b, stack)
	}
}

func (e *GoExtractor) extractTypeSpec(node *tree_sitter.Node, b *builder, stack *declStack) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(b.source)
	doc := precedingDocComment(node.Parent(), b.source, goCommentKinds)

	kind := graph.KindTypeAlias
	typeNode := node.ChildByFieldName("type")
	if typeNode != nil {
		switch typeNode.Kind() {
		case "interface_type":
			kind = graph.KindInterfaceType
		case "struct_type":
			kind = graph.KindStruct
		}
	}

	n := b.addNode(stack, kind, name, node.StartPosition(), node.EndPosition(), signatureText(node, b.source), doc, goVisibility(name), false)

	if typeNode != nil && typeNode.Kind() == "interface_type" {
		e.extractInterfaceEmbeds(typeNode, n.ID, b)
	}
	if typeNode != nil && typeNode.Kind() == "struct_type" {
		e.extractStructFields(typeNode, n, b, stack)
	}
}

// extractInterfaceEmbeds finds embedded interface type children (plain
// type identifiers, not method specs) and emits Extends refs.
func (e *GoExtractor) extractInterfaceEmbeds(iface *tree_sitter.Node, fromID string, b *builder) {
	for i := uint(0); i < iface.ChildCount(); i++ {
		child := iface.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "type_identifier", "qualified_type":
			name := child.Utf8Text(b.source)
			b.addRef(fromID, name, graph.EdgeExtends, int(child.StartPosition().Row)+1, int(child.StartPosition().Column))
		case "type_elem":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				t := child.NamedChild(j)
				if t != nil && (t.Kind() == "type_identifier" || t.Kind() == "qualified_type") {
					b.addRef(fromID, t.Utf8Text(b.source), graph.EdgeExtends, int(t.StartPosition().Row)+1, int(t.StartPosition().Column))
				}
			}
		}
	}
}

func (e *GoExtractor) extractStructFields(st *tree_sitter.Node, owner graph.Node, b *builder, stack *declStack) {
	fieldStack := &declStack{ids: stack.ids, names: append(append([]string{}, stack.names...), owner.Name)}
	for i := uint(0); i < st.ChildCount(); i++ {
		child := st.Child(i)
		if child == nil || child.Kind() != "field_declaration" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(b.source)
		b.addNode(fieldStack, graph.KindField, name, child.StartPosition(), child.EndPosition(), signatureText(child, b.source), "", goVisibility(name), false)
	}
}

func (e *GoExtractor) extractConstDeclaration(node *tree_sitter.Node, b *builder, stack *declStack) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "const_spec" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Utf8Text(b.source)
		b.addNode(stack, graph.KindConst, name, child.StartPosition(), child.EndPosition(), signatureText(child, b.source), "", goVisibility(name), false)
	}
}

func (e *GoExtractor) extractImport(node *tree_sitter.Node, b *builder, stack *declStack) {
	pathNode := node.ChildByFieldName("path")
	if pathNode == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "interpreted_string_literal" {
				pathNode = child
				break
			}
		}
	}
	if pathNode == nil {
		return
	}
	importPath := strings.Trim(pathNode.Utf8Text(b.source), "\"")
	if importPath == "" {
		return
	}
	n := b.addNode(stack, graph.KindUse, importPath, node.StartPosition(), node.EndPosition(), "", "", graph.VisibilityPrivate, false)
	b.addRef(n.ID, importPath, graph.EdgeUses, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

func (e *GoExtractor) extractCall(node *tree_sitter.Node, b *builder, stack *declStack) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	var callee string
	switch fnNode.Kind() {
	case "identifier":
		callee = fnNode.Utf8Text(b.source)
	case "selector_expression":
		fieldNode := fnNode.ChildByFieldName("field")
		if fieldNode != nil {
			callee = fieldNode.Utf8Text(b.source)
		} else {
			callee = fnNode.Utf8Text(b.source)
		}
	default:
		return
	}
	if callee == "" {
		return
	}
	b.addRef(stack.topID(), callee, graph.EdgeCalls, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

// goVisibility returns Pub when name's first rune is uppercase, matching
// Go's capitalization-based export convention.
func goVisibility(name string) graph.Visibility {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return graph.VisibilityPub
	}
	return graph.VisibilityPrivate
}
