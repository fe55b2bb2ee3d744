package extract

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/codegraph/codegraph/internal/graph"
)

var tsCommentKinds = map[string]bool{"comment": true}

// TypeScriptExtractor maps TypeScript source to the common graph model.
// Like Python, TypeScript is kept registered beyond the default
// three include-glob languages to exercise the dispatcher's open
// extension point;
// `export` maps to Pub and its absence to Private, TypeScript's closest
// analogue to the modifier-based visibility convention.
type TypeScriptExtractor struct {
	lang *tree_sitter.Language
}

func NewTypeScriptExtractor() *TypeScriptExtractor {
	return &TypeScriptExtractor{lang: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())}
}

func (e *TypeScriptExtractor) Extensions() []string { return []string{".ts", ".tsx"} }
func (e *TypeScriptExtractor) Language() string     { return "typescript" }

func (e *TypeScriptExtractor) Extract(filePath string, source []byte) ExtractionResult {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.lang); err != nil {
		return ExtractionResult{Errors: []string{err.Error()}}
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return ExtractionResult{Errors: []string{"typescript: parse returned no tree"}}
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

func (e *TypeScriptExtractor) walk(cursor *tree_sitter.TreeCursor, b *builder, stack *declStack) {
	node := cursor.Node()
	pushed := false
	switch node.Kind() {
	case "class_declaration":
		pushed = e.extractClass(node, b, stack)
	case "interface_declaration":
		pushed = e.extractNamed(node, b, stack, graph.KindInterfaceType)
	case "function_declaration":
		pushed = e.extractNamed(node, b, stack, graph.KindFunction)
	case "method_definition":
		pushed = e.extractNamed(node, b, stack, graph.KindMethod)
	case "import_statement":
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

func (e *TypeScriptExtractor) extractNamed(node *tree_sitter.Node, b *builder, stack *declStack, kind graph.NodeKind) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	doc := precedingDocComment(node, b.source, tsCommentKinds)
	n := b.addNode(stack, kind, name, node.StartPosition(), node.EndPosition(), signatureText(node, b.source, "body"), doc, tsVisibility(node), false)
	stack.push(n.ID, name)
	return true
}

func (e *TypeScriptExtractor) extractClass(node *tree_sitter.Node, b *builder, stack *declStack) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	doc := precedingDocComment(node, b.source, tsCommentKinds)
	n := b.addNode(stack, graph.KindClass, name, node.StartPosition(), node.EndPosition(), signatureText(node, b.source, "body"), doc, tsVisibility(node), false)

	if heritage := node.ChildByFieldName("heritage"); heritage != nil {
		text := heritage.Utf8Text(b.source)
		if text != "" {
			b.addRef(n.ID, text, graph.EdgeExtends, int(heritage.StartPosition().Row)+1, int(heritage.StartPosition().Column))
		}
	}
	stack.push(n.ID, name)
	return true
}

func (e *TypeScriptExtractor) extractImport(node *tree_sitter.Node, b *builder, stack *declStack) {
	var source *tree_sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "string" {
			source = child
		}
	}
	if source == nil {
		return
	}
	path := source.Utf8Text(b.source)
	n := b.addNode(stack, graph.KindUse, path, node.StartPosition(), node.EndPosition(), "", "", graph.VisibilityPub, false)
	b.addRef(n.ID, path, graph.EdgeUses, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

func (e *TypeScriptExtractor) extractCall(node *tree_sitter.Node, b *builder, stack *declStack) {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return
	}
	callee := fnNode.Utf8Text(b.source)
	if callee == "" {
		return
	}
	b.addRef(stack.topID(), callee, graph.EdgeCalls, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

// tsVisibility treats an exported declaration as Pub and everything else
// as Private; TypeScript has no protected/module-private distinction at
// the top level to map onto PubCrate/PubSuper.
func tsVisibility(node *tree_sitter.Node) graph.Visibility {
	parent := node.Parent()
	if parent != nil && parent.Kind() == "export_statement" {
		return graph.VisibilityPub
	}
	return graph.VisibilityPrivate
}
