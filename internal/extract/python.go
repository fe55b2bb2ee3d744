package extract

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/codegraph/codegraph/internal/graph"
)

// PythonExtractor maps Python source to the common graph model. Python is
// not one of the default include-glob languages (no leading-capital or
// modifier-based visibility convention), so every declaration is treated
// as Pub: Python has no enforced access control, only a leading-underscore
// naming convention, which is too weak a signal to map onto the shared
// visibility scale. It is kept registered on the dispatcher to demonstrate
// the framework's open extension point.
type PythonExtractor struct {
	lang *tree_sitter.Language
}

func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{lang: tree_sitter.NewLanguage(tree_sitter_python.Language())}
}

func (e *PythonExtractor) Extensions() []string { return []string{".py"} }
func (e *PythonExtractor) Language() string     { return "python" }

func (e *PythonExtractor) Extract(filePath string, source []byte) ExtractionResult {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.lang); err != nil {
		return ExtractionResult{Errors: []string{err.Error()}}
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return ExtractionResult{Errors: []string{"python: parse returned no tree"}}
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

func (e *PythonExtractor) walk(cursor *tree_sitter.TreeCursor, b *builder, stack *declStack) {
	node := cursor.Node()
	pushed := false
	switch node.Kind() {
	case "class_definition":
		pushed = e.extractNamed(node, b, stack, graph.KindClass)
	case "function_definition":
		kind := graph.KindFunction
		if len(stack.names) > 0 {
			kind = graph.KindMethod
		}
		pushed = e.extractNamed(node, b, stack, kind)
	case "import_statement", "import_from_statement":
		e.extractImport(node, b, stack)
	case "call":
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

func (e *PythonExtractor) extractNamed(node *tree_sitter.Node, b *builder, stack *declStack, kind graph.NodeKind) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	doc := pythonDocstring(node, b.source)
	n := b.addNode(stack, kind, name, node.StartPosition(), node.EndPosition(), signatureText(node, b.source, "body"), doc, graph.VisibilityPub, false)
	stack.push(n.ID, name)
	return true
}

// pythonDocstring returns the leading string literal of a def/class body,
// Python's docstring convention, rather than a preceding comment.
func pythonDocstring(node *tree_sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first == nil || first.Kind() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str == nil || str.Kind() != "string" {
		return ""
	}
	return str.Utf8Text(source)
}

func (e *PythonExtractor) extractImport(node *tree_sitter.Node, b *builder, stack *declStack) {
	text := node.Utf8Text(b.source)
	if text == "" {
		return
	}
	n := b.addNode(stack, graph.KindUse, text, node.StartPosition(), node.EndPosition(), "", "", graph.VisibilityPub, false)
	b.addRef(n.ID, text, graph.EdgeUses, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

func (e *PythonExtractor) extractCall(node *tree_sitter.Node, b *builder, stack *declStack) {
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
