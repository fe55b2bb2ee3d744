package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/codegraph/codegraph/internal/graph"
)

var javaCommentKinds = map[string]bool{"line_comment": true, "block_comment": true}

// JavaExtractor maps Java source to the common graph model. Visibility
// follows Java's access modifiers: public maps to Pub, protected to
// PubCrate, and private or the absence of a modifier (package-private)
// both collapse onto Private.
type JavaExtractor struct {
	lang *tree_sitter.Language
}

func NewJavaExtractor() *JavaExtractor {
	return &JavaExtractor{lang: tree_sitter.NewLanguage(tree_sitter_java.Language())}
}

func (e *JavaExtractor) Extensions() []string { return []string{".java"} }
func (e *JavaExtractor) Language() string     { return "java" }

func (e *JavaExtractor) Extract(filePath string, source []byte) ExtractionResult {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(e.lang); err != nil {
		return ExtractionResult{Errors: []string{err.Error()}}
	}
	tree := parser.Parse(source, nil)
	if tree == nil {
		return ExtractionResult{Errors: []string{"java: parse returned no tree"}}
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
	e.walk(cursor, b, stack, false)
	return b.result()
}

// walk descends the tree. insideClass marks whether an inner class
// declaration should be emitted as InnerClass rather than Class.
func (e *JavaExtractor) walk(cursor *tree_sitter.TreeCursor, b *builder, stack *declStack, insideClass bool) {
	node := cursor.Node()
	pushed := false
	nextInsideClass := insideClass
	switch node.Kind() {
	case "class_declaration":
		pushed = e.extractType(node, b, stack, insideClassKind(insideClass, graph.KindClass, graph.KindInnerClass))
		nextInsideClass = true
	case "interface_declaration":
		pushed = e.extractType(node, b, stack, graph.KindInterface)
		nextInsideClass = true
	case "enum_declaration":
		e.extractEnum(node, b, stack)
		nextInsideClass = true
	case "constructor_declaration":
		pushed = e.extractMethod(node, b, stack, graph.KindConstructor)
	case "method_declaration":
		kind := graph.KindMethod
		if node.ChildByFieldName("body") == nil {
			kind = graph.KindAbstractMethod
		}
		pushed = e.extractMethod(node, b, stack, kind)
	case "field_declaration":
		e.extractField(node, b, stack)
	case "import_declaration":
		e.extractImport(node, b, stack)
	case "method_invocation":
		e.extractCall(node, b, stack)
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, b, stack, nextInsideClass)
		for cursor.GotoNextSibling() {
			e.walk(cursor, b, stack, nextInsideClass)
		}
		cursor.GotoParent()
	}
	if pushed {
		stack.pop()
	}
}

func insideClassKind(insideClass bool, top, nested graph.NodeKind) graph.NodeKind {
	if insideClass {
		return nested
	}
	return top
}

func (e *JavaExtractor) extractType(node *tree_sitter.Node, b *builder, stack *declStack, kind graph.NodeKind) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	modifiers := javaModifiers(node)
	doc := precedingDocComment(modifierAnchor(node, modifiers), b.source, javaCommentKinds)
	n := b.addNode(stack, kind, name, node.StartPosition(), node.EndPosition(), signatureText(node, b.source, "body"), doc, javaVisibility(modifiers, b.source), false)
	e.extractAnnotations(modifiers, n.ID, b)
	e.extractSupertypes(node, n.ID, b)
	stack.push(n.ID, name)
	return true
}

// extractSupertypes emits an Extends ref for a class's superclass and an
// Implements ref for each interface named in its implements clause.
func (e *JavaExtractor) extractSupertypes(node *tree_sitter.Node, fromID string, b *builder) {
	if sc := node.ChildByFieldName("superclass"); sc != nil {
		name := strings.TrimSpace(strings.TrimPrefix(sc.Utf8Text(b.source), "extends"))
		if name != "" {
			b.addRef(fromID, name, graph.EdgeExtends, int(sc.StartPosition().Row)+1, int(sc.StartPosition().Column))
		}
	}
	if in := node.ChildByFieldName("interfaces"); in != nil {
		text := strings.TrimSpace(strings.TrimPrefix(in.Utf8Text(b.source), "implements"))
		for _, part := range strings.Split(text, ",") {
			name := strings.TrimSpace(part)
			if name != "" {
				b.addRef(fromID, name, graph.EdgeImplements, int(in.StartPosition().Row)+1, int(in.StartPosition().Column))
			}
		}
	}
}

func (e *JavaExtractor) extractEnum(node *tree_sitter.Node, b *builder, stack *declStack) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(b.source)
	modifiers := javaModifiers(node)
	n := b.addNode(stack, graph.KindEnum, name, node.StartPosition(), node.EndPosition(), signatureText(node, b.source, "body"), "", javaVisibility(modifiers, b.source), false)
	e.extractAnnotations(modifiers, n.ID, b)

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	variantStack := &declStack{ids: stack.ids, names: append(append([]string{}, stack.names...), name)}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil || child.Kind() != "enum_constant" {
			continue
		}
		cNameNode := child.ChildByFieldName("name")
		if cNameNode == nil {
			continue
		}
		b.addNode(variantStack, graph.KindEnumVariant, cNameNode.Utf8Text(b.source), child.StartPosition(), child.EndPosition(), "", "", graph.VisibilityPub, false)
	}
}

func (e *JavaExtractor) extractMethod(node *tree_sitter.Node, b *builder, stack *declStack, kind graph.NodeKind) bool {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return false
	}
	name := nameNode.Utf8Text(b.source)
	modifiers := javaModifiers(node)
	doc := precedingDocComment(modifierAnchor(node, modifiers), b.source, javaCommentKinds)
	sig := signatureText(node, b.source, "body")
	n := b.addNode(stack, kind, name, node.StartPosition(), node.EndPosition(), sig, doc, javaVisibility(modifiers, b.source), false)
	e.extractAnnotations(modifiers, n.ID, b)
	if kind == graph.KindMethod || kind == graph.KindConstructor {
		stack.push(n.ID, name)
		return true
	}
	return false
}

func (e *JavaExtractor) extractField(node *tree_sitter.Node, b *builder, stack *declStack) {
	modifiers := javaModifiers(node)
	isStatic := javaModifiersContains(modifiers, b.source, "static")
	kind := graph.KindField
	if isStatic {
		kind = graph.KindStatic
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.Kind() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		b.addNode(stack, kind, nameNode.Utf8Text(b.source), node.StartPosition(), node.EndPosition(), signatureText(node, b.source), "", javaVisibility(modifiers, b.source), false)
	}
}

func (e *JavaExtractor) extractImport(node *tree_sitter.Node, b *builder, stack *declStack) {
	text := node.Utf8Text(b.source)
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	text = strings.TrimPrefix(text, "import")
	isStatic := strings.HasPrefix(strings.TrimSpace(text), "static")
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "static"))
	if text == "" {
		return
	}
	name := text
	if isStatic {
		name = "static " + text
	}
	n := b.addNode(stack, graph.KindUse, name, node.StartPosition(), node.EndPosition(), "", "", graph.VisibilityPrivate, false)
	b.addRef(n.ID, text, graph.EdgeUses, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

func (e *JavaExtractor) extractCall(node *tree_sitter.Node, b *builder, stack *declStack) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	callee := nameNode.Utf8Text(b.source)
	if callee == "" {
		return
	}
	b.addRef(stack.topID(), callee, graph.EdgeCalls, int(node.StartPosition().Row)+1, int(node.StartPosition().Column))
}

// extractAnnotations scans a modifiers node for annotation usages and
// emits an AnnotationUsage node plus an Annotates edge to the owning
// declaration for each one (spec scenario: @Override on a method).
func (e *JavaExtractor) extractAnnotations(modifiers *tree_sitter.Node, ownerID string, b *builder) {
	if modifiers == nil {
		return
	}
	for i := uint(0); i < modifiers.ChildCount(); i++ {
		child := modifiers.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "marker_annotation", "annotation":
			nameNode := child.ChildByFieldName("name")
			name := child.Utf8Text(b.source)
			if nameNode != nil {
				name = nameNode.Utf8Text(b.source)
			}
			id := graph.GenerateNodeID(b.filePath, graph.KindAnnotationUsage, name, int(child.StartPosition().Row)+1)
			n := graph.Node{
				ID:            id,
				Kind:          graph.KindAnnotationUsage,
				Name:          name,
				QualifiedName: name,
				FilePath:      b.filePath,
				StartLine:     int(child.StartPosition().Row) + 1,
				EndLine:       int(child.EndPosition().Row) + 1,
				Visibility:    graph.VisibilityPub,
				UpdatedAt:     b.updated,
			}
			b.nodes = append(b.nodes, n)
			b.edges = append(b.edges, graph.Edge{Source: ownerID, Target: id, Kind: graph.EdgeContains})
			b.edges = append(b.edges, graph.Edge{Source: id, Target: ownerID, Kind: graph.EdgeAnnotates})
		}
	}
}

// javaModifiers returns the modifiers node preceding a declaration's
// keyword, if present. In the Java grammar it is a named first child.
func javaModifiers(node *tree_sitter.Node) *tree_sitter.Node {
	if node.ChildCount() == 0 {
		return nil
	}
	first := node.Child(0)
	if first != nil && first.Kind() == "modifiers" {
		return first
	}
	return nil
}

func modifierAnchor(node *tree_sitter.Node, modifiers *tree_sitter.Node) *tree_sitter.Node {
	if modifiers != nil {
		return modifiers
	}
	return node
}

func javaModifiersContains(modifiers *tree_sitter.Node, source []byte, keyword string) bool {
	if modifiers == nil {
		return false
	}
	return strings.Contains(modifiers.Utf8Text(source), keyword)
}

// javaVisibility classifies a declaration's modifiers: public maps to
// Pub, protected to PubCrate, and private or package-private (no
// modifier present) both collapse onto Private, per the documented
// design decision to treat package-private as fully private.
func javaVisibility(modifiers *tree_sitter.Node, source []byte) graph.Visibility {
	if modifiers == nil {
		return graph.VisibilityPrivate
	}
	text := modifiers.Utf8Text(source)
	switch {
	case strings.Contains(text, "public"):
		return graph.VisibilityPub
	case strings.Contains(text, "protected"):
		return graph.VisibilityPubCrate
	default:
		return graph.VisibilityPrivate
	}
}
