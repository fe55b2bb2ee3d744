package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/codegraph/internal/graph"
)

func readFixture(t *testing.T, relPath string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "fixtures", relPath))
	require.NoError(t, err)
	return data
}

func findNode(nodes []graph.Node, name string, kind graph.NodeKind) *graph.Node {
	for i := range nodes {
		if nodes[i].Name == name && nodes[i].Kind == kind {
			return &nodes[i]
		}
	}
	return nil
}

func nodeExists(nodes []graph.Node, id string) bool {
	for i := range nodes {
		if nodes[i].ID == id {
			return true
		}
	}
	return false
}

func findRef(refs []graph.UnresolvedRef, name string, kind graph.EdgeKind) *graph.UnresolvedRef {
	for i := range refs {
		if refs[i].ReferenceName == name && refs[i].ReferenceKind == kind {
			return &refs[i]
		}
	}
	return nil
}

func TestGoExtractorFunctionsAndMethods(t *testing.T) {
	e := NewGoExtractor()
	src := readFixture(t, "go_project/service.go")
	result := e.Extract("go_project/service.go", src)
	require.Empty(t, result.Errors)

	svc := findNode(result.Nodes, "NewUserService", graph.KindFunction)
	require.NotNil(t, svc)
	assert.Equal(t, graph.VisibilityPub, svc.Visibility)

	method := findNode(result.Nodes, "GetUser", graph.KindMethod)
	require.NotNil(t, method)
	assert.Equal(t, "UserService::GetUser", method.QualifiedName)
	assert.NotEmpty(t, method.Docstring)

	ref := findRef(result.UnresolvedRefs, "UserService", graph.EdgeReceives)
	require.NotNil(t, ref)
}

func TestGoExtractorCallSite(t *testing.T) {
	e := NewGoExtractor()
	src := readFixture(t, "go_project/service.go")
	result := e.Extract("go_project/service.go", src)
	ref := findRef(result.UnresolvedRefs, "newUser", graph.EdgeCalls)
	require.NotNil(t, ref)
}

func TestGoExtractorInterfaceEmbedding(t *testing.T) {
	e := NewGoExtractor()
	src := readFixture(t, "go_project/io.go")
	result := e.Extract("go_project/io.go", src)

	rw := findNode(result.Nodes, "ReadWriter", graph.KindInterfaceType)
	require.NotNil(t, rw)
	ref := findRef(result.UnresolvedRefs, "Reader", graph.EdgeExtends)
	require.NotNil(t, ref)
	assert.Equal(t, rw.ID, ref.FromNodeID)
}

func TestGoExtractorEmptyFile(t *testing.T) {
	e := NewGoExtractor()
	result := e.Extract("empty.go", []byte("package project\n"))
	require.Len(t, result.Nodes, 1)
	assert.Equal(t, graph.KindFile, result.Nodes[0].Kind)
	assert.Empty(t, result.Edges)
}

func TestRustExtractorCallAndVisibility(t *testing.T) {
	e := NewRustExtractor()
	main := e.Extract("rust_project/main.rs", readFixture(t, "rust_project/main.rs"))
	ref := findRef(main.UnresolvedRefs, "helper", graph.EdgeCalls)
	require.NotNil(t, ref)

	util := e.Extract("rust_project/util.rs", readFixture(t, "rust_project/util.rs"))
	helper := findNode(util.Nodes, "helper", graph.KindFunction)
	require.NotNil(t, helper)
	assert.Equal(t, graph.VisibilityPub, helper.Visibility)
	assert.Contains(t, helper.Docstring, "real work")

	buf := findNode(util.Nodes, "Buffer", graph.KindStruct)
	require.NotNil(t, buf)
	derive := findRef(util.UnresolvedRefs, "Debug", graph.EdgeDerivesMacro)
	require.NotNil(t, derive)
	assert.Equal(t, buf.ID, derive.FromNodeID)

	implEdge := findRef(util.UnresolvedRefs, "Reader", graph.EdgeImplements)
	require.NotNil(t, implEdge)
	assert.True(t, nodeExists(util.Nodes, implEdge.FromNodeID), "Implements ref must source from a node present in the extraction result")

	method := findNode(util.Nodes, "new", graph.KindMethod)
	require.NotNil(t, method)
	assert.Equal(t, "Buffer::new", method.QualifiedName)
}

func TestRustExtractorVisibilityModifiers(t *testing.T) {
	e := NewRustExtractor()
	util := e.Extract("rust_project/util.rs", readFixture(t, "rust_project/util.rs"))
	field := findNode(util.Nodes, "new", graph.KindMethod)
	require.NotNil(t, field)
	assert.Equal(t, graph.VisibilityPub, field.Visibility)
}

func TestJavaExtractorAnnotationUsage(t *testing.T) {
	e := NewJavaExtractor()
	result := e.Extract("java_project/Dog.java", readFixture(t, "java_project/Dog.java"))

	method := findNode(result.Nodes, "speak", graph.KindMethod)
	require.NotNil(t, method)

	annotation := findNode(result.Nodes, "Override", graph.KindAnnotationUsage)
	require.NotNil(t, annotation)

	var annotates *graph.Edge
	for i := range result.Edges {
		if result.Edges[i].Kind == graph.EdgeAnnotates && result.Edges[i].Source == annotation.ID {
			annotates = &result.Edges[i]
		}
	}
	require.NotNil(t, annotates)
	assert.Equal(t, method.ID, annotates.Target)
}

func TestJavaExtractorVisibilityAndExtends(t *testing.T) {
	e := NewJavaExtractor()
	result := e.Extract("java_project/Dog.java", readFixture(t, "java_project/Dog.java"))

	class := findNode(result.Nodes, "Dog", graph.KindClass)
	require.NotNil(t, class)
	assert.Equal(t, graph.VisibilityPub, class.Visibility)

	ref := findRef(result.UnresolvedRefs, "Animal", graph.EdgeExtends)
	require.NotNil(t, ref)

	abstractResult := e.Extract("java_project/Animal.java", readFixture(t, "java_project/Animal.java"))
	abstractMethod := findNode(abstractResult.Nodes, "speak", graph.KindAbstractMethod)
	require.NotNil(t, abstractMethod)
}

func TestDispatcherSelectsByExtension(t *testing.T) {
	d := Default()
	result, ok := d.Extract("go_project/service.go", ".go", readFixture(t, "go_project/service.go"))
	require.True(t, ok)
	assert.NotEmpty(t, result.Nodes)

	_, ok = d.Extract("unknown.xyz", ".xyz", nil)
	assert.False(t, ok)
}

func TestDispatcherCachesExtractionByPathAndContent(t *testing.T) {
	d := Default()
	src := readFixture(t, "go_project/service.go")

	first, ok := d.Extract("go_project/service.go", ".go", src)
	require.True(t, ok)

	second, ok := d.Extract("go_project/service.go", ".go", src)
	require.True(t, ok)
	assert.Equal(t, first.Nodes, second.Nodes)

	changed := append(append([]byte{}, src...), '\n')
	third, ok := d.Extract("go_project/service.go", ".go", changed)
	require.True(t, ok)
	assert.NotNil(t, third)
}
