package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateNodeIDDeterministic(t *testing.T) {
	a := GenerateNodeID("src/main.rs", KindFunction, "main", 1)
	b := GenerateNodeID("src/main.rs", KindFunction, "main", 1)
	assert.Equal(t, a, b)
	assert.Regexp(t, `^Function:[0-9a-f]{32}$`, a)
}

func TestGenerateNodeIDVariesWithLine(t *testing.T) {
	a := GenerateNodeID("src/main.rs", KindFunction, "main", 1)
	b := GenerateNodeID("src/main.rs", KindFunction, "main", 2)
	assert.NotEqual(t, a, b)
}

func TestGenerateNodeIDVariesWithInputs(t *testing.T) {
	base := GenerateNodeID("a.go", KindFunction, "F", 3)
	assert.NotEqual(t, base, GenerateNodeID("b.go", KindFunction, "F", 3))
	assert.NotEqual(t, base, GenerateNodeID("a.go", KindMethod, "F", 3))
	assert.NotEqual(t, base, GenerateNodeID("a.go", KindFunction, "G", 3))
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "helper", QualifiedName(nil, "helper"))
	assert.Equal(t, "pkg::Type::method", QualifiedName([]string{"pkg", "Type"}, "method"))
	assert.Equal(t, "pkg::method", QualifiedName([]string{"pkg", ""}, "method"))
}

func TestParseNodeKindDefaultsOnUnknown(t *testing.T) {
	assert.Equal(t, KindFunction, ParseNodeKind("Function"))
	assert.Equal(t, KindUnknown, ParseNodeKind("NotAKind"))
}
