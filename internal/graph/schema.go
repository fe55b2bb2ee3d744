// Package graph defines the node/edge taxonomy and the deterministic
// identifier scheme shared by the store, extractors, resolver, and query
// layer.
package graph

// NodeKind identifies the shape of a code symbol. Kinds are open and
// string-serialized: unknown strings decode to KindUnknown rather than
// failing, so additive kinds never require a schema migration.
type NodeKind string

const (
	KindFile            NodeKind = "File"
	KindModule          NodeKind = "Module"
	KindPackage         NodeKind = "Package"
	KindStruct          NodeKind = "Struct"
	KindEnum            NodeKind = "Enum"
	KindEnumVariant     NodeKind = "EnumVariant"
	KindInterface       NodeKind = "Interface"
	KindTrait           NodeKind = "Trait"
	KindInterfaceType   NodeKind = "InterfaceType"
	KindClass           NodeKind = "Class"
	KindInnerClass      NodeKind = "InnerClass"
	KindImpl            NodeKind = "Impl"
	KindFunction        NodeKind = "Function"
	KindMethod          NodeKind = "Method"
	KindStructMethod    NodeKind = "StructMethod"
	KindConstructor     NodeKind = "Constructor"
	KindAbstractMethod  NodeKind = "AbstractMethod"
	KindField           NodeKind = "Field"
	KindConst           NodeKind = "Const"
	KindStatic          NodeKind = "Static"
	KindTypeAlias       NodeKind = "TypeAlias"
	KindMacro           NodeKind = "Macro"
	KindAnnotation      NodeKind = "Annotation"
	KindAnnotationUsage NodeKind = "AnnotationUsage"
	KindInitBlock       NodeKind = "InitBlock"
	KindUse             NodeKind = "Use"
	KindStructTag       NodeKind = "StructTag"
	KindGenericParam    NodeKind = "GenericParam"
	KindUnknown         NodeKind = "Unknown"
)

// ParseNodeKind decodes a string into a NodeKind, defaulting to
// KindUnknown for anything not in the baseline set. The baseline set is
// deliberately not exhaustive of what extractors may emit: extractors are
// free to use any string; this helper only normalizes known values.
func ParseNodeKind(s string) NodeKind {
	switch NodeKind(s) {
	case KindFile, KindModule, KindPackage, KindStruct, KindEnum, KindEnumVariant,
		KindInterface, KindTrait, KindInterfaceType, KindClass, KindInnerClass,
		KindImpl, KindFunction, KindMethod, KindStructMethod, KindConstructor,
		KindAbstractMethod, KindField, KindConst, KindStatic, KindTypeAlias,
		KindMacro, KindAnnotation, KindAnnotationUsage, KindInitBlock, KindUse,
		KindStructTag, KindGenericParam:
		return NodeKind(s)
	default:
		return KindUnknown
	}
}

// EdgeKind identifies the relationship a directed edge represents.
type EdgeKind string

const (
	EdgeContains     EdgeKind = "Contains"
	EdgeCalls        EdgeKind = "Calls"
	EdgeUses         EdgeKind = "Uses"
	EdgeImplements   EdgeKind = "Implements"
	EdgeExtends      EdgeKind = "Extends"
	EdgeTypeOf       EdgeKind = "TypeOf"
	EdgeReturns      EdgeKind = "Returns"
	EdgeDerivesMacro EdgeKind = "DerivesMacro"
	EdgeAnnotates    EdgeKind = "Annotates"
	EdgeReceives     EdgeKind = "Receives"
)

// Visibility is the access level of a declaration, normalized across
// languages onto a shared four-way scale.
type Visibility string

const (
	VisibilityPub      Visibility = "Pub"
	VisibilityPubCrate Visibility = "PubCrate"
	VisibilityPubSuper Visibility = "PubSuper"
	VisibilityPrivate  Visibility = "Private"
)

// Node is a code symbol: a declaration, a file, or a lexical grouping
// construct. Node.ID is computed by GenerateNodeID and is stable across
// re-indexing as long as (FilePath, Kind, Name, StartLine) does not change.
type Node struct {
	ID            string
	Kind          NodeKind
	Name          string
	QualifiedName string
	FilePath      string
	StartLine     int
	EndLine       int
	StartColumn   int
	EndColumn     int
	Signature     string
	Docstring     string
	Visibility    Visibility
	IsAsync       bool
	UpdatedAt     int64
}

// Edge is a directed, typed relationship between two node IDs. Edges are
// not unique by (Source, Target, Kind): distinct call sites on the same
// pair differentiate by Line.
type Edge struct {
	ID       int64
	Source   string
	Target   string
	Kind     EdgeKind
	Line     int
	HasLine  bool
}

// FileRecord tracks the indexed state of one source file. ContentHash is
// the sole signal of dirtiness during sync.
type FileRecord struct {
	Path        string
	ContentHash string
	Size        int64
	ModifiedAt  int64
	IndexedAt   int64
	NodeCount   int
}

// UnresolvedRef is a textual reference an extractor could not resolve
// locally. It is persisted so the resolver can run globally once every
// file in a sync run has been extracted.
type UnresolvedRef struct {
	ID            int64
	FromNodeID    string
	ReferenceName string
	ReferenceKind EdgeKind
	Line          int
	Column        int
	FilePath      string
}

// ResolvedRef is the transient output of the resolver: an unresolved ref
// paired with a chosen target and the confidence of that choice.
type ResolvedRef struct {
	Ref        UnresolvedRef
	TargetID   string
	Confidence float64
	Strategy   string
}

// Vector is a stored embedding for a node, produced by an external model.
// Embeddings are packed as little-endian 32-bit floats, so the
// dimensionality is len(Embedding)/4; it is not stored separately.
type Vector struct {
	NodeID    string
	Embedding []byte
	Model     string
	CreatedAt int64
}

// Stats summarizes the current graph population, used by `status` and the
// codegraph_status tool.
type Stats struct {
	NodeCount      int
	EdgeCount      int
	FileCount      int
	UnresolvedCount int
	NodesByKind    map[string]int
	DatabaseBytes  int64
}
