package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// GenerateNodeID computes the deterministic node identifier
// "<kind>:<32-hex>", where the hex digits are the first half of the
// SHA-256 digest of "file_path | kind | name | start_line". The ID is
// stable across re-indexing runs as long as none of those four inputs
// change; a rename or a move to a different line produces a new ID and
// orphans the old one for file-scoped deletion to clean up.
func GenerateNodeID(filePath string, kind NodeKind, name string, startLine int) string {
	h := sha256.New()
	h.Write([]byte(filePath))
	h.Write([]byte{'|'})
	h.Write([]byte(kind))
	h.Write([]byte{'|'})
	h.Write([]byte(name))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(startLine)))
	sum := h.Sum(nil)
	return fmt.Sprintf("%s:%s", kind, hex.EncodeToString(sum)[:32])
}

// ContentHash computes the SHA-256 hash of file contents, hex-encoded.
// It is the sole source of truth for "dirty" during sync.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// QualifiedName concatenates ancestor names with "::", the language
// agnostic separator used regardless of the source language's own
// scoping syntax.
func QualifiedName(ancestors []string, name string) string {
	qn := ""
	for _, a := range ancestors {
		if a == "" {
			continue
		}
		if qn != "" {
			qn += "::"
		}
		qn += a
	}
	if qn != "" {
		qn += "::"
	}
	return qn + name
}
