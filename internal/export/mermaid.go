// Package export renders query results as Mermaid diagrams, for piping a
// subgraph into documentation or a chat client that can render Mermaid.
package export

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codegraph/codegraph/internal/query"
)

// GenerateMermaid produces a Mermaid "graph TD" diagram from a Subgraph:
// nodes are grouped into a subgraph block per file, and edges become
// labeled arrows.
func GenerateMermaid(sub *query.Subgraph) string {
	byFile := make(map[string][]string) // file path -> node IDs in that file
	label := make(map[string]string)
	mermaidID := make(map[string]string)
	nextID := 0
	idFor := func(nodeID string) string {
		if id, ok := mermaidID[nodeID]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", nextID)
		nextID++
		mermaidID[nodeID] = id
		return id
	}

	for _, n := range sub.Nodes {
		byFile[n.FilePath] = append(byFile[n.FilePath], n.ID)
		label[n.ID] = fmt.Sprintf("%s (%s)", n.Name, n.Kind)
	}

	var files []string
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, f := range files {
		members := byFile[f]
		sort.Strings(members)
		b.WriteString(fmt.Sprintf("  subgraph %s[\"%s\"]\n", idFor(f+"_cluster"), shortPath(f)))
		for _, nodeID := range members {
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", idFor(nodeID), label[nodeID])
		}
		b.WriteString("  end\n")
	}

	for _, e := range sub.Edges {
		src, ok1 := mermaidID[e.Source]
		tgt, ok2 := mermaidID[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		fmt.Fprintf(&b, "  %s -->|%s| %s\n", src, e.Kind, tgt)
	}

	return b.String()
}

// shortPath returns the last two path segments for a readable subgraph
// title, matching how a deeply nested source tree is usually abbreviated
// in diagrams.
func shortPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= 2 {
		return path
	}
	return strings.Join(parts[len(parts)-2:], "/")
}
