package tree

import (
	"fmt"
	"strings"
)

// LabelFunc builds the graphviz label of an internal node.
type LabelFunc func(node *Tree) string

func CategoryLabel(node *Tree) string {
	return node.Label
}

// Dot serializes the tree as a graphviz digraph. Nodes are numbered in pre
// order starting at 1; terminals are drawn as plain text.
func Dot(t *Tree, label LabelFunc) string {
	if label == nil {
		label = CategoryLabel
	}
	var sb strings.Builder
	sb.WriteString("digraph G{\n")
	writeDot(&sb, t, 1, label)
	sb.WriteString("\n}")
	return sb.String()
}

func writeDot(sb *strings.Builder, t *Tree, id int, label LabelFunc) int {
	fmt.Fprintf(sb, "%d [label=\"%s\"]", id, escapeLabel(label(t)))
	next := id + 1
	for _, child := range t.Children {
		if child.IsLeaf() {
			fmt.Fprintf(sb, "\n%d [label=\"%s\", shape=plaintext]", next, escapeLabel(child.Leaf.Text))
			fmt.Fprintf(sb, "\n%d -> %d", id, next)
			next++
			continue
		}
		sb.WriteByte('\n')
		last := writeDot(sb, child, next, label)
		fmt.Fprintf(sb, "\n%d -> %d", id, next)
		next = last + 1
	}
	return next - 1
}

// labels may already contain "\n" line breaks, only quotes need escaping
func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
