package tree

import (
	"errors"
	"fmt"
	"strings"

	"text2phenotype.com/bioscope/types"
)

var (
	ErrInvalidPosition = errors.New("tree: position is not in the tree")
	ErrNotLeaf         = errors.New("tree: position does not address a leaf")
)

type LeafKind uint8

const (
	RawToken LeafKind = iota
	AnnotatedToken
)

// Leaf is the content of a terminal node. Before merging it only carries the
// parser token, afterwards it also carries the merged token record.
type Leaf struct {
	Kind   LeafKind
	Text   string
	Record *types.TokenRecord
}

// Tree is a constituency tree node. Internal nodes carry a syntactic
// category (or a part of speech for preterminals), terminal nodes a Leaf.
type Tree struct {
	Label    string
	Children []*Tree
	Leaf     *Leaf
}

func New(label string, children ...*Tree) *Tree {
	return &Tree{Label: label, Children: children}
}

func NewLeaf(text string) *Tree {
	return &Tree{Leaf: &Leaf{Kind: RawToken, Text: text}}
}

func (t *Tree) IsLeaf() bool {
	return t.Leaf != nil
}

// IsPreterminal reports whether the node only dominates one terminal.
func (t *Tree) IsPreterminal() bool {
	return len(t.Children) == 1 && t.Children[0].IsLeaf()
}

// Record returns the token record of a preterminal or leaf node, if merged.
func (t *Tree) Record() (*types.TokenRecord, bool) {
	node := t
	if t.IsPreterminal() {
		node = t.Children[0]
	}
	if node.Leaf == nil || node.Leaf.Kind != AnnotatedToken {
		return nil, false
	}
	return node.Leaf.Record, true
}

// Position is the path of child indices from the root to a node.
type Position []int

func (p Position) Parent() Position {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

func (p Position) Child(i int) Position {
	child := make(Position, len(p)+1)
	copy(child, p)
	child[len(p)] = i
	return child
}

func (p Position) Equal(other Position) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func (p Position) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = fmt.Sprint(idx)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (t *Tree) Subtree(pos Position) (*Tree, error) {
	node := t
	for _, idx := range pos {
		if idx < 0 || idx >= len(node.Children) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPosition, pos)
		}
		node = node.Children[idx]
	}
	return node, nil
}

func (t *Tree) Leaves() []string {
	nodes := t.LeafNodes()
	leaves := make([]string, len(nodes))
	for i, node := range nodes {
		leaves[i] = node.Leaf.Text
	}
	return leaves
}

func (t *Tree) LeafNodes() []*Tree {
	var nodes []*Tree
	t.walk(nil, func(node *Tree, _ Position) {
		if node.IsLeaf() {
			nodes = append(nodes, node)
		}
	})
	return nodes
}

// LeafPositions returns the position of every leaf, in leaf order.
func (t *Tree) LeafPositions() []Position {
	var positions []Position
	t.walk(Position{}, func(node *Tree, pos Position) {
		if node.IsLeaf() {
			positions = append(positions, pos)
		}
	})
	return positions
}

func (t *Tree) LeafPosition(i int) (Position, error) {
	positions := t.LeafPositions()
	if i < 0 || i >= len(positions) {
		return nil, fmt.Errorf("%w: leaf %d of %d", ErrInvalidPosition, i, len(positions))
	}
	return positions[i], nil
}

// LeafIndex maps a leaf position back to its index in the leaf sequence.
func (t *Tree) LeafIndex(pos Position) (int, error) {
	node, err := t.Subtree(pos)
	if err != nil {
		return -1, err
	}
	if !node.IsLeaf() {
		return -1, fmt.Errorf("%w: %s", ErrNotLeaf, pos)
	}
	index := 0
	current := t
	for _, idx := range pos {
		for _, sibling := range current.Children[:idx] {
			index += sibling.countLeaves()
		}
		current = current.Children[idx]
	}
	return index, nil
}

func (t *Tree) countLeaves() int {
	if t.IsLeaf() {
		return 1
	}
	n := 0
	for _, child := range t.Children {
		n += child.countLeaves()
	}
	return n
}

// Annotate attaches a merged token record to the i-th leaf.
func (t *Tree) Annotate(i int, record types.TokenRecord) error {
	nodes := t.LeafNodes()
	if i < 0 || i >= len(nodes) {
		return fmt.Errorf("%w: leaf %d of %d", ErrInvalidPosition, i, len(nodes))
	}
	leaf := nodes[i].Leaf
	leaf.Kind = AnnotatedToken
	leaf.Record = &record
	return nil
}

func (t *Tree) walk(pos Position, visit func(node *Tree, pos Position)) {
	visit(t, pos)
	for i, child := range t.Children {
		child.walk(pos.Child(i), visit)
	}
}

// String renders the tree in bracketed notation.
func (t *Tree) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Tree) write(sb *strings.Builder) {
	if t.IsLeaf() {
		sb.WriteString(t.Leaf.Text)
		return
	}
	sb.WriteByte('(')
	sb.WriteString(t.Label)
	for _, child := range t.Children {
		sb.WriteByte(' ')
		child.write(sb)
	}
	sb.WriteByte(')')
}
