package scope

import (
	"fmt"

	"text2phenotype.com/bioscope/tree"
	"text2phenotype.com/bioscope/types"
)

var ErrInvalidPosition = tree.ErrInvalidPosition

var (
	// clauses introduced by these words are left out of a scope
	connectives = map[string]bool{
		"because":  true,
		"since":    true,
		"like":     true,
		"unlike":   true,
		"unless":   true,
		"minus":    true,
		"although": true,
		"ie":       true,
	}
	clausal   = map[string]bool{"S": true, "SBAR": true, "VP": true}
	adjuncts  = map[string]bool{"ADVP": true, "PP": true, "SBAR": true}
	finalPunc = map[string]bool{".": true, ":": true}
)

const (
	comma         = ","
	as            = "as"
	nounPhrase    = "NP"
	prepPhrase    = "PP"
	adjectivePOS  = "JJ"
	determinerPOS = "DT"
)

// Span is an inclusive range of leaf indices.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Resolver computes the leaves governed by tree nodes of one sentence.
type Resolver struct {
	tree      *tree.Tree
	leaves    []string
	positions []tree.Position
}

func NewResolver(t *tree.Tree) *Resolver {
	return &Resolver{
		tree:      t,
		leaves:    t.Leaves(),
		positions: t.LeafPositions(),
	}
}

func (r *Resolver) Leaves() []string {
	return r.leaves
}

// Start returns the index of the leftmost leaf under the node.
func (r *Resolver) Start(pos tree.Position) (int, error) {
	node, err := r.tree.Subtree(pos)
	if err != nil {
		return -1, err
	}
	current := append(tree.Position(nil), pos...)
	for !node.IsLeaf() {
		if len(node.Children) == 0 {
			return -1, fmt.Errorf("%w: %s has no leaves", ErrInvalidPosition, pos)
		}
		node = node.Children[0]
		current = append(current, 0)
	}
	return r.tree.LeafIndex(current)
}

// End returns the index of the rightmost leaf under the node, leaving out a
// final period or colon.
func (r *Resolver) End(pos tree.Position) (int, error) {
	node, err := r.tree.Subtree(pos)
	if err != nil {
		return -1, err
	}
	current := append(tree.Position(nil), pos...)
	for !node.IsLeaf() {
		if len(node.Children) == 0 {
			return -1, fmt.Errorf("%w: %s has no leaves", ErrInvalidPosition, pos)
		}
		last := len(node.Children) - 1
		node = node.Children[last]
		current = append(current, last)
	}
	end, err := r.tree.LeafIndex(current)
	if err != nil {
		return -1, err
	}
	if finalPunc[node.Leaf.Text] {
		end--
	}
	return end, nil
}

// NodeScope is the span of every leaf under the node.
func (r *Resolver) NodeScope(pos tree.Position) (Span, error) {
	start, err := r.Start(pos)
	if err != nil {
		return Span{}, err
	}
	end, err := r.End(pos)
	if err != nil {
		return Span{}, err
	}
	return clamp(Span{Start: start, End: end}), nil
}

// HedgeScope is the span governed by the cue at leaf index cue when node is
// taken as its scope. With heuristics on, leading adjuncts and trailing
// subordinate clauses of clausal nodes are pruned, and noun phrases absorb
// a following prepositional phrase.
func (r *Resolver) HedgeScope(pos tree.Position, cue int, heuristics bool) (Span, error) {
	node, err := r.tree.Subtree(pos)
	if err != nil {
		return Span{}, err
	}
	if cue < 0 || cue >= len(r.leaves) {
		return Span{}, fmt.Errorf("%w: cue leaf %d of %d", ErrInvalidPosition, cue, len(r.leaves))
	}
	span, err := r.NodeScope(pos)
	if err != nil || !heuristics {
		return span, err
	}

	switch {
	case clausal[node.Label]:
		span, err = r.pruneClause(node, pos, cue, span)
	case node.Label == nounPhrase:
		span, err = r.extendNounPhrase(pos, cue, span)
	}
	if err != nil {
		return Span{}, err
	}
	return clamp(span), nil
}

func (r *Resolver) pruneClause(node *tree.Tree, pos tree.Position, cue int, span Span) (Span, error) {
	for i, child := range node.Children {
		if !r.isLeadingAdjunct(child) {
			start, err := r.Start(pos.Child(i))
			if err != nil {
				return span, err
			}
			span.Start = start
			break
		}
	}

	for j := cue + 1; j <= span.End; j++ {
		word := r.leaves[j]
		if connectives[word] || (word == as && r.leaves[j-1] == comma) {
			span.End = j - 1
			break
		}
	}
	if span.End > span.Start && r.leaves[span.End] == comma {
		span.End--
	}
	return span, nil
}

func (r *Resolver) isLeadingAdjunct(child *tree.Tree) bool {
	if child.IsLeaf() {
		return false
	}
	if record, ok := child.Record(); ok {
		return record.Lemma == comma
	}
	return adjuncts[child.Label]
}

func (r *Resolver) extendNounPhrase(pos tree.Position, cue int, span Span) (Span, error) {
	if parent := pos.Parent(); len(parent) > 0 {
		sibling := parent.Child(pos[len(pos)-1] + 1)
		if node, err := r.tree.Subtree(sibling); err == nil && node.Label == prepPhrase {
			end, err := r.End(sibling)
			if err != nil {
				return span, err
			}
			span.End = end
		}
	}

	cueRecord, ok := r.record(cue)
	if !ok || cueRecord.POS != adjectivePOS {
		return span, nil
	}
	if first, ok := r.record(span.Start); ok && first.POS == determinerPOS && span.Start < span.End {
		span.Start++
	}
	return span, nil
}

func (r *Resolver) record(leaf int) (*types.TokenRecord, bool) {
	node, err := r.tree.Subtree(r.positions[leaf])
	if err != nil {
		return nil, false
	}
	return node.Record()
}

// LeafGrandparent returns the ancestor n levels above a leaf and its
// position.
func (r *Resolver) LeafGrandparent(leaf int, n int) (*tree.Tree, tree.Position, error) {
	if leaf < 0 || leaf >= len(r.positions) {
		return nil, nil, fmt.Errorf("%w: leaf %d of %d", ErrInvalidPosition, leaf, len(r.positions))
	}
	leafPos := r.positions[leaf]
	if n < 0 || n > len(leafPos) {
		return nil, nil, fmt.Errorf("%w: leaf %d has no ancestor %d levels up", ErrInvalidPosition, leaf, n)
	}
	pos := append(tree.Position(nil), leafPos[:len(leafPos)-n]...)
	node, err := r.tree.Subtree(pos)
	if err != nil {
		return nil, nil, err
	}
	return node, pos, nil
}

func clamp(span Span) Span {
	if span.End < span.Start {
		span.End = span.Start
	}
	return span
}
