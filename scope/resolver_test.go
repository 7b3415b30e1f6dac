package scope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"text2phenotype.com/bioscope/tree"
	"text2phenotype.com/bioscope/types"
)

// enriched parses a tree and annotates every leaf with its preterminal
// label as part of speech.
func enriched(t *testing.T, bracketed string) *tree.Tree {
	t.Helper()
	tr, err := tree.ParseString(bracketed)
	require.NoError(t, err)
	for i, pos := range tr.LeafPositions() {
		parent, err := tr.Subtree(pos.Parent())
		require.NoError(t, err)
		leaf := tr.LeafNodes()[i].Leaf.Text
		require.NoError(t, tr.Annotate(i, types.TokenRecord{
			Lemma:     strings.ToLower(leaf),
			POS:       parent.Label,
			TagBundle: types.TagBundle{SpecCue: types.NewTagVector(0)},
		}))
	}
	return tr
}

const possibleTree = `(ROOT (S (NP (PRP It)) (VP (VBZ is) (ADJP (JJ possible) (SBAR (IN that) (S (NP (NN X)) (VP (VBZ causes) (NP (NN Y))))))) (. .)))`

func TestNodeScope(t *testing.T) {
	r := NewResolver(enriched(t, possibleTree))

	span, err := r.NodeScope(tree.Position{0})
	require.NoError(t, err)
	require.Equal(t, Span{Start: 0, End: 6}, span)
	require.NotEqual(t, ".", r.Leaves()[span.End])

	span, err = r.HedgeScope(tree.Position{0, 1, 1}, 2, true)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 2, End: 6}, span)

	// a node made of the final period alone still yields start <= end
	span, err = r.NodeScope(tree.Position{0, 2})
	require.NoError(t, err)
	require.Equal(t, Span{Start: 7, End: 7}, span)
}

func TestStartEnd(t *testing.T) {
	r := NewResolver(enriched(t, `(S (NP (NNS Results)) (VP (VBP are) (ADJP (JJ unclear))) (: :))`))

	start, err := r.Start(tree.Position{1})
	require.NoError(t, err)
	require.Equal(t, 1, start)

	end, err := r.End(tree.Position{})
	require.NoError(t, err)
	require.Equal(t, 2, end)

	_, err = r.Start(tree.Position{4})
	require.ErrorIs(t, err, ErrInvalidPosition)
	_, err = r.End(tree.Position{1, 9})
	require.ErrorIs(t, err, ErrInvalidPosition)
}

func TestHedgeScopeSkipsLeadingAdjuncts(t *testing.T) {
	r := NewResolver(enriched(t, `(S (PP (IN In) (NP (NN vitro))) (, ,) (NP (PRP it)) (VP (MD may) (VP (VB bind))) (. .))`))

	span, err := r.HedgeScope(tree.Position{}, 4, true)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 3, End: 5}, span)

	span, err = r.HedgeScope(tree.Position{}, 4, false)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 0, End: 5}, span)
}

func TestHedgeScopeStopsAtConnective(t *testing.T) {
	r := NewResolver(enriched(t, `(S (NP (PRP It)) (VP (MD may) (VP (VB bind) (SBAR (IN because) (S (NP (PRP it)) (VP (VBZ is) (ADJP (JJ small))))))) (. .))`))

	span, err := r.HedgeScope(tree.Position{1}, 1, true)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 1, End: 2}, span)

	span, err = r.HedgeScope(tree.Position{1}, 1, false)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 1, End: 6}, span)
}

func TestHedgeScopeStopsAtCommaAs(t *testing.T) {
	r := NewResolver(enriched(t, `(S (NP (NNS Results)) (VP (MD may) (VP (VB vary) (, ,) (SBAR (IN as) (S (VP (VBN shown)))))) (. .))`))

	span, err := r.HedgeScope(tree.Position{1}, 1, true)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 1, End: 2}, span)
}

func TestHedgeScopeDropsTrailingComma(t *testing.T) {
	r := NewResolver(enriched(t, `(S (NP (PRP It)) (VP (MD may) (VP (VB bind) (, ,))) (NP (NN DNA)))`))

	span, err := r.HedgeScope(tree.Position{1}, 1, true)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 1, End: 2}, span)
}

func TestHedgeScopeNounPhrase(t *testing.T) {
	r := NewResolver(enriched(t, `(S (NP (NP (DT a) (JJ possible) (NN role)) (PP (IN of) (NP (NN IL-2)))) (VP (VBZ is) (VP (VBN shown))) (. .))`))

	span, err := r.HedgeScope(tree.Position{0, 0}, 1, true)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 1, End: 4}, span)

	span, err = r.HedgeScope(tree.Position{0, 0}, 1, false)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 0, End: 2}, span)

	// the determiner stays when the cue is not an adjective
	span, err = r.HedgeScope(tree.Position{0, 0}, 2, true)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 0, End: 4}, span)

	// no right sibling at all
	span, err = r.HedgeScope(tree.Position{0, 1, 1}, 4, true)
	require.NoError(t, err)
	require.Equal(t, Span{Start: 4, End: 4}, span)
}

func TestHedgeScopeInvalidPosition(t *testing.T) {
	r := NewResolver(enriched(t, possibleTree))

	_, err := r.HedgeScope(tree.Position{0, 5}, 2, true)
	require.ErrorIs(t, err, ErrInvalidPosition)
	_, err = r.HedgeScope(tree.Position{0}, 8, true)
	require.ErrorIs(t, err, ErrInvalidPosition)
	_, err = r.HedgeScope(tree.Position{0}, -1, false)
	require.ErrorIs(t, err, ErrInvalidPosition)
}

func TestHedgeScopeStartNotAfterEnd(t *testing.T) {
	r := NewResolver(enriched(t, `(S (VP (MD may) (SBAR (IN because) (S (NP (PRP it))))) (. .))`))

	for _, heuristics := range []bool{true, false} {
		for _, pos := range []tree.Position{{}, {0}, {0, 1}, {1}} {
			span, err := r.HedgeScope(pos, 0, heuristics)
			require.NoError(t, err)
			require.LessOrEqual(t, span.Start, span.End, "node %s", pos)
		}
	}
}

func TestLeafGrandparent(t *testing.T) {
	r := NewResolver(enriched(t, possibleTree))

	node, pos, err := r.LeafGrandparent(2, 2)
	require.NoError(t, err)
	require.Equal(t, "ADJP", node.Label)
	require.Equal(t, tree.Position{0, 1, 1}, pos)

	node, _, err = r.LeafGrandparent(2, 1)
	require.NoError(t, err)
	require.Equal(t, "JJ", node.Label)

	_, _, err = r.LeafGrandparent(2, 6)
	require.ErrorIs(t, err, ErrInvalidPosition)
	_, _, err = r.LeafGrandparent(20, 1)
	require.ErrorIs(t, err, ErrInvalidPosition)
}
