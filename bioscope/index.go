package bioscope

import (
	"errors"
	"fmt"
	"strings"

	"text2phenotype.com/bioscope/types"
)

var ErrDanglingCueRef = errors.New("bioscope: cue references no enclosing scope")

type danglingRef struct {
	ref  string
	text string
}

// Index caches, for every xcope of a sentence, whether it is cue bearing for
// each kind: some cue of that kind inside it references its id.
type Index struct {
	sentenceID string
	bearing    map[*Element][2]bool
	dangling   []danglingRef
}

func NewIndex(sentence *Element) *Index {
	ix := &Index{
		sentenceID: sentence.ID(),
		bearing:    make(map[*Element][2]bool),
	}
	ix.scan(sentence, nil)
	return ix
}

func (ix *Index) scan(el *Element, scopes []*Element) {
	switch el.Tag {
	case XcopeTag:
		scopes = append(scopes, el)
	case CueTag:
		ix.addCue(el, scopes)
	}
	for _, child := range el.Children {
		ix.scan(child, scopes)
	}
}

func (ix *Index) addCue(cue *Element, scopes []*Element) {
	kind, ok := types.KindFromName(cue.Attr(typeAttr))
	if !ok {
		return
	}
	ref := cue.Attr(refAttr)
	found := false
	for _, scope := range scopes {
		if scope.ID() != ref {
			continue
		}
		flags := ix.bearing[scope]
		flags[kind] = true
		ix.bearing[scope] = flags
		found = true
	}
	if !found {
		ix.dangling = append(ix.dangling, danglingRef{ref: ref, text: strings.TrimSpace(Text(cue))})
	}
}

// Err reports the first cue whose reference has no enclosing xcope.
func (ix *Index) Err() error {
	if len(ix.dangling) == 0 {
		return nil
	}
	d := ix.dangling[0]
	return fmt.Errorf("%w: sentence %s, cue %q references %q", ErrDanglingCueRef, ix.sentenceID, d.text, d.ref)
}

func (ix *Index) CueBearing(el *Element, kind types.Kind) bool {
	return ix.bearing[el][kind]
}

// Depth is the longest chain of cue bearing scopes of the kind from el down
// to any descendant.
func (ix *Index) Depth(el *Element, kind types.Kind) int {
	own := 0
	if ix.CueBearing(el, kind) {
		own = 1
	}
	deepest := 0
	for _, child := range el.Children {
		if d := ix.Depth(child, kind); d > deepest {
			deepest = d
		}
	}
	return own + deepest
}

func NestingDepth(sentence *Element, kind types.Kind) int {
	return NewIndex(sentence).Depth(sentence, kind)
}
