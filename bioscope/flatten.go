package bioscope

import (
	"fmt"

	"text2phenotype.com/bioscope/tokenizer"
	"text2phenotype.com/bioscope/types"
)

// scopeState holds, per kind, the state of every nesting level: O (closed),
// B (opened, no token emitted yet) or I.
type scopeState [2][]string

func newScopeState(widths [2]int) scopeState {
	var s scopeState
	for _, k := range types.Kinds {
		s[k] = make([]string, widths[k])
		for i := range s[k] {
			s[k][i] = types.Outside
		}
	}
	return s
}

func (s scopeState) with(kind types.Kind, slot int, value string) scopeState {
	next := s
	next[kind] = append([]string(nil), s[kind]...)
	next[kind][slot] = value
	return next
}

func (s scopeState) open(kind types.Kind) scopeState {
	for i, v := range s[kind] {
		if v == types.Outside {
			return s.with(kind, i, types.Begin)
		}
	}
	return s
}

func (s scopeState) close(kind types.Kind) scopeState {
	for i := len(s[kind]) - 1; i >= 0; i-- {
		if s[kind][i] != types.Outside {
			return s.with(kind, i, types.Outside)
		}
	}
	return s
}

// emit renders the scope tags of one token and flips begun levels to inside.
func (s scopeState) emit(kind types.Kind) (types.TagVector, scopeState) {
	levels := s[kind]
	if len(levels) == 0 {
		return types.NewTagVector(0), s
	}
	tags := make(types.TagVector, len(levels))
	next := s
	for i, v := range levels {
		switch v {
		case types.Begin:
			tags[i] = types.BeginTag(kind.ScopeTag())
			next = next.with(kind, i, types.Inside)
		case types.Inside:
			tags[i] = types.InsideTag(kind.ScopeTag())
		default:
			tags[i] = types.Outside
		}
	}
	return tags, next
}

type flattener struct {
	index    *Index
	tokenize tokenizer.Tokenizer
	widths   [2]int
}

// Flatten tokenizes a sentence and tags every token with its cue and scope
// BIO vectors, one slot per nesting level of each kind. A nil tokenizer
// selects the Treebank tokenizer.
func Flatten(sentence *Element, tokenize tokenizer.Tokenizer) ([]types.TaggedToken, error) {
	if sentence.Tag != SentenceTag {
		return nil, fmt.Errorf("bioscope: expected a %s element, got %q", SentenceTag, sentence.Tag)
	}
	index := NewIndex(sentence)
	if err := index.Err(); err != nil {
		return nil, err
	}
	if tokenize == nil {
		tokenize = tokenizer.NewTreebank()
	}
	f := flattener{index: index, tokenize: tokenize}
	for _, k := range types.Kinds {
		f.widths[k] = index.Depth(sentence, k)
	}

	root := *sentence
	root.Tail = ""
	tokens, _ := f.element(&root, [2]int{}, newScopeState(f.widths))
	return tokens, nil
}

// element flattens one node. Cue levels only flow down; scope progress is
// returned so that later siblings and the parent observe it.
func (f flattener) element(el *Element, cueLevels [2]int, state scopeState) ([]types.TaggedToken, scopeState) {
	if el.Tag == SentenceTag {
		cueLevels = [2]int{}
		state = newScopeState(f.widths)
	}
	var bearing [2]bool
	if el.Tag == XcopeTag {
		for _, k := range types.Kinds {
			if f.index.CueBearing(el, k) {
				bearing[k] = true
				cueLevels[k]++
				state = state.open(k)
			}
		}
	}

	cueKind, isCue := types.Speculation, false
	if el.Tag == CueTag {
		cueKind, isCue = types.KindFromName(el.Attr(typeAttr))
	}

	var tokens []types.TaggedToken
	for i, word := range f.tokenize(el.Text) {
		var token types.TaggedToken
		token, state = f.token(word, state)
		if level := cueLevels[cueKind]; isCue && level > 0 {
			cue := token.Tags.Cue(cueKind)
			if level <= len(cue) {
				if i == 0 {
					cue[level-1] = types.BeginTag(cueKind.CueTag())
				} else {
					cue[level-1] = types.InsideTag(cueKind.CueTag())
				}
			}
		}
		tokens = append(tokens, token)
	}

	for _, child := range el.Children {
		var childTokens []types.TaggedToken
		childTokens, state = f.element(child, cueLevels, state)
		tokens = append(tokens, childTokens...)
	}

	for _, k := range types.Kinds {
		if bearing[k] {
			state = state.close(k)
		}
	}
	for _, word := range f.tokenize(el.Tail) {
		var token types.TaggedToken
		token, state = f.token(word, state)
		tokens = append(tokens, token)
	}
	return tokens, state
}

// token builds a token outside of any cue carrying the current scope tags.
func (f flattener) token(word string, state scopeState) (types.TaggedToken, scopeState) {
	token := types.TaggedToken{
		Text: word,
		Tags: types.TagBundle{
			SpecCue: types.NewTagVector(f.widths[types.Speculation]),
			NegCue:  types.NewTagVector(f.widths[types.Negation]),
		},
	}
	token.Tags.SpecXcope, state = state.emit(types.Speculation)
	token.Tags.NegXcope, state = state.emit(types.Negation)
	return token, state
}
