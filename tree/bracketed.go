package tree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

var (
	ErrUnbalanced = errors.New("tree: unbalanced brackets")
	ErrUnexpected = errors.New("tree: unexpected token")
)

// ParseBracketed reads every bracketed (Penn Treebank style) tree from r, in
// order. An unlabeled wrapper node around a single tree is stripped.
func ParseBracketed(r io.Reader) ([]*Tree, error) {
	toks, err := lex(r)
	if err != nil {
		return nil, err
	}

	var trees []*Tree
	p := parser{toks: toks}
	for !p.done() {
		t, err := p.parseNode()
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", len(trees), err)
		}
		if t.Label == "" && len(t.Children) == 1 && !t.Children[0].IsLeaf() {
			t = t.Children[0]
		}
		trees = append(trees, t)
	}
	return trees, nil
}

// ParseString parses exactly one tree.
func ParseString(s string) (*Tree, error) {
	trees, err := ParseBracketed(strings.NewReader(s))
	if err != nil {
		return nil, err
	}
	if len(trees) != 1 {
		return nil, fmt.Errorf("%w: expected one tree, found %d", ErrUnexpected, len(trees))
	}
	return trees[0], nil
}

const (
	openBracket  = "("
	closeBracket = ")"
)

func lex(r io.Reader) ([]string, error) {
	var toks []string
	br := bufio.NewReader(r)
	var atom strings.Builder
	flush := func() {
		if atom.Len() > 0 {
			toks = append(toks, atom.String())
			atom.Reset()
		}
	}
	for {
		ch, _, err := br.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch {
		case ch == '(' || ch == ')':
			flush()
			toks = append(toks, string(ch))
		case unicode.IsSpace(ch):
			flush()
		default:
			atom.WriteRune(ch)
		}
	}
	flush()
	return toks, nil
}

type parser struct {
	toks []string
	pos  int
}

func (p *parser) done() bool {
	return p.pos >= len(p.toks)
}

func (p *parser) next() string {
	tok := p.toks[p.pos]
	p.pos++
	return tok
}

func (p *parser) peek() string {
	return p.toks[p.pos]
}

func (p *parser) parseNode() (*Tree, error) {
	if tok := p.next(); tok != openBracket {
		return nil, fmt.Errorf("%w: %q at %d", ErrUnexpected, tok, p.pos-1)
	}
	node := &Tree{}
	if p.done() {
		return nil, ErrUnbalanced
	}
	if tok := p.peek(); tok != openBracket && tok != closeBracket {
		node.Label = p.next()
	}
	for {
		if p.done() {
			return nil, ErrUnbalanced
		}
		switch p.peek() {
		case closeBracket:
			p.next()
			return node, nil
		case openBracket:
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		default:
			node.Children = append(node.Children, NewLeaf(p.next()))
		}
	}
}
