package bioscope

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	SentenceTag = "sentence"
	CueTag      = "cue"
	XcopeTag    = "xcope"

	idAttr   = "id"
	refAttr  = "ref"
	typeAttr = "type"
)

var ErrEmptyDocument = errors.New("bioscope: document has no root element")

// Element is a node of an annotation document. Text is the character data
// before the first child, Tail the character data between the end of the
// element and the next sibling.
type Element struct {
	Tag      string
	Attrs    map[string]string
	Text     string
	Tail     string
	Children []*Element
}

func (e *Element) Attr(name string) string {
	return e.Attrs[name]
}

func (e *Element) ID() string {
	return e.Attr(idAttr)
}

// Parse reads an XML document and returns its root element.
func Parse(r io.Reader) (*Element, error) {
	decoder := xml.NewDecoder(r)
	var (
		root  *Element
		stack []*Element
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bioscope: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Tag: t.Name.Local, Attrs: make(map[string]string, len(t.Attr))}
			for _, attr := range t.Attr {
				el.Attrs[attr.Name.Local] = attr.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("bioscope: unexpected second root element %q", el.Tag)
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			if n := len(parent.Children); n > 0 {
				parent.Children[n-1].Tail += string(t)
			} else {
				parent.Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// Text returns the sentence text without markup. The tail of the element
// itself is kept unless it is a sentence.
func Text(el *Element) string {
	var sb strings.Builder
	writeText(&sb, el)
	return sb.String()
}

func writeText(sb *strings.Builder, el *Element) {
	sb.WriteString(el.Text)
	for _, child := range el.Children {
		writeText(sb, child)
	}
	if el.Tag != SentenceTag {
		sb.WriteString(el.Tail)
	}
}

// DocumentIDs lists the ids of the full corpus file, a root holding
// document sets whose documents start with their id element.
func DocumentIDs(root *Element, prefix string) []string {
	var ids []string
	for _, set := range root.Children {
		for _, doc := range set.Children {
			if len(doc.Children) == 0 {
				continue
			}
			ids = append(ids, prefix+strings.TrimSpace(doc.Children[0].Text))
		}
	}
	return ids
}

// Sentences returns the sentence elements of an annotation document in
// document order.
func Sentences(root *Element) []*Element {
	var sentences []*Element
	for _, child := range root.Children {
		if child.Tag == SentenceTag {
			sentences = append(sentences, child)
		}
	}
	return sentences
}
