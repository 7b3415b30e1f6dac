package types

import "strings"

// Kind is the annotation dimension a cue or a scope belongs to.
type Kind uint8

const (
	Speculation Kind = iota
	Negation
)

var Kinds = []Kind{Speculation, Negation}

const (
	Outside = "O"
	Begin   = "B"
	Inside  = "I"
)

// Name returns the value of the cue "type" attribute for the kind.
func (k Kind) Name() string {
	if k == Negation {
		return "negation"
	}
	return "speculation"
}

func (k Kind) CueTag() string {
	if k == Negation {
		return "NEGCUE"
	}
	return "SPECCUE"
}

func (k Kind) ScopeTag() string {
	if k == Negation {
		return "NEGXCOPE"
	}
	return "SPECXCOPE"
}

func KindFromName(name string) (Kind, bool) {
	switch name {
	case "speculation":
		return Speculation, true
	case "negation":
		return Negation, true
	}
	return Speculation, false
}

func BeginTag(label string) string {
	return Begin + "-" + label
}

func InsideTag(label string) string {
	return Inside + "-" + label
}

// TagVector holds one BIO tag per nesting level. A sentence without nesting
// for a kind still carries a single "O".
type TagVector []string

func NewTagVector(width int) TagVector {
	if width <= 0 {
		return TagVector{Outside}
	}
	v := make(TagVector, width)
	for i := range v {
		v[i] = Outside
	}
	return v
}

func (v TagVector) IsOutside() bool {
	for _, tag := range v {
		if tag != Outside {
			return false
		}
	}
	return true
}

func (v TagVector) Clone() TagVector {
	c := make(TagVector, len(v))
	copy(c, v)
	return c
}

func (v TagVector) String() string {
	return strings.Join(v, ",")
}

// TagBundle groups the cue and scope vectors emitted for one token.
type TagBundle struct {
	SpecCue   TagVector `json:"spec_cue"`
	NegCue    TagVector `json:"neg_cue"`
	SpecXcope TagVector `json:"spec_xcope"`
	NegXcope  TagVector `json:"neg_xcope"`
}

func (b TagBundle) Cue(k Kind) TagVector {
	if k == Negation {
		return b.NegCue
	}
	return b.SpecCue
}

func (b TagBundle) Scope(k Kind) TagVector {
	if k == Negation {
		return b.NegXcope
	}
	return b.SpecXcope
}
