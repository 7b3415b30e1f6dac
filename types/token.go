package types

// TokenRecord is the merged view of one token: tagger attributes plus the
// flattened cue and scope tags.
type TokenRecord struct {
	Lemma  string `json:"lemma"`
	POS    string `json:"pos"`
	Chunk  string `json:"chunk"`
	Entity string `json:"entity"`
	TagBundle
}

// TaggerToken is one line of the biomedical tagger output.
type TaggerToken struct {
	Word   string
	Lemma  string
	POS    string
	Chunk  string
	Entity string
}

// TaggedToken is an annotation tool token with the tags it was given while
// flattening the XML markup.
type TaggedToken struct {
	Text string
	Tags TagBundle
}
