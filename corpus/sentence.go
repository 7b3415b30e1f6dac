package corpus

import (
	"errors"
	"fmt"
	"strings"

	"text2phenotype.com/bioscope/bioscope"
	"text2phenotype.com/bioscope/genia"
	"text2phenotype.com/bioscope/logger"
	"text2phenotype.com/bioscope/tree"
	"text2phenotype.com/bioscope/types"
)

var (
	ErrMisaligned    = errors.New("corpus: token counts disagree")
	ErrAlreadyMerged = errors.New("corpus: sentence already merged")
	ErrNotLoaded     = errors.New("corpus: sentence is not loaded")
)

var corpusLogger = logger.NewLogger("Corpus")

// Sentence is one parsed sentence of a document. Its tree leaves carry the
// merged token records once Loaded is true.
type Sentence struct {
	ID     string
	Index  int
	DocID  string
	Tree   *tree.Tree
	Loaded bool
}

// Merge attaches tagger attributes and flattened tags to the tree leaves.
// When the three tokenizations still disagree after retokenizing, the
// sentence stays unloaded and the mismatch is logged.
func (s *Sentence) Merge(tagger []types.TaggerToken, tagged []types.TaggedToken) error {
	if s.Loaded {
		return ErrAlreadyMerged
	}
	words := genia.Words(tagger)
	if len(words) != len(tagged) && len(words) > 0 && len(tagged) > 0 {
		tagged = bioscope.Retokenize(words, tagged)
	}

	leaves := s.Tree.Leaves()
	if len(words) != len(tagged) || len(tagged) != len(leaves) {
		log := logger.Sentence(corpusLogger, s.DocID, s.ID)
		log.Warn().
			Strs("tagger_words", words).
			Strs("annotation_words", taggedTexts(tagged)).
			Strs("leaves", leaves).
			Int("tagger_count", len(words)).
			Int("annotation_count", len(tagged)).
			Int("leaf_count", len(leaves)).
			Msg("Token counts disagree, sentence not loaded")
		return fmt.Errorf("%w: %s:%s has %d tagger, %d annotation and %d tree tokens",
			ErrMisaligned, s.DocID, s.ID, len(words), len(tagged), len(leaves))
	}

	for j, tok := range tagger {
		record := types.TokenRecord{
			Lemma:     tok.Lemma,
			POS:       tok.POS,
			Chunk:     tok.Chunk,
			Entity:    strings.TrimSpace(tok.Entity),
			TagBundle: tagged[j].Tags,
		}
		if err := s.Tree.Annotate(j, record); err != nil {
			return err
		}
	}
	s.Loaded = true
	return nil
}

func taggedTexts(tokens []types.TaggedToken) []string {
	texts := make([]string, len(tokens))
	for i, t := range tokens {
		texts[i] = t.Text
	}
	return texts
}

// records visits every merged leaf in order until visit returns false.
func (s *Sentence) records(visit func(text string, record *types.TokenRecord) bool) {
	if !s.Loaded {
		return
	}
	for _, leaf := range s.Tree.LeafNodes() {
		if leaf.Leaf.Kind != tree.AnnotatedToken {
			continue
		}
		if !visit(leaf.Leaf.Text, leaf.Leaf.Record) {
			return
		}
	}
}

func (s *Sentence) hasCue(kind types.Kind) bool {
	found := false
	s.records(func(_ string, record *types.TokenRecord) bool {
		found = !record.Cue(kind).IsOutside()
		return !found
	})
	return found
}

func (s *Sentence) HasHedging() bool {
	return s.hasCue(types.Speculation)
}

func (s *Sentence) HasNegation() bool {
	return s.hasCue(types.Negation)
}

func (s *Sentence) SentenceType() string {
	switch hedging, negation := s.HasHedging(), s.HasNegation(); {
	case hedging && negation:
		return types.SentenceTypeBoth
	case hedging:
		return types.SentenceTypeSpeculation
	case negation:
		return types.SentenceTypeNegation
	}
	return types.SentenceTypeNone
}

// BasicAttributes returns the attribute table of the sentence: the header
// followed by one row per token.
func (s *Sentence) BasicAttributes() ([][]string, error) {
	if !s.Loaded {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotLoaded, s.DocID, s.ID)
	}
	table := [][]string{types.AttributeHeader}
	s.records(func(text string, record *types.TokenRecord) bool {
		table = append(table, types.AttributeRow(text, *record))
		return true
	})
	return table, nil
}

func (s *Sentence) Attributes() (types.SentenceAttributes, error) {
	table, err := s.BasicAttributes()
	if err != nil {
		return types.SentenceAttributes{}, err
	}
	return types.SentenceAttributes{
		DocumentID:   s.DocID,
		SentenceID:   s.ID,
		SentenceType: s.SentenceType(),
		Rows:         table[1:],
	}, nil
}

// Dot renders the sentence tree for graphviz. Preterminals show the part of
// speech and every token attribute that is not O.
func (s *Sentence) Dot() string {
	return tree.Dot(s.Tree, recordLabel)
}

func recordLabel(node *tree.Tree) string {
	record, ok := node.Record()
	if !ok || !node.IsPreterminal() {
		return node.Label
	}
	parts := []string{record.POS}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"chunk", record.Chunk},
		{"entity", record.Entity},
	} {
		if field.value != types.Outside && field.value != "" {
			parts = append(parts, field.name+":"+field.value)
		}
	}
	for _, field := range []struct {
		name   string
		vector types.TagVector
	}{
		{"specCue", record.SpecCue},
		{"negCue", record.NegCue},
		{"specXcope", record.SpecXcope},
		{"negXcope", record.NegXcope},
	} {
		if !field.vector.IsOutside() {
			parts = append(parts, field.name+":"+field.vector.String())
		}
	}
	// graphviz line break
	return strings.Join(parts, `\n`)
}
