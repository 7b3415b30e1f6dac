package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"text2phenotype.com/bioscope/bioscope"
	"text2phenotype.com/bioscope/logger"
	"text2phenotype.com/bioscope/tokenizer"
)

var (
	ErrMissingTrees      = errors.New("corpus: fewer parse trees than sentences")
	ErrUnknownDocument   = errors.New("corpus: unknown document")
	ErrUnknownSentence   = errors.New("corpus: unknown sentence")
	ErrDuplicateSentence = errors.New("corpus: duplicate sentence id")
)

type Document struct {
	ID        string
	Sentences map[string]*Sentence
}

// Ordered returns the sentences in document order.
func (d *Document) Ordered() []*Sentence {
	sentences := make([]*Sentence, 0, len(d.Sentences))
	for _, s := range d.Sentences {
		sentences = append(sentences, s)
	}
	sort.Slice(sentences, func(i, j int) bool {
		return sentences[i].Index < sentences[j].Index
	})
	return sentences
}

func (d *Document) Sentence(id string) (*Sentence, error) {
	s, ok := d.Sentences[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrUnknownSentence, d.ID, id)
	}
	return s, nil
}

// NotLoaded counts the sentences that could not be merged.
func (d *Document) NotLoaded() int {
	n := 0
	for _, s := range d.Sentences {
		if !s.Loaded {
			n++
		}
	}
	return n
}

// Corpus holds every document that loaded. It is only read once loading is
// over.
type Corpus struct {
	Documents map[string]*Document
}

func (c *Corpus) Document(id string) (*Document, error) {
	d, ok := c.Documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}
	return d, nil
}

func (c *Corpus) Sentence(docID string, sentenceID string) (*Sentence, error) {
	d, err := c.Document(docID)
	if err != nil {
		return nil, err
	}
	return d.Sentence(sentenceID)
}

// DocumentIDs returns the loaded document ids, sorted.
func (c *Corpus) DocumentIDs() []string {
	ids := make([]string, 0, len(c.Documents))
	for id := range c.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDocument builds a document from its annotation, parse trees and
// tagger output and merges every sentence. Sentences that fail to merge are
// kept unloaded; only missing or unreadable inputs fail the document.
func LoadDocument(ctx context.Context, src Source, docID string, tokenize tokenizer.Tokenizer) (*Document, error) {
	root, err := src.Annotation(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("document %s: annotation: %w", docID, err)
	}
	trees, err := src.Trees(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("document %s: trees: %w", docID, err)
	}
	elements := bioscope.Sentences(root)
	if len(trees) < len(elements) {
		return nil, fmt.Errorf("%w: document %s has %d sentences and %d trees", ErrMissingTrees, docID, len(elements), len(trees))
	}
	if tokenize == nil {
		tokenize = tokenizer.NewTreebank()
	}

	doc := &Document{ID: docID, Sentences: make(map[string]*Sentence, len(elements))}
	for i, el := range elements {
		s := &Sentence{ID: el.ID(), Index: i, DocID: docID, Tree: trees[i]}
		if _, ok := doc.Sentences[s.ID]; ok {
			return nil, fmt.Errorf("%w: %s:%s", ErrDuplicateSentence, docID, s.ID)
		}
		doc.Sentences[s.ID] = s

		tagger, err := src.TaggerTokens(ctx, docID, s.ID)
		if err != nil {
			return nil, fmt.Errorf("document %s: tagger output of %s: %w", docID, s.ID, err)
		}
		tagged, err := bioscope.Flatten(el, tokenize)
		if err != nil {
			log := logger.Sentence(corpusLogger, docID, s.ID)
			log.Error().Err(err).Msg("Rejected sentence annotation")
			continue
		}
		// misaligned sentences are logged by Merge and stay unloaded
		_ = s.Merge(tagger, tagged)
	}
	return doc, nil
}

// LoadCorpus loads every listed document. A document that fails to load is
// logged and skipped.
func LoadCorpus(ctx context.Context, src Source, docIDs []string, tokenize tokenizer.Tokenizer) (*Corpus, error) {
	c := &Corpus{Documents: make(map[string]*Document, len(docIDs))}
	for _, id := range docIDs {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		doc, err := LoadDocument(ctx, src, id, tokenize)
		if err != nil {
			corpusLogger.Error().Err(err).Str("document_id", id).Msg("Could not load document")
			continue
		}
		corpusLogger.Debug().
			Str("document_id", id).
			Int("sentences", len(doc.Sentences)).
			Int("not_loaded", doc.NotLoaded()).
			Msg("Loaded document")
		c.Documents[id] = doc
	}
	return c, nil
}
