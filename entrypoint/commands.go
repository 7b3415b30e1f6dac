package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"text2phenotype.com/bioscope/bioscope"
	"text2phenotype.com/bioscope/corpus"
	"text2phenotype.com/bioscope/export"
	"text2phenotype.com/bioscope/genia"
	"text2phenotype.com/bioscope/graphviz"
	"text2phenotype.com/bioscope/types"
)

var errSentenceRef = errors.New("sentence must be given as document:sentence")

// tagCorpus writes the tagger output of every sentence of the listed
// documents into the genia directory.
func tagCorpus(ctx context.Context, cfg types.CorpusConfiguration, src *corpus.FileSource, home string, timeout time.Duration, log zerolog.Logger) error {
	ids, err := src.DocumentIDs(ctx)
	if err != nil {
		return err
	}
	tmp, err := os.MkdirTemp("", "bioscope-tagger")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	for _, id := range ids {
		root, err := src.Annotation(ctx, id)
		if err != nil {
			log.Err(err).Str("document_id", id).Msg("Could not read annotation, skipping document")
			continue
		}
		for _, sentence := range bioscope.Sentences(root) {
			if err := tagSentence(ctx, cfg, home, tmp, id, sentence, timeout); err != nil {
				return err
			}
		}
		log.Debug().Str("document_id", id).Msg("Tagged document")
	}
	return nil
}

func tagSentence(ctx context.Context, cfg types.CorpusConfiguration, home string, tmp string, docID string, sentence *bioscope.Element, timeout time.Duration) error {
	input := filepath.Join(tmp, docID+"."+sentence.ID()+".txt")
	if err := os.WriteFile(input, []byte(bioscope.Text(sentence)+"\n"), 0o644); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tokens, err := genia.Tag(ctx, home, input)
	if err != nil {
		return err
	}

	output := filepath.Join(cfg.WorkingDir, filepath.FromSlash(cfg.GeniaFile(docID, sentence.ID())))
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := genia.WriteTokens(f, tokens); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func exportCorpus(ctx context.Context, cfg types.CorpusConfiguration, c *corpus.Corpus, log zerolog.Logger) (err error) {
	store, err := export.Open(cfg.DatabasePath(), cfg.Export.Table)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
	}()
	if err = store.CreateSchema(ctx); err != nil {
		return err
	}

	sentences := 0
	for _, id := range c.DocumentIDs() {
		n, err := store.WriteDocument(ctx, c.Documents[id])
		if err != nil {
			return fmt.Errorf("exporting %s: %w", id, err)
		}
		sentences += n
	}
	log.Info().Int("sentences", sentences).Str("database", cfg.DatabasePath()).Msg("Exported attribute table")

	if cfg.Export.TrainingFile == "" {
		return nil
	}
	path := filepath.Join(cfg.WorkingDir, cfg.Export.TrainingFile)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err = store.WriteTrainingFile(ctx, f, export.TrainingOptionsFrom(cfg.Export)); err != nil {
		_ = f.Close()
		return err
	}
	log.Info().Str("file", path).Msg("Wrote training file")
	return f.Close()
}

// renderSentence draws a sentence tree into the image directory and returns
// the file written.
func renderSentence(ctx context.Context, cfg types.CorpusConfiguration, c *corpus.Corpus, ref string, format string) (string, error) {
	docID, sentenceID, ok := strings.Cut(ref, ":")
	if !ok {
		return "", errSentenceRef
	}
	s, err := c.Sentence(docID, sentenceID)
	if err != nil {
		return "", err
	}
	image, err := graphviz.Render(ctx, s.Dot(), format)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(cfg.WorkingDir, types.ImageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	file := filepath.Join(dir, fmt.Sprintf("%s.%s.%s", docID, sentenceID, format))
	return file, os.WriteFile(file, image, 0o644)
}
