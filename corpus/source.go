package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"text2phenotype.com/bioscope/bioscope"
	"text2phenotype.com/bioscope/genia"
	"text2phenotype.com/bioscope/tree"
	"text2phenotype.com/bioscope/types"
)

// Fetcher reads a corpus file by its path relative to the working directory.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// Source provides the three views of a document.
type Source interface {
	Annotation(ctx context.Context, docID string) (*bioscope.Element, error)
	Trees(ctx context.Context, docID string) ([]*tree.Tree, error)
	TaggerTokens(ctx context.Context, docID string, sentenceID string) ([]types.TaggerToken, error)
}

// DirFetcher reads files below a local directory.
type DirFetcher struct {
	Root string
}

func (f DirFetcher) Fetch(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(f.Root, filepath.FromSlash(name)))
}

// FileSource reads the working directory layout of a corpus configuration
// through a Fetcher.
type FileSource struct {
	cfg     types.CorpusConfiguration
	fetcher Fetcher
}

func NewFileSource(cfg types.CorpusConfiguration, fetcher Fetcher) *FileSource {
	return &FileSource{cfg: cfg, fetcher: fetcher}
}

func (src *FileSource) Annotation(ctx context.Context, docID string) (*bioscope.Element, error) {
	buf, err := src.fetcher.Fetch(ctx, src.cfg.BioscopeFile(docID))
	if err != nil {
		return nil, err
	}
	return bioscope.Parse(bytes.NewReader(buf))
}

func (src *FileSource) Trees(ctx context.Context, docID string) ([]*tree.Tree, error) {
	buf, err := src.fetcher.Fetch(ctx, src.cfg.ParsedFile(docID))
	if err != nil {
		return nil, err
	}
	return tree.ParseBracketed(bytes.NewReader(buf))
}

func (src *FileSource) TaggerTokens(ctx context.Context, docID string, sentenceID string) ([]types.TaggerToken, error) {
	buf, err := src.fetcher.Fetch(ctx, src.cfg.GeniaFile(docID, sentenceID))
	if err != nil {
		return nil, err
	}
	return genia.ReadTokens(bytes.NewReader(buf))
}

// DocumentIDs lists the prefixed ids of the corpus file matching the
// configured filter.
func (src *FileSource) DocumentIDs(ctx context.Context) ([]string, error) {
	filter, err := src.cfg.Filter()
	if err != nil {
		return nil, err
	}
	buf, err := src.fetcher.Fetch(ctx, src.cfg.CorpusFile)
	if err != nil {
		return nil, fmt.Errorf("reading corpus file: %w", err)
	}
	root, err := bioscope.Parse(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range bioscope.DocumentIDs(root, src.cfg.DocumentPrefix) {
		if filter.MatchString(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
