package genia

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"text2phenotype.com/bioscope/logger"
	"text2phenotype.com/bioscope/types"
)

const (
	// the tagger only finds its models when started from its home directory
	executable = "./geniatagger"
	fieldCount = 5
)

var ErrMalformedLine = errors.New("genia: malformed tagger line")

var geniaLogger = logger.NewLogger("Genia tagger")

// ReadTokens parses tagger output, one "word lemma pos chunk entity" tab
// separated line per token. Blank lines separate sentences and are skipped.
func ReadTokens(r io.Reader) ([]types.TaggerToken, error) {
	var tokens []types.TaggerToken
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != fieldCount {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformedLine, lineNum, len(fields))
		}
		tokens = append(tokens, types.TaggerToken{
			Word:   fields[0],
			Lemma:  fields[1],
			POS:    fields[2],
			Chunk:  fields[3],
			Entity: fields[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Tag runs the tagger installed in home on a text file.
func Tag(ctx context.Context, home string, file string) ([]types.TaggerToken, error) {
	proc := logger.Process{
		Executable: executable,
		Args:       []string{file},
		Dir:        home,
	}
	out, err := proc.Run(ctx, geniaLogger.With().Str("file", file).Logger())
	if err != nil {
		return nil, fmt.Errorf("genia: tagging %s: %w", file, err)
	}
	return ReadTokens(bytes.NewReader(out))
}

// WriteTokens writes tokens in the format ReadTokens parses.
func WriteTokens(w io.Writer, tokens []types.TaggerToken) error {
	bw := bufio.NewWriter(w)
	for _, t := range tokens {
		fields := []string{t.Word, t.Lemma, t.POS, t.Chunk, t.Entity}
		if _, err := bw.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func Words(tokens []types.TaggerToken) []string {
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Word
	}
	return words
}
