package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"text2phenotype.com/bioscope/types"
)

// TrainingOptions selects the attribute columns of a training file. Target
// is the class column; Predicted, when set, is appended after it.
type TrainingOptions struct {
	Columns      []string
	Target       string
	Predicted    string
	SentenceType string
}

func TrainingOptionsFrom(cfg types.ExportConfig) TrainingOptions {
	return TrainingOptions{
		Columns:      cfg.Columns,
		Target:       cfg.Target,
		Predicted:    cfg.Predicted,
		SentenceType: cfg.SentenceType,
	}
}

func (opts TrainingOptions) selected() []string {
	selected := append([]string{documentIDColumn, sentenceIDColumn, tokenNumColumn}, opts.Columns...)
	selected = append(selected, opts.Target)
	if opts.Predicted != "" {
		selected = append(selected, opts.Predicted)
	}
	return selected
}

// WriteTrainingFile writes one tab separated line per token ordered by
// document, sentence and token, with a blank line between sentences.
func (s *Store) WriteTrainingFile(ctx context.Context, w io.Writer, opts TrainingOptions) error {
	known, err := s.Columns(ctx)
	if err != nil {
		return err
	}
	if err := validateColumns(known, opts); err != nil {
		return err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	selected := opts.selected()
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selected, ", "), s.table)
	var args []interface{}
	if opts.SentenceType != "" && opts.SentenceType != types.SentenceTypeAll {
		query += fmt.Sprintf(" WHERE %s = ?", sentenceTypeColumn)
		args = append(args, opts.SentenceType)
	}
	query += fmt.Sprintf(" ORDER BY %s, %s, %s", documentIDColumn, sentenceIDColumn, tokenNumColumn)

	bw := bufio.NewWriter(w)
	first := true
	var prevDoc, prevSentence string
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			doc, sentence := stmt.ColumnText(0), stmt.ColumnText(1)
			if !first && (doc != prevDoc || sentence != prevSentence) {
				if err := bw.WriteByte('\n'); err != nil {
					return err
				}
			}
			first = false
			prevDoc, prevSentence = doc, sentence

			values := make([]string, len(selected))
			for i := range selected {
				values[i] = stmt.ColumnText(i)
			}
			line := strings.TrimRight(strings.Join(values, "\t"), " \t")
			_, err := bw.WriteString(line + "\n")
			return err
		},
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

func validateColumns(known []string, opts TrainingOptions) error {
	set := make(map[string]bool, len(known))
	for _, c := range known {
		set[c] = true
	}
	if opts.Target == "" {
		return fmt.Errorf("%w: no target column", ErrUnknownColumn)
	}
	for _, c := range opts.selected() {
		if !set[c] {
			return fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}
	return nil
}
