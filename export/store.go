package export

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"text2phenotype.com/bioscope/corpus"
	"text2phenotype.com/bioscope/logger"
	"text2phenotype.com/bioscope/types"
)

var ErrUnknownColumn = errors.New("export: unknown column")

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var exportLogger = logger.NewLogger("Export")

const (
	documentIDColumn   = "document_id"
	sentenceIDColumn   = "sentence_id"
	tokenNumColumn     = "token_num"
	sentenceTypeColumn = "sentence_type"
)

// Store keeps sentence attribute tables in one SQLite table, one row per
// token.
type Store struct {
	pool  *sqlitex.Pool
	table string
}

func Open(dbPath string, table string) (*Store, error) {
	if !identifierRe.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidTableName, table)
	}
	pool, err := sqlitex.NewPool(fmt.Sprintf("file:%s", dbPath), sqlitex.PoolOptions{
		PoolSize: runtime.NumCPU(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open attribute database at %s: %w", dbPath, err)
	}
	return &Store{pool: pool, table: table}, nil
}

func (s *Store) Close() error {
	return s.pool.Close()
}

func attributeColumns() []string {
	columns := make([]string, len(types.AttributeHeader))
	for i, header := range types.AttributeHeader {
		columns[i] = types.ColumnName(header)
	}
	return columns
}

func (s *Store) CreateSchema(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	script := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n"+
		"  %s TEXT NOT NULL,\n"+
		"  %s TEXT NOT NULL,\n"+
		"  %s INTEGER NOT NULL,\n"+
		"  %s TEXT NOT NULL,\n",
		s.table, documentIDColumn, sentenceIDColumn, tokenNumColumn, sentenceTypeColumn)
	for _, column := range attributeColumns() {
		script += fmt.Sprintf("  %s TEXT NOT NULL DEFAULT '',\n", column)
	}
	script += fmt.Sprintf("  PRIMARY KEY (%s, %s, %s)\n);\n", documentIDColumn, sentenceIDColumn, tokenNumColumn)
	script += fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_sentence_type ON %s (%s);\n", s.table, s.table, sentenceTypeColumn)

	if err := sqlitex.ExecuteScript(conn, script, nil); err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// Columns lists the columns of the attribute table in schema order.
func (s *Store) Columns(ctx context.Context) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var columns []string
	err = sqlitex.Execute(conn, fmt.Sprintf("PRAGMA table_info(%s)", s.table), &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			columns = append(columns, stmt.GetText("name"))
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// WriteSentence replaces the rows of one sentence.
func (s *Store) WriteSentence(ctx context.Context, attrs types.SentenceAttributes) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	defer sqlitex.Save(conn)(&err)

	err = sqlitex.Execute(conn,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", s.table, documentIDColumn, sentenceIDColumn),
		&sqlitex.ExecOptions{Args: []interface{}{attrs.DocumentID, attrs.SentenceID}})
	if err != nil {
		return err
	}

	columns := append([]string{documentIDColumn, sentenceIDColumn, tokenNumColumn, sentenceTypeColumn}, attributeColumns()...)
	placeholders := "?"
	for range columns[1:] {
		placeholders += ", ?"
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, strings.Join(columns, ", "), placeholders)

	for i, row := range attrs.Rows {
		if len(row) != len(types.AttributeHeader) {
			return fmt.Errorf("export: %s:%s token %d has %d attributes", attrs.DocumentID, attrs.SentenceID, i, len(row))
		}
		args := []interface{}{attrs.DocumentID, attrs.SentenceID, i, attrs.SentenceType}
		for _, value := range row {
			args = append(args, value)
		}
		if err = sqlitex.Execute(conn, insert, &sqlitex.ExecOptions{Args: args}); err != nil {
			return err
		}
	}
	return nil
}

// WriteDocument stores every loaded sentence of a document and returns how
// many were written.
func (s *Store) WriteDocument(ctx context.Context, doc *corpus.Document) (int, error) {
	written := 0
	for _, sentence := range doc.Ordered() {
		if !sentence.Loaded {
			exportLogger.Debug().
				Str("document_id", doc.ID).
				Str("sentence_id", sentence.ID).
				Msg("Skipping sentence that is not loaded")
			continue
		}
		attrs, err := sentence.Attributes()
		if err != nil {
			return written, err
		}
		if err := s.WriteSentence(ctx, attrs); err != nil {
			return written, fmt.Errorf("writing %s:%s: %w", doc.ID, sentence.ID, err)
		}
		written++
	}
	return written, nil
}
