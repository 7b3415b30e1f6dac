package types

import "strings"

const (
	SentenceTypeNone        = "NONE"
	SentenceTypeSpeculation = "SPECULATION"
	SentenceTypeNegation    = "NEGATION"
	SentenceTypeBoth        = "SPECULATION_NEGATION"
)

// AttributeHeader is the first row of a sentence attribute table.
var AttributeHeader = []string{
	"TOKEN", "LEMMA", "POS", "CHUNK", "NE", "SPEC-CUE", "NEG-CUE", "SPEC-XCOPE", "NEG-XCOPE",
}

// ColumnName maps an attribute header to its database column, e.g.
// "SPEC-CUE" to "spec_cue".
func ColumnName(header string) string {
	return strings.ToLower(strings.ReplaceAll(header, "-", "_"))
}

// AttributeRow renders a token as a row aligned with AttributeHeader.
func AttributeRow(token string, record TokenRecord) []string {
	return []string{
		token,
		record.Lemma,
		record.POS,
		record.Chunk,
		strings.TrimSpace(record.Entity),
		record.SpecCue.String(),
		record.NegCue.String(),
		record.SpecXcope.String(),
		record.NegXcope.String(),
	}
}

// SentenceAttributes is the attribute table of one sentence, as cached and
// uploaded by the worker.
type SentenceAttributes struct {
	DocumentID   string     `json:"document_id"`
	SentenceID   string     `json:"sentence_id"`
	SentenceType string     `json:"sentence_type"`
	Rows         [][]string `json:"rows"`
}
