package bioscope

import (
	"strings"

	"text2phenotype.com/bioscope/types"
)

const maxMerge = 4

var brackets = map[string]bool{
	"(": true, ")": true,
	"[": true, "]": true,
	"{": true, "}": true,
}

// Retokenize merges adjacent annotation tokens so that they follow the
// tagger tokenization. A merged token keeps the tags of its first part.
// Brackets are taken as equal since the tagger renders them in Treebank
// form. Mismatches that no merge of up to four tokens resolves are left in
// place.
func Retokenize(tagger []string, tokens []types.TaggedToken) []types.TaggedToken {
	out := append([]types.TaggedToken(nil), tokens...)
	for i := 0; i < len(tagger) && i < len(out); i++ {
		word := tagger[i]
		if word == out[i].Text || brackets[out[i].Text] {
			continue
		}
		for n := 2; n <= maxMerge && i+n <= len(out); n++ {
			if word == joinText(out[i:i+n]) {
				out = merge(out, i, n)
				break
			}
		}
	}
	return out
}

func joinText(tokens []types.TaggedToken) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func merge(tokens []types.TaggedToken, i int, n int) []types.TaggedToken {
	merged := types.TaggedToken{Text: joinText(tokens[i : i+n]), Tags: tokens[i].Tags}
	out := append(tokens[:i:i], merged)
	return append(out, tokens[i+n:]...)
}
