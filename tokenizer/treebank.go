package tokenizer

import (
	"regexp"
	"strings"
)

// Tokenizer splits raw text into Penn Treebank style word tokens.
type Tokenizer func(text string) []string

type rule struct {
	re   *regexp.Regexp
	repl string
}

func newRule(expr string, repl string) rule {
	return rule{re: regexp.MustCompile(expr), repl: repl}
}

var (
	startingQuotes = []rule{
		newRule(`^"`, "``"),
		newRule("(``)", " $1 "),
		newRule(`([ (\[{<])"`, "$1 `` "),
	}

	punctuation = []rule{
		newRule(`([:,])([^\d])`, " $1 $2"),
		newRule(`([:,])$`, " $1 "),
		newRule(`\.\.\.`, " ... "),
		newRule(`[;@#$%&]`, " $0 "),
		newRule(`([^\.])(\.)([\]\)}>"']*)\s*$`, "$1 $2$3 "),
		newRule(`[?!]`, " $0 "),
		newRule(`([^'])' `, "$1 ' "),
	}

	brackets = []rule{
		newRule(`[\]\[\(\)\{\}<>]`, " $0 "),
		newRule(`--`, " -- "),
	}

	endingQuotes = []rule{
		newRule(`"`, " '' "),
		newRule(`(\S)('')`, "$1 $2 "),
		newRule(`([^' ])('[sS]|'[mM]|'[dD]|') `, "$1 $2 "),
		newRule(`([^' ])('ll|'LL|'re|'RE|'ve|'VE|n't|N'T) `, "$1 $2 "),
	}

	// multi token words kept as separate tokens, e.g. "cannot" -> "can not"
	contractions = []rule{
		newRule(`(?i)\b(can)(not)\b`, " $1 $2 "),
		newRule(`(?i)\b(d)('ye)\b`, " $1 $2 "),
		newRule(`(?i)\b(gim)(me)\b`, " $1 $2 "),
		newRule(`(?i)\b(gon)(na)\b`, " $1 $2 "),
		newRule(`(?i)\b(got)(ta)\b`, " $1 $2 "),
		newRule(`(?i)\b(lem)(me)\b`, " $1 $2 "),
		newRule(`(?i)\b(mor)('n)\b`, " $1 $2 "),
		newRule(`(?i)\b(wan)(na) `, " $1 $2 "),
		newRule(`(?i) ('t)(is)\b`, " $1 $2 "),
		newRule(`(?i) ('t)(was)\b`, " $1 $2 "),
	}
)

// NewTreebank returns the word tokenizer used on BioScope text fragments.
// Each call is independent; fragments are tokenized without knowledge of
// their neighbours.
func NewTreebank() Tokenizer {
	groups := [][]rule{startingQuotes, punctuation, brackets}
	tail := [][]rule{endingQuotes, contractions}

	return func(text string) []string {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		for _, group := range groups {
			text = apply(group, text)
		}
		// ending quote rules look at the token following the quote
		text = " " + text + " "
		for _, group := range tail {
			text = apply(group, text)
		}
		return strings.Fields(text)
	}
}

func apply(rules []rule, text string) string {
	for _, r := range rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}
