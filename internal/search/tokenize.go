package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTokenLength is the longest token, in runes, that is indexed.
const MaxTokenLength = 31

// Tokenize returns the index terms of text in document order.
// Repeated terms are kept; use Unique to drop them.
func Tokenize(text string) []string {
	// Transformers carry state, so the chain is built per call.
	stripMarks := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, text); err == nil {
		text = stripped
	}
	text = cases.Fold().String(text)

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) > MaxTokenLength {
			continue
		}
		if IsStopword(f) {
			continue
		}
		if s := english.Stem(f, false); s != "" {
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// Terms returns the distinct terms of a query in query order.
func Terms(query string) []string {
	return Unique(Tokenize(query))
}

// Unique removes repeated tokens, keeping the first occurrence.
func Unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
