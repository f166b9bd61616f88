package parser

import (
	"strings"
	"unicode"

	"github.com/nathoo/taleforge/engine/vocab"
)

// PossessiveMarker is the token split off "guard's".
const PossessiveMarker = "'s"

// Tokenize splits raw input into normalized word tokens. Case is folded,
// punctuation is dropped and a trailing "'s" becomes its own token.
// Empty or whitespace-only input yields no tokens.
func Tokenize(input string) []string {
	text := vocab.Normalize(input)
	if text == "" {
		return nil
	}

	// Curly apostrophes fold to straight ones so "guard’s" works.
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-')
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if base, ok := strings.CutSuffix(f, PossessiveMarker); ok && base != "" {
			if base = strings.Trim(base, "'"); base != "" {
				tokens = append(tokens, base, PossessiveMarker)
			}
			continue
		}
		if f = strings.Trim(f, "'"); f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
