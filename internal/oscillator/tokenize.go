package oscillator

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// SentinelToken stands in for input that tokenizes to nothing.
const SentinelToken = "∅"

// MaxTokens caps the ensemble size for a single prompt. The pairwise
// coupling sum is O(N²), so the cap bounds the cost of one request.
const MaxTokens = 64

var lower = cases.Lower(language.Und)

// Tokenize splits text into lower-case word tokens.
//
// Text is NFC-normalized first so that composed and decomposed forms of the
// same character produce identical tokens (and therefore identical
// embeddings). Any rune that is not a letter, digit or underscore separates
// tokens. The result is capped at MaxTokens and is never empty: input with
// no word characters yields []string{SentinelToken}.
func Tokenize(text string) []string {
	normalized := lower.String(norm.NFC.String(text))

	tokens := strings.FieldsFunc(normalized, func(r rune) bool {
		return !isWordRune(r)
	})

	if len(tokens) == 0 {
		return []string{SentinelToken}
	}
	if len(tokens) > MaxTokens {
		tokens = tokens[:MaxTokens]
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
