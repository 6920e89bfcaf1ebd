package textnorm

import (
	"strings"
	"unicode"
)

// stopWords filters common words that add noise to token-set comparison and
// keyword matching.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "per": true,
	"able": true, "get": true, "set": true, "such": true, "now": true,
}

// Tokens splits text into lowercase keyword tokens of at least three runes,
// dropping stop words. Tech glyphs are treated as word characters so terms
// like "c++", "c#" and "node.js" survive tokenization.
func Tokens(text string) []string {
	var (
		tokens []string
		word   strings.Builder
	)

	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if len([]rune(w)) >= 3 && !stopWords[w] {
			tokens = append(tokens, w)
		}
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

// TokenSet returns the unique tokens of text as a membership map.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokens(text) {
		set[tok] = true
	}
	return set
}
