// Package textnorm converts raw chat text into the canonical form shared by
// every downstream stage: detection, extraction, fingerprinting and matching.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultAbbreviations expands shorthand commonly seen in chat postings.
// Keys are matched as whole words, an optional trailing dot included.
var DefaultAbbreviations = map[string]string{
	"exp": "experience",
	"yrs": "years",
	"yr":  "year",
	"req": "requirements",
	"qty": "quantity",
	"f/t": "full time",
	"p/t": "part time",
}

// Normalizer cleans raw message text deterministically. It never fails;
// empty or whitespace-only input normalizes to the empty string.
type Normalizer struct {
	strip    transform.Transformer
	abbrevs  []abbreviation
	hspace   *regexp.Regexp
	blankRun *regexp.Regexp
}

type abbreviation struct {
	re   *regexp.Regexp
	full string
}

// New builds a Normalizer with the provided abbreviation table. A nil map
// falls back to DefaultAbbreviations.
func New(abbrevs map[string]string) *Normalizer {
	if abbrevs == nil {
		abbrevs = DefaultAbbreviations
	}

	compiled := make([]abbreviation, 0, len(abbrevs))
	for short, full := range abbrevs {
		compiled = append(compiled, abbreviation{
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(short) + `\b\.?`),
			full: full,
		})
	}

	return &Normalizer{
		strip: transform.Chain(
			norm.NFC,
			runes.Remove(runes.Predicate(stripRune)),
		),
		abbrevs:  compiled,
		hspace:   regexp.MustCompile(`[ \t]+`),
		blankRun: regexp.MustCompile(`\n{2,}`),
	}
}

// stripRune reports runes dropped from normalized text: control and format
// characters (newline excepted, line structure feeds the detector cues),
// emoji and other pictographic symbols, and markdown emphasis characters.
func stripRune(r rune) bool {
	if r == '\n' || r == '\r' {
		return false
	}
	switch r {
	case '*', '_', '`', '~':
		return true
	}
	return unicode.In(r, unicode.Cc, unicode.Cf, unicode.So, unicode.Sk, unicode.Co)
}

// Normalize lower-cases, strips control/markup characters, expands
// abbreviations and collapses whitespace. Horizontal whitespace collapses to
// a single space and blank-line runs to a single newline, so line structure
// survives for the structural detector signals. Idempotent.
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	out, _, err := transform.String(n.strip, text)
	if err != nil {
		// The chain never errors on valid UTF-8; keep the raw text otherwise.
		out = text
	}

	out = strings.ToLower(out)
	for _, a := range n.abbrevs {
		out = a.re.ReplaceAllString(out, a.full)
	}

	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = n.hspace.ReplaceAllString(out, " ")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	out = strings.Join(lines, "\n")
	out = n.blankRun.ReplaceAllString(out, "\n")

	return strings.TrimSpace(out)
}

var titleCaser = cases.Title(language.English)

// TitleCase renders a normalized (lowercase) extracted value for display,
// e.g. "python developer" -> "Python Developer".
func TitleCase(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}
