// Package strutil holds the pure string normalization helpers used by the
// name reconciliation matcher. No I/O here.
package strutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Dash and hyphen code points collapsed to ASCII hyphen.
var dashes = runes.In(&unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2010, Hi: 0x2015, Stride: 1}, // hyphen .. horizontal bar
		{Lo: 0x2043, Hi: 0x2043, Stride: 1}, // hyphen bullet
		{Lo: 0x2212, Hi: 0x2212, Stride: 1}, // minus sign
	},
})

// decompose strips combining diacritical marks after canonical
// decomposition.
var decompose = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Clean normalizes a name for comparison: Unicode canonical decomposition,
// diacritic stripping, and dash-variant collapsing. Idempotent.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(decompose, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		if dashes.Contains(r) {
			return '-'
		}
		return r
	}, out)
}

// CleanList splits a semicolon-delimited tag value, trims each component
// and normalizes it. Empty input yields nil.
func CleanList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, Clean(p))
	}
	return out
}

// abbreviations expanded before name comparison. The table is deliberately
// small; new entries join as they show up in state runs.
var abbreviations = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`\bSte\.`), "Sainte"},
	{regexp.MustCompile(`\bSt\.`), "Saint"},
}

// ExpandAbbreviations replaces known abbreviation tokens in a single pass.
// Empty input passes through unchanged.
func ExpandAbbreviations(s string) string {
	if s == "" {
		return s
	}
	for _, a := range abbreviations {
		s = a.re.ReplaceAllString(s, a.replacement)
	}
	return s
}

// ExpandAbbreviationsList applies ExpandAbbreviations to each element.
func ExpandAbbreviationsList(names []string) []string {
	if len(names) == 0 {
		return names
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = ExpandAbbreviations(n)
	}
	return out
}

// FirstCommaComponent returns the substring before the first comma,
// trimmed. Wikidata labels carry disambiguating suffixes
// ("Springfield, Massachusetts") that OSM names never do.
func FirstCommaComponent(s string) string {
	before, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(before)
}

// NamesMatch reports whether any normalized element of a equals any
// normalized element of b. Empty inputs never match.
func NamesMatch(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[Clean(s)] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[Clean(s)]; ok {
			return true
		}
	}
	return false
}
