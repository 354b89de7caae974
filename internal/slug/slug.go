// Package slug turns free text into URL-safe identifiers.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	invalid    = regexp.MustCompile(`[^\w\s-]`)
	separators = regexp.MustCompile(`[-\s]+`)
)

// Make folds s to ASCII, lowercases it, drops punctuation and joins words with hyphens.
func Make(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, folded)

	out := invalid.ReplaceAllString(strings.ToLower(ascii), "")
	out = separators.ReplaceAllString(strings.TrimSpace(out), "-")
	return strings.Trim(out, "-_")
}
