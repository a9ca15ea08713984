package trips

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// notFoundMarker is written by the upstream extractor when no city was found.
const notFoundMarker = "NOT FOUND"

// NormalizedCity is the canonical form of a city name. The empty value means
// "no city".
type NormalizedCity string

// NormalizeCity folds a free-text city name to its canonical form: accents
// removed, uppercase, punctuation replaced by single spaces. Apostrophes are
// kept, whatever their typographic form.
func NormalizeCity(name string) NormalizedCity {
	n := normalize(name)
	if n == notFoundMarker {
		return ""
	}
	return NormalizedCity(n)
}

func (c NormalizedCity) String() string { return string(c) }

// IsZero reports whether the value names no city.
func (c NormalizedCity) IsZero() bool { return c == "" }

func normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		r = foldApostrophe(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// foldApostrophe maps typographic apostrophes, as produced by PDF text
// extraction, to the ASCII one.
func foldApostrophe(r rune) rune {
	switch r {
	case '\u2019', '\u2018', '\u02BC', '\u2032', '`', '\u00B4':
		return '\''
	}
	return r
}
