package gallery

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// CanonicalName converts a display name into the canonical label form used
// across the gallery, the people directory and attendance records: lowercase,
// diacritics folded, whitespace collapsed to underscores, everything outside
// [a-z0-9._-] dropped.
func CanonicalName(name string) string {
	s := removeDiacritics(strings.TrimSpace(name))
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "_")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "_")
}
