package attendance

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Šťěpán" -> "Stepan").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeSearch normalizes text for search comparison (lowercase, no diacritics,
// collapsed whitespace, spaces for dashes).
func NormalizeSearch(s string) string {
	s = RemoveDiacritics(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// matchesStudent reports whether the normalized query occurs in the student's
// registration number or full name.
func matchesStudent(query, regNo, fullName string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(NormalizeSearch(regNo), query) ||
		strings.Contains(NormalizeSearch(fullName), query)
}
