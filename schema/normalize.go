package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ============================================================================
// HEADER NORMALIZATION
// ============================================================================
// "  Preço  Est. (€) " → clean "Preço Est. (€)" → key "preco_est"
//
// Keys are lower-case snake case with diacritics stripped, and
// every run of whitespace or punctuation collapses into a single underscore.
// Equivalent spellings of a header always produce the same key.
// ============================================================================

// CleanHeader trims a header and collapses internal whitespace, keeping case
// and accents. Used for display.
func CleanHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeHeader converts a raw header into its lookup key.
func NormalizeHeader(s string) string {
	s = stripDiacritics(CleanHeader(s))
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// stripDiacritics removes combining marks after canonical decomposition
// ("Preço" → "Preco"). Characters without a decomposition are kept as is.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// tokens splits a normalized key on underscores.
func tokens(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, "_")
}
