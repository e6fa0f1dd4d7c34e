package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var umlautFold = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// Normalize folds s for matching: lower case, German umlauts spelled out,
// other diacritics dropped, and everything except letters and digits
// removed. "/Baden-Württemberg" and "baden_wuerttemberg" fold to the same key.
func Normalize(s string) string {
	s = umlautFold.Replace(strings.ToLower(strings.TrimSpace(s)))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Grams splits key into character n-grams. The key is padded with one
// boundary marker on each side so that prefixes and suffixes weigh in;
// keys shorter than n yield the padded key as their only gram.
func Grams(key string, n int) map[string]struct{} {
	if key == "" {
		return nil
	}
	r := []rune("^" + key + "$")
	out := make(map[string]struct{}, len(r))
	if len(r) <= n {
		out[string(r)] = struct{}{}
		return out
	}
	for i := 0; i+n <= len(r); i++ {
		out[string(r[i:i+n])] = struct{}{}
	}
	return out
}
