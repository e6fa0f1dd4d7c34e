// Package report computes the bot's derived views (area summaries, region
// trends, histories and risk-area lists) from plain inputs and renders them
// as Telegram MarkdownV2 text.
//
// Functions in this package are pure: the service layer loads the data and
// passes it in, which keeps every calculation testable without a database.
package report

import "strings"

// Structural characters of the emphasis markup. The backslash comes first
// so the escapes added for the others are not escaped again.
const structuralChars = "\\*_~`[]()"

// Punctuation that MarkdownV2 rejects unescaped outside of markup.
const punctuationChars = "-.+#=!|{}>"

var (
	structuralEscaper  = newEscaper(structuralChars)
	punctuationEscaper = newEscaper(punctuationChars)
)

func newEscaper(chars string) *strings.Replacer {
	pairs := make([]string, 0, 2*len(chars))
	for _, c := range chars {
		pairs = append(pairs, string(c), "\\"+string(c))
	}
	return strings.NewReplacer(pairs...)
}

// EscapeStructural runs the first pass over s.
func EscapeStructural(s string) string { return structuralEscaper.Replace(s) }

// EscapePunctuation runs the second pass over s.
func EscapePunctuation(s string) string { return punctuationEscaper.Replace(s) }

// Escape makes s safe as literal MarkdownV2 text. The structural pass runs
// first; the punctuation pass never touches the backslashes it introduced.
func Escape(s string) string { return EscapePunctuation(EscapeStructural(s)) }

// Unescape reverses Escape exactly.
func Unescape(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && isEscapable(s[i+1]) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isEscapable(c byte) bool {
	return strings.IndexByte(structuralChars, c) >= 0 || strings.IndexByte(punctuationChars, c) >= 0
}

// Bold wraps the escaped text in MarkdownV2 emphasis.
func Bold(s string) string { return "*" + Escape(s) + "*" }
