// Package identity maps free-form region and area names onto the stable
// identifiers used by the bot: command-safe tokens for chat routes, parent
// area inference for freshly seeded regions, and the two-pass name matcher
// that links sheet rows and population data to stored regions.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxTokenLen caps command tokens (in runes).
const MaxTokenLen = 25

// CityStateSuffix disambiguates a city-state region from its own area.
const CityStateSuffix = "_Stadt"

// cityStates are regions whose name equals the name of their parent area.
var cityStates = map[string]struct{}{
	"Berlin":  {},
	"Hamburg": {},
	"Bremen":  {},
}

var umlauts = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
)

var separators = strings.NewReplacer(
	" ", "_", "-", "_", "/", "_",
	"(", "", ")", "", ".", "", ",", "",
)

// CommandToken converts name into a chat-command token. It is a pure
// function: German umlauts follow the fixed substitution table, any other
// diacritic is dropped, spaces and hyphens become underscores, parentheses
// and periods disappear, and the result is cut to MaxTokenLen runes.
func CommandToken(name string) string {
	s := umlauts.Replace(strings.TrimSpace(name))
	s = stripMarks(s)
	s = separators.Replace(s)
	if r := []rune(s); len(r) > MaxTokenLen {
		s = string(r[:MaxTokenLen])
	}
	return s
}

// RegionToken returns the command token for a region. City-states get
// CityStateSuffix so they do not clash with the token of their area.
func RegionToken(name string) string {
	tok := CommandToken(name)
	if _, ok := cityStates[strings.TrimSpace(name)]; ok {
		tok += CityStateSuffix
	}
	return tok
}

// AreaToken returns the command token for an area.
func AreaToken(area string) string { return CommandToken(area) }

// stripMarks removes combining marks left after NFD decomposition
// ("é" -> "e"). The transformer is not safe for concurrent use, so a fresh
// chain is built per call.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
