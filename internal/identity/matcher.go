package identity

import (
	"errors"
	"fmt"
	"strings"
)

// RuralSuffix marks a rural district sharing its base name with a city.
const RuralSuffix = "_Kreis"

// Type names used by the population data set.
const (
	TypeKreis           = "Kreis"
	TypeLandkreis       = "Landkreis"
	TypeStadtkreis      = "Stadtkreis"
	TypeKreisfreieStadt = "Kreisfreie Stadt"
)

// ErrNoMatch is returned when a name cannot be resolved to any entry.
var ErrNoMatch = errors.New("no matching region")

// Entry is one candidate a Matcher can resolve a name to.
type Entry struct {
	Name       string
	Type       string
	Population int64
}

// IsRural reports whether typ belongs to the rural type set.
func IsRural(typ string) bool { return typ == TypeKreis || typ == TypeLandkreis }

// IsUrban reports whether typ belongs to the urban type set.
func IsUrban(typ string) bool { return typ == TypeStadtkreis || typ == TypeKreisfreieStadt }

// SplitName returns the base name and whether the name carries RuralSuffix.
func SplitName(name string) (base string, rural bool) {
	name = strings.TrimSpace(name)
	rural = strings.Contains(name, RuralSuffix)
	base, _, _ = strings.Cut(name, "_")
	return base, rural
}

// AmbiguousBases collects the base names that exist both as a rural
// district and as a city, i.e. every base of a name carrying RuralSuffix.
func AmbiguousBases(names ...[]string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, list := range names {
		for _, n := range list {
			if base, rural := SplitName(n); rural {
				out[base] = struct{}{}
			}
		}
	}
	return out
}

// Matcher resolves names using the two-pass rule: ambiguous base names are
// told apart by the entry type (rural vs urban), every other name matches
// by exact name. The first suitable entry wins, so results depend only on
// the entry order chosen by the caller.
type Matcher struct {
	entries         []Entry
	byName          map[string][]int
	byBase          map[string][]int
	ambiguous       map[string]struct{}
	skipUnpopulated bool
	matchBase       bool
}

// MatcherOption configures a Matcher.
type MatcherOption func(*Matcher)

// SkipUnpopulated ignores entries with a zero population (population data
// lists historical districts that no longer exist with ewz = 0).
func SkipUnpopulated() MatcherOption {
	return func(m *Matcher) { m.skipUnpopulated = true }
}

// MatchBaseName lets a name that has no exact entry fall back to the entry
// named like its base ("Kiel_Foo" resolves to "Kiel"). Population data
// lists districts without sheet suffixes and needs this.
func MatchBaseName() MatcherOption {
	return func(m *Matcher) { m.matchBase = true }
}

// NewMatcher indexes entries. ambiguous lists the base names that need the
// type-based disambiguation (see AmbiguousBases).
func NewMatcher(entries []Entry, ambiguous map[string]struct{}, opts ...MatcherOption) *Matcher {
	m := &Matcher{
		entries:   entries,
		byName:    make(map[string][]int, len(entries)),
		byBase:    make(map[string][]int, len(entries)),
		ambiguous: ambiguous,
	}
	for _, o := range opts {
		o(m)
	}
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		m.byName[name] = append(m.byName[name], i)
		base, _ := SplitName(name)
		m.byBase[base] = append(m.byBase[base], i)
	}
	return m
}

// Match returns the index of the entry name resolves to.
func (m *Matcher) Match(name string) (int, error) {
	base, rural := SplitName(name)
	if _, amb := m.ambiguous[base]; amb {
		if rural {
			for _, i := range m.byBase[base] {
				if m.usable(i) && IsRural(m.entries[i].Type) {
					return i, nil
				}
			}
		} else {
			// Cities are listed with qualifiers ("München, Landeshauptstadt"),
			// so the urban pass accepts any entry containing the base.
			for i, e := range m.entries {
				if m.usable(i) && IsUrban(e.Type) && strings.Contains(e.Name, base) {
					return i, nil
				}
			}
		}
		return -1, fmt.Errorf("%w: %q", ErrNoMatch, name)
	}
	for _, i := range m.byName[strings.TrimSpace(name)] {
		if m.usable(i) {
			return i, nil
		}
	}
	if m.matchBase {
		for _, i := range m.byBase[base] {
			if m.usable(i) && strings.TrimSpace(m.entries[i].Name) == base {
				return i, nil
			}
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNoMatch, name)
}

func (m *Matcher) usable(i int) bool {
	return !m.skipUnpopulated || m.entries[i].Population != 0
}

// RegionEntries derives matcher entries from stored region names: names with
// RuralSuffix are rural, names whose base also exists with the suffix are
// urban, everything else is untyped.
func RegionEntries(names []string) ([]Entry, map[string]struct{}) {
	amb := AmbiguousBases(names)
	out := make([]Entry, len(names))
	for i, n := range names {
		base, rural := SplitName(n)
		e := Entry{Name: n}
		if rural {
			e.Type = TypeLandkreis
		} else if _, ok := amb[base]; ok {
			e.Type = TypeKreisfreieStadt
			e.Name = base
		}
		out[i] = e
	}
	return out, amb
}
