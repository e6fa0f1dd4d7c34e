package identity

import (
	"errors"
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestCommandToken(t *testing.T) {
	cases := map[string]string{
		"München":                     "Muenchen",
		"Baden-Württemberg":           "Baden_Wuerttemberg",
		"Frankfurt (Oder)":            "Frankfurt_Oder",
		"St. Wendel":                  "St_Wendel",
		"Görlitz":                     "Goerlitz",
		"Gießen":                      "Giessen",
		"Öhringen Ärztehaus Übersee":  "Oehringen_Aerztehaus_Uebe",
		"Mecklenburgische Seenplatte": "Mecklenburgische_Seenplat",
		"München_Kreis":               "Muenchen_Kreis",
		"Aachen, Städteregion":        "Aachen_Staedteregion",
		"Neustadt a.d. Waldnaab":      "Neustadt_ad_Waldnaab",
		"Pirmasens / Zweibrücken":     "Pirmasens___Zweibruecken",
		"Café Crème":                  "Cafe_Creme",
		"  Dresden  ":                 "Dresden",
	}
	for in, want := range cases {
		if got := CommandToken(in); got != want {
			t.Errorf("CommandToken(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestCommandToken_DeterministicAndBounded(t *testing.T) {
	name := "Sächsische Schweiz-Osterzgebirge"
	first := CommandToken(name)
	for i := 0; i < 10; i++ {
		if got := CommandToken(name); got != first {
			t.Fatalf("token changed between calls: %q vs %q", first, got)
		}
	}
	if n := utf8.RuneCountInString(first); n != MaxTokenLen {
		t.Fatalf("expected truncation to %d runes, got %d (%q)", MaxTokenLen, n, first)
	}
}

func TestRegionToken_CityStates(t *testing.T) {
	for _, name := range []string{"Berlin", "Hamburg", "Bremen"} {
		if got, want := RegionToken(name), name+CityStateSuffix; got != want {
			t.Fatalf("RegionToken(%q) = %q; want %q", name, got, want)
		}
		if RegionToken(name) == AreaToken(name) {
			t.Fatalf("region and area token must differ for %q", name)
		}
	}
	if got := RegionToken("Bremerhaven"); got != "Bremerhaven" {
		t.Fatalf("RegionToken(Bremerhaven) = %q", got)
	}
}

func TestExplicitColumn(t *testing.T) {
	names := []string{"Kiel", "Hamburg"}
	got, err := ExplicitColumn{}.Areas(names, []string{"Schleswig-Holstein", " Hamburg "})
	if err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"Schleswig-Holstein", "Hamburg"}) {
		t.Fatalf("unexpected areas %v", got)
	}
	if _, err := (ExplicitColumn{}).Areas(names, []string{"x"}); !errors.Is(err, ErrAreaMismatch) {
		t.Fatalf("expected ErrAreaMismatch on length mismatch, got %v", err)
	}
	if _, err := (ExplicitColumn{}).Areas(names, []string{"x", ""}); !errors.Is(err, ErrAreaMismatch) {
		t.Fatalf("expected ErrAreaMismatch on blank area, got %v", err)
	}
}

func TestOrderInversion(t *testing.T) {
	names := []string{
		"Dithmarschen", "Flensburg", "Kiel", // Schleswig-Holstein
		"Hamburg",                // inversion -> Hamburg
		"Ammerland", "Wolfsburg", // inversion -> Niedersachsen
		"Bremen", "Bremerhaven", // inversion -> Bremen
	}
	got, err := OrderInversion{}.Areas(names, nil)
	if err != nil {
		t.Fatalf("Areas: %v", err)
	}
	want := []string{
		"Schleswig-Holstein", "Schleswig-Holstein", "Schleswig-Holstein",
		"Hamburg",
		"Niedersachsen", "Niedersachsen",
		"Bremen", "Bremen",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Areas() = %v; want %v", got, want)
	}
}

func TestOrderInversion_FoldsUmlauts(t *testing.T) {
	// Byte-wise "Görlitz" sorts after "Gotha"; folded to "Gorlitz" it does not.
	got, err := OrderInversion{Order: []string{"A", "B"}}.Areas([]string{"Görlitz", "Gotha"}, nil)
	if err != nil {
		t.Fatalf("Areas: %v", err)
	}
	if got[0] != "A" || got[1] != "A" {
		t.Fatalf("umlaut should not start a new area: %v", got)
	}
}

func TestOrderInversion_Overflow(t *testing.T) {
	_, err := OrderInversion{Order: []string{"A"}}.Areas([]string{"b", "a"}, nil)
	if !errors.Is(err, ErrAreaOverflow) {
		t.Fatalf("expected ErrAreaOverflow, got %v", err)
	}
}

func TestStrategyFor(t *testing.T) {
	names := []string{"Kiel", "Lübeck"}
	if _, ok := StrategyFor(names, []string{"SH", "SH"}).(ExplicitColumn); !ok {
		t.Fatalf("complete area column should select ExplicitColumn")
	}
	if _, ok := StrategyFor(names, []string{"SH", ""}).(OrderInversion); !ok {
		t.Fatalf("incomplete area column should fall back to OrderInversion")
	}
	if _, ok := StrategyFor(names, nil).(OrderInversion); !ok {
		t.Fatalf("missing area column should fall back to OrderInversion")
	}
}

func TestMatcher_PopulationTwoPass(t *testing.T) {
	entries := []Entry{
		{Name: "München", Type: TypeLandkreis, Population: 350000},
		{Name: "München, Landeshauptstadt", Type: TypeKreisfreieStadt, Population: 1480000},
		{Name: "Passau", Type: TypeLandkreis, Population: 0}, // historical, skipped
		{Name: "Passau", Type: TypeKreisfreieStadt, Population: 52000},
		{Name: "Dresden", Type: TypeKreisfreieStadt, Population: 556000},
	}
	stored := []string{"München_Kreis", "München", "Passau", "Dresden"}
	m := NewMatcher(entries, AmbiguousBases(stored), SkipUnpopulated())

	want := map[string]int{
		"München_Kreis": 0,
		"München":       1,
		"Passau":        3,
		"Dresden":       4,
	}
	for name, idx := range want {
		got, err := m.Match(name)
		if err != nil {
			t.Fatalf("Match(%q): %v", name, err)
		}
		if got != idx {
			t.Fatalf("Match(%q) = %d; want %d", name, got, idx)
		}
	}

	if _, err := m.Match("Atlantis"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestMatcher_StoredRegions(t *testing.T) {
	stored := []string{"Kassel_Kreis", "Kassel", "Fulda"}
	entries, amb := RegionEntries(stored)
	m := NewMatcher(entries, amb)

	for i, name := range stored {
		got, err := m.Match(name)
		if err != nil {
			t.Fatalf("Match(%q): %v", name, err)
		}
		if got != i {
			t.Fatalf("Match(%q) = %d; want %d", name, got, i)
		}
	}
	if _, err := m.Match("Kasel"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for misspelt name, got %v", err)
	}
}

func TestMatcher_ExactNameWithUnderscore(t *testing.T) {
	stored := []string{"Region_Hannover", "Hannover", "Kiel"}
	entries, amb := RegionEntries(stored)
	m := NewMatcher(entries, amb)

	for i, name := range stored {
		got, err := m.Match(" " + name + " ")
		if err != nil || got != i {
			t.Fatalf("Match(%q) = %d, %v; want %d", name, got, err, i)
		}
	}
	if _, err := m.Match("Kiel_Nord"); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("base fallback must be off by default, got %v", err)
	}

	withBase := NewMatcher(entries, amb, MatchBaseName())
	if got, err := withBase.Match("Kiel_Nord"); err != nil || got != 2 {
		t.Fatalf("Match with base fallback = %d, %v; want 2", got, err)
	}
}
