package report

import (
	"strings"
	"testing"
	"time"
)

var day = time.Date(2020, 11, 10, 0, 0, 0, 0, time.UTC)

func ptr(n int64) *int64 { return &n }

func TestClassifyTrend(t *testing.T) {
	cases := []struct {
		last, this int64
		want       Trend
	}{
		{100, 126, TrendWorsening},
		{100, 125, TrendStable},
		{100, 79, TrendImproving},
		{100, 80, TrendStable},
		{0, 5, TrendImproving},
		{100, 100, TrendStable},
	}
	for _, c := range cases {
		if got := ClassifyTrend(c.last, c.this); got != c.want {
			t.Fatalf("ClassifyTrend(L=%d, T=%d) = %s; want %s", c.last, c.this, got, c.want)
		}
	}
}

func TestEscape_RoundTrip(t *testing.T) {
	names := []string{
		"Frankfurt (Oder)",
		"Neustadt a.d. Waldnaab",
		"Sächsische Schweiz-Osterzgebirge",
		`back\slash_*under*`,
		"100% + #1 = !",
	}
	for _, n := range names {
		esc := Escape(n)
		for _, c := range []string{"(", ")", "-", "."} {
			if idx := unescapedIndex(esc, c[0]); idx >= 0 {
				t.Fatalf("Escape(%q) = %q leaves %q unescaped at %d", n, esc, c, idx)
			}
		}
		if got := Unescape(esc); got != n {
			t.Fatalf("Unescape(Escape(%q)) = %q", n, got)
		}
	}
}

// unescapedIndex finds c not preceded by an escaping backslash.
func unescapedIndex(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == c {
			return i
		}
	}
	return -1
}

func TestEscape_StageOrder(t *testing.T) {
	if got := Escape("a(b)-c."); got != `a\(b\)\-c\.` {
		t.Fatalf("Escape = %q", got)
	}
	// The punctuation pass must not re-escape backslashes from the first pass.
	if got := EscapePunctuation(EscapeStructural("(")); got != `\(` {
		t.Fatalf("double escaping: %q", got)
	}
}

func TestProject(t *testing.T) {
	if p := Project(15, 12, 1000); p == nil || *p != 1250 {
		t.Fatalf("Project(15,12,1000) = %v", p)
	}
	if p := Project(10, 3, 10); p == nil || *p != 33 {
		t.Fatalf("Project rounding = %v", p)
	}
	if p := Project(15, 0, 1000); p != nil {
		t.Fatalf("zero subset must omit the projection, got %d", *p)
	}
}

func TestBuildSummary_SortedByDelta(t *testing.T) {
	s := BuildSummary(day,
		[]string{"Bayern", "Hamburg", "Berlin"},
		map[string]int64{"Bayern": 50, "Hamburg": 20, "Berlin": 30},
		map[string]int64{"Bayern": 40, "Hamburg": 10, "Berlin": 40},
		500,
	)
	want := []string{"Bayern", "Hamburg", "Berlin"} // +10, +10, -10
	for i, a := range s.Areas {
		if a.Area != want[i] {
			t.Fatalf("order[%d] = %s; want %s (%+v)", i, a.Area, want[i], s.Areas)
		}
	}
	if s.Today != 100 || s.LastWeekSubset != 90 {
		t.Fatalf("totals %d/%d", s.Today, s.LastWeekSubset)
	}
	if s.Projection == nil || *s.Projection != 556 {
		t.Fatalf("projection = %v", s.Projection)
	}
}

func TestBuildSummary_NoBaseline(t *testing.T) {
	s := BuildSummary(day, []string{"Bremen"}, map[string]int64{"Bremen": 3}, nil, 0)
	if s.Projection != nil {
		t.Fatalf("expected nil projection")
	}
	out := FormatSummary(s)
	if !strings.Contains(out, "keine") {
		t.Fatalf("summary should state the missing projection: %q", out)
	}
}

func TestBuildAreaSummary(t *testing.T) {
	s := BuildAreaSummary(day, "Schleswig-Holstein", []RegionLine{
		{Name: "Lübeck", Today: 79, LastWeek: 100},
		{Name: "Kiel", Today: 126, LastWeek: 100},
	})
	if s.Regions[0].Name != "Kiel" || s.Regions[0].Trend != TrendWorsening {
		t.Fatalf("unexpected first region %+v", s.Regions[0])
	}
	if s.Regions[1].Trend != TrendImproving {
		t.Fatalf("unexpected trend %+v", s.Regions[1])
	}
	if s.Today != 205 || s.LastWeek != 200 {
		t.Fatalf("totals %d/%d", s.Today, s.LastWeek)
	}
}

func TestRiskAreas_Threshold(t *testing.T) {
	got := RiskAreas([]RegionSum{
		{Name: "A", Area: "X", Population: ptr(100000), Sum: 55},
		{Name: "B", Area: "X", Population: ptr(100000), Sum: 49},
		{Name: "C", Area: "Y", Population: ptr(100000), Sum: 50},
		{Name: "D", Area: "Y", Population: nil, Sum: 5000},
		{Name: "E", Area: "Y", Population: ptr(300000), Sum: 500},
	})
	if len(got) != 3 {
		t.Fatalf("expected 3 risk areas, got %+v", got)
	}
	if got[0].Name != "E" || got[0].Incidence != 166 {
		t.Fatalf("expected truncated incidence 166 first, got %+v", got[0])
	}
	if got[1].Name != "A" || got[1].Incidence != 55 || got[2].Name != "C" {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestBuildHistory(t *testing.T) {
	recs := make([]Record, 0, 9)
	for i := 0; i < 9; i++ {
		recs = append(recs, Record{Date: day.AddDate(0, 0, -i), NewCases: int64(10 + i), Link: "l" + string(rune('0'+i))})
	}
	h := BuildHistory("Kiel", "Schleswig-Holstein", ptr(250000), recs)
	if h.Latest == nil || h.Latest.NewCases != 10 || h.Link != "l0" {
		t.Fatalf("latest record must supply metadata: %+v", h)
	}
	if len(h.Window) != 7 {
		t.Fatalf("window = %d", len(h.Window))
	}
	// 11+12+...+17 = 98
	if h.Sum != 98 || h.Average != 14 {
		t.Fatalf("sum %d avg %v", h.Sum, h.Average)
	}
	if h.Incidence == nil || *h.Incidence != 39.2 {
		t.Fatalf("incidence = %v", h.Incidence)
	}

	h = BuildHistory("Kiel", "", nil, recs[:3])
	if h.Incidence != nil {
		t.Fatalf("unknown population must yield nil incidence")
	}
	if h.Average != 3.29 { // (11+12)/7
		t.Fatalf("average = %v", h.Average)
	}
}

func TestFormat_GermanNumbersAndEscaping(t *testing.T) {
	if got := Number(1234567); got != "1.234.567" {
		t.Fatalf("Number = %q", got)
	}
	if got := Decimal(39.2); got != "39,20" {
		t.Fatalf("Decimal = %q", got)
	}

	s := BuildSummary(day, []string{"Baden-Württemberg"},
		map[string]int64{"Baden-Württemberg": 1500}, map[string]int64{"Baden-Württemberg": 1000}, 2000)
	out := FormatSummary(s)
	for _, want := range []string{`*Baden\-Württemberg*`, `1\.500 \(\+500 zur Vorwoche\)`, `*Prognose*: 3\.000`, `10\.11\.2020`} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}

	risk := FormatRiskAreas(day, []RiskArea{{Name: "Frankfurt (Oder)", Area: "Brandenburg", Incidence: 120}})
	if !strings.Contains(risk, `*Frankfurt \(Oder\)*`) {
		t.Fatalf("risk list not escaped: %s", risk)
	}
}
