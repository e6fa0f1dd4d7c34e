package report

import (
	"math"
	"sort"
	"time"
)

// AreaLine compares one area's submitted total today with the same regions'
// total one week earlier.
type AreaLine struct {
	Area     string `json:"area"`
	Today    int64  `json:"today"`
	LastWeek int64  `json:"last_week"`
}

// Delta is Today minus LastWeek.
func (a AreaLine) Delta() int64 { return a.Today - a.LastWeek }

// Summary is the national view for one day.
type Summary struct {
	Date             time.Time  `json:"date"`
	Areas            []AreaLine `json:"areas"`
	Today            int64      `json:"today"`
	LastWeekSubset   int64      `json:"last_week_subset"`
	LastWeekNational int64      `json:"last_week_national"`
	Projection       *int64     `json:"projection,omitempty"`
}

// BuildSummary assembles the national summary. areas lists every known area;
// today and lastWeek map area names to totals (missing areas count as zero).
// Areas are sorted by delta descending, ties by name.
func BuildSummary(date time.Time, areas []string, today, lastWeek map[string]int64, lastWeekNational int64) Summary {
	s := Summary{Date: date, LastWeekNational: lastWeekNational}
	seen := make(map[string]struct{}, len(areas))
	add := func(a string) {
		if _, ok := seen[a]; ok {
			return
		}
		seen[a] = struct{}{}
		line := AreaLine{Area: a, Today: today[a], LastWeek: lastWeek[a]}
		s.Areas = append(s.Areas, line)
		s.Today += line.Today
		s.LastWeekSubset += line.LastWeek
	}
	for _, a := range areas {
		add(a)
	}
	for _, m := range []map[string]int64{today, lastWeek} {
		for _, a := range sortedKeys(m) {
			add(a)
		}
	}
	sort.SliceStable(s.Areas, func(i, j int) bool {
		di, dj := s.Areas[i].Delta(), s.Areas[j].Delta()
		if di != dj {
			return di > dj
		}
		return s.Areas[i].Area < s.Areas[j].Area
	})
	s.Projection = Project(s.Today, s.LastWeekSubset, lastWeekNational)
	return s
}

// Project extrapolates today's national total from the regions that have
// already submitted: today / lastWeekSubset * lastWeekNational, rounded.
// It returns nil when the subset had no cases last week.
func Project(today, lastWeekSubset, lastWeekNational int64) *int64 {
	if lastWeekSubset == 0 {
		return nil
	}
	p := int64(math.Round(float64(today) / float64(lastWeekSubset) * float64(lastWeekNational)))
	return &p
}

// RegionLine is one region inside an area summary.
type RegionLine struct {
	Name     string `json:"name"`
	Today    int64  `json:"today"`
	LastWeek int64  `json:"last_week"`
	Trend    Trend  `json:"trend"`
}

// AreaSummary lists the submitted regions of one area.
type AreaSummary struct {
	Date     time.Time    `json:"date"`
	Area     string       `json:"area"`
	Regions  []RegionLine `json:"regions"`
	Today    int64        `json:"today"`
	LastWeek int64        `json:"last_week"`
}

// BuildAreaSummary classifies each region and sorts them by name.
func BuildAreaSummary(date time.Time, area string, lines []RegionLine) AreaSummary {
	out := AreaSummary{Date: date, Area: area, Regions: make([]RegionLine, len(lines))}
	copy(out.Regions, lines)
	for i := range out.Regions {
		r := &out.Regions[i]
		r.Trend = ClassifyTrend(r.LastWeek, r.Today)
		out.Today += r.Today
		out.LastWeek += r.LastWeek
	}
	sort.SliceStable(out.Regions, func(i, j int) bool { return out.Regions[i].Name < out.Regions[j].Name })
	return out
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
