package report

import (
	"math"
	"sort"
	"time"
)

const (
	// RiskThreshold is the 7-day incidence at and above which a region is a
	// risk area.
	RiskThreshold = 50

	// HistoryRecords is how many records the history view loads: the newest
	// one plus a 7-day display window.
	HistoryRecords = 8

	per100k = 100000
)

// RegionSum is a region's summed count over a window.
type RegionSum struct {
	Name       string
	Area       string
	Population *int64
	Sum        int64
}

// RiskArea is one entry of the risk-area list.
type RiskArea struct {
	Name      string `json:"name"`
	Area      string `json:"area"`
	Incidence int64  `json:"incidence"`
}

// RiskAreas computes the truncated 7-day incidence of every region with a
// known population and returns those at or above RiskThreshold, highest
// first (ties by name).
func RiskAreas(sums []RegionSum) []RiskArea {
	out := make([]RiskArea, 0)
	for _, s := range sums {
		inc, ok := TruncatedIncidence(s.Sum, s.Population)
		if !ok || inc < RiskThreshold {
			continue
		}
		out = append(out, RiskArea{Name: s.Name, Area: s.Area, Incidence: inc})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Incidence != out[j].Incidence {
			return out[i].Incidence > out[j].Incidence
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TruncatedIncidence is sum per 100,000 inhabitants, truncated. ok is false
// when the population is unknown or not positive.
func TruncatedIncidence(sum int64, population *int64) (int64, bool) {
	if population == nil || *population <= 0 {
		return 0, false
	}
	return sum * per100k / *population, true
}

// HistoryDay is one day of the history window.
type HistoryDay struct {
	Date     time.Time `json:"date"`
	NewCases int64     `json:"new_cases"`
}

// History is the per-region view.
type History struct {
	Region     string       `json:"region"`
	Area       string       `json:"area"`
	Population *int64       `json:"population,omitempty"`
	Link       string       `json:"link,omitempty"`
	Latest     *HistoryDay  `json:"latest,omitempty"`
	Window     []HistoryDay `json:"window"`
	Sum        int64        `json:"sum"`
	Average    float64      `json:"average"`
	Incidence  *float64     `json:"incidence,omitempty"`
}

// Record is the subset of a stored case record the history view needs.
type Record struct {
	Date     time.Time
	NewCases int64
	Link     string
}

// BuildHistory turns the newest records of a region (date descending, at
// most HistoryRecords) into a History. The first record supplies the link,
// the following seven form the window. Average is sum/7 and incidence is
// sum per 100,000 inhabitants, both rounded to two decimals; incidence is
// nil when the population is unknown.
func BuildHistory(region, area string, population *int64, recs []Record) History {
	h := History{Region: region, Area: area, Population: population, Window: []HistoryDay{}}
	if len(recs) > HistoryRecords {
		recs = recs[:HistoryRecords]
	}
	if len(recs) == 0 {
		return h
	}
	h.Link = recs[0].Link
	h.Latest = &HistoryDay{Date: recs[0].Date, NewCases: recs[0].NewCases}
	for _, r := range recs[1:] {
		h.Window = append(h.Window, HistoryDay{Date: r.Date, NewCases: r.NewCases})
		h.Sum += r.NewCases
	}
	h.Average = round2(float64(h.Sum) / 7)
	if population != nil && *population > 0 {
		inc := round2(float64(h.Sum) * per100k / float64(*population))
		h.Incidence = &inc
	}
	return h
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
