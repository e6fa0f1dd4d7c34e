package report

// Trend classifies a region's week-over-week development.
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
	TrendImproving Trend = "improving"
)

// ClassifyTrend compares this week's count with last week's. It is
// worsening above 125 % of last week, improving below 80 % or when last week
// was zero, and stable otherwise (boundaries included). Integer arithmetic
// keeps the thresholds exact.
func ClassifyTrend(last, this int64) Trend {
	switch {
	case last == 0:
		return TrendImproving
	case 4*this > 5*last:
		return TrendWorsening
	case 5*this < 4*last:
		return TrendImproving
	default:
		return TrendStable
	}
}

// Marker is the symbol printed next to a region.
func (t Trend) Marker() string {
	switch t {
	case TrendWorsening:
		return "↗"
	case TrendImproving:
		return "↘"
	default:
		return "→"
	}
}
