// Package services – Reporter
//
// Reporter loads the aggregates a report needs from the repository and hands
// them to the pure builders of package report. "Today" is always the
// calendar date in the reporting time zone; comparisons use the same
// weekday one week earlier.
package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/domain"
	"github.com/tbourn/go-corona-bot/internal/repo"
	"github.com/tbourn/go-corona-bot/internal/report"
)

// WindowDays is the length of the comparison and incidence window.
const WindowDays = 7

// Reporter builds reports from stored case records.
type Reporter struct {
	DB       *gorm.DB
	Location *time.Location
	Now      func() time.Time
}

// Today is the current calendar date in the reporting time zone.
func (s *Reporter) Today() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return domain.Day(now, loc)
}

func toMap(in []repo.AreaTotal) map[string]int64 {
	out := make(map[string]int64, len(in))
	for _, a := range in {
		out[a.Area] = a.Total
	}
	return out
}

// Summarize builds the national summary for today: every area's submitted
// total compared with the same regions one week earlier, plus the projected
// national total.
func (s *Reporter) Summarize(ctx context.Context, today time.Time) (report.Summary, error) {
	tr := otel.Tracer("services/Reporter")
	ctx, span := tr.Start(ctx, "Summarize",
		trace.WithAttributes(attribute.String("date", today.Format(time.DateOnly))),
	)
	defer span.End()

	lastWeek := today.AddDate(0, 0, -WindowDays)
	areas, err := repo.ListAreas(ctx, s.DB)
	if err != nil {
		return report.Summary{}, err
	}
	cur, err := repo.AreaTotalsEntered(ctx, s.DB, today)
	if err != nil {
		return report.Summary{}, err
	}
	prev, err := repo.AreaTotalsForSubset(ctx, s.DB, lastWeek, today)
	if err != nil {
		return report.Summary{}, err
	}
	national, err := repo.NationalTotal(ctx, s.DB, lastWeek)
	if err != nil {
		return report.Summary{}, err
	}
	return report.BuildSummary(today, areas, toMap(cur), toMap(prev), national), nil
}

// SummarizeArea compares every submitted region of area with last week.
func (s *Reporter) SummarizeArea(ctx context.Context, today time.Time, area string) (report.AreaSummary, error) {
	tr := otel.Tracer("services/Reporter")
	ctx, span := tr.Start(ctx, "SummarizeArea",
		trace.WithAttributes(
			attribute.String("area", area),
			attribute.String("date", today.Format(time.DateOnly)),
		),
	)
	defer span.End()

	rows, err := repo.CompareRegions(ctx, s.DB, area, today, today.AddDate(0, 0, -WindowDays))
	if err != nil {
		return report.AreaSummary{}, err
	}
	lines := make([]report.RegionLine, len(rows))
	for i, r := range rows {
		lines[i] = report.RegionLine{Name: r.Name, Today: r.Today, LastWeek: r.LastWeek}
	}
	return report.BuildAreaSummary(today, area, lines), nil
}

// RegionHistory returns the history view of the named region.
func (s *Reporter) RegionHistory(ctx context.Context, name string) (report.History, error) {
	tr := otel.Tracer("services/Reporter")
	ctx, span := tr.Start(ctx, "RegionHistory", trace.WithAttributes(attribute.String("region", name)))
	defer span.End()

	region, err := repo.GetRegionByName(ctx, s.DB, name)
	if err != nil {
		if repo.IsNotFound(err) {
			return report.History{}, fmt.Errorf("%w: %s", ErrRegionNotFound, name)
		}
		return report.History{}, err
	}
	return s.historyOf(ctx, region)
}

// RegionHistoryByID is RegionHistory for a known region id.
func (s *Reporter) RegionHistoryByID(ctx context.Context, id int64) (report.History, error) {
	region, err := repo.GetRegion(ctx, s.DB, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return report.History{}, fmt.Errorf("%w: id %d", ErrRegionNotFound, id)
		}
		return report.History{}, err
	}
	return s.historyOf(ctx, region)
}

func (s *Reporter) historyOf(ctx context.Context, region *domain.Region) (report.History, error) {
	recs, err := repo.RegionHistory(ctx, s.DB, region.ID, report.HistoryRecords)
	if err != nil {
		return report.History{}, err
	}
	in := make([]report.Record, len(recs))
	for i, r := range recs {
		in[i] = report.Record{Date: r.Date, NewCases: r.NewCases, Link: r.Link}
	}
	return report.BuildHistory(region.Name, region.Area, region.Population, in), nil
}

// RiskAreas lists the regions whose incidence over [today-7, today) is at
// least report.RiskThreshold.
func (s *Reporter) RiskAreas(ctx context.Context, today time.Time) ([]report.RiskArea, error) {
	tr := otel.Tracer("services/Reporter")
	ctx, span := tr.Start(ctx, "RiskAreas",
		trace.WithAttributes(attribute.String("date", today.Format(time.DateOnly))),
	)
	defer span.End()

	sums, err := repo.WindowSums(ctx, s.DB, today.AddDate(0, 0, -WindowDays), today)
	if err != nil {
		return nil, err
	}
	in := make([]report.RegionSum, len(sums))
	for i, w := range sums {
		in[i] = report.RegionSum{Name: w.Name, Area: w.Area, Population: w.Population, Sum: w.Sum}
	}
	return report.RiskAreas(in), nil
}
