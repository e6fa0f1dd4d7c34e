package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-corona-bot/internal/domain"
)

// AreaTotal is the summed new-case count of one area.
type AreaTotal struct {
	Area  string
	Total int64
}

// RegionComparison holds one region's count on a day and on a reference day.
type RegionComparison struct {
	RegionID int64
	Name     string
	Area     string
	Today    int64
	LastWeek int64
}

// RegionWindow is the summed count of one region over a date window.
type RegionWindow struct {
	RegionID   int64
	Name       string
	Area       string
	Population *int64
	Sum        int64
}

func onConflictDoNothing() clause.OnConflict { return clause.OnConflict{DoNothing: true} }

// AreaTotalsEntered sums day's counts per area over the regions whose
// contributor already entered the figure for day.
func AreaTotalsEntered(ctx context.Context, db *gorm.DB, day time.Time) ([]AreaTotal, error) {
	var out []AreaTotal
	err := Query(ctx, db, &out, `
		SELECT k.bundesland AS area,
		       CAST(COALESCE(SUM(f.number_of_new_cases), 0) AS BIGINT) AS total
		FROM fallzahlen f
		JOIN kreise k ON k.id = f.kreis_id
		WHERE f.date = ? AND f.is_already_entered = ?
		GROUP BY k.bundesland
		ORDER BY k.bundesland ASC`, day, true)
	return out, err
}

// AreaTotalsForSubset sums ref's counts per area, restricted to the regions
// that entered their figure on day. This is the "same subset" baseline.
func AreaTotalsForSubset(ctx context.Context, db *gorm.DB, ref, day time.Time) ([]AreaTotal, error) {
	var out []AreaTotal
	err := Query(ctx, db, &out, `
		SELECT k.bundesland AS area,
		       CAST(COALESCE(SUM(f.number_of_new_cases), 0) AS BIGINT) AS total
		FROM fallzahlen f
		JOIN kreise k ON k.id = f.kreis_id
		WHERE f.date = ?
		  AND f.kreis_id IN (
		      SELECT e.kreis_id FROM fallzahlen e
		      WHERE e.date = ? AND e.is_already_entered = ?)
		GROUP BY k.bundesland
		ORDER BY k.bundesland ASC`, ref, day, true)
	return out, err
}

// NationalTotal sums all counts of day.
func NationalTotal(ctx context.Context, db *gorm.DB, day time.Time) (int64, error) {
	var row struct{ Total int64 }
	err := Query(ctx, db, &row, `
		SELECT CAST(COALESCE(SUM(number_of_new_cases), 0) AS BIGINT) AS total
		FROM fallzahlen WHERE date = ?`, day)
	return row.Total, err
}

// CompareRegions lists the regions of area that entered their figure on day,
// with their count on day and on ref (0 when ref has no record), ordered by
// region name.
func CompareRegions(ctx context.Context, db *gorm.DB, area string, day, ref time.Time) ([]RegionComparison, error) {
	var out []RegionComparison
	err := Query(ctx, db, &out, `
		SELECT k.id AS region_id, k.kreis AS name, k.bundesland AS area,
		       t.number_of_new_cases AS today,
		       COALESCE(l.number_of_new_cases, 0) AS last_week
		FROM kreise k
		JOIN fallzahlen t ON t.kreis_id = k.id AND t.date = ? AND t.is_already_entered = ?
		LEFT JOIN fallzahlen l ON l.kreis_id = k.id AND l.date = ?
		WHERE k.bundesland = ?
		ORDER BY k.kreis ASC`, day, true, ref, area)
	return out, err
}

// WindowSums sums every region's counts over [from, to). Regions without
// records in the window are returned with Sum 0.
func WindowSums(ctx context.Context, db *gorm.DB, from, to time.Time) ([]RegionWindow, error) {
	var out []RegionWindow
	err := Query(ctx, db, &out, `
		SELECT k.id AS region_id, k.kreis AS name, k.bundesland AS area,
		       k.population AS population,
		       CAST(COALESCE(SUM(f.number_of_new_cases), 0) AS BIGINT) AS sum
		FROM kreise k
		LEFT JOIN fallzahlen f ON f.kreis_id = k.id AND f.date >= ? AND f.date < ?
		GROUP BY k.id, k.kreis, k.bundesland, k.population
		ORDER BY k.id ASC`, from, to)
	return out, err
}

// RegionHistory returns the latest limit records of a region, newest first.
func RegionHistory(ctx context.Context, db *gorm.DB, regionID int64, limit int) ([]domain.CaseRecord, error) {
	var out []domain.CaseRecord
	err := db.WithContext(ctx).
		Where("kreis_id = ?", regionID).
		Order("date DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListCaseRecords returns every record of day ordered by region id.
func ListCaseRecords(ctx context.Context, db *gorm.DB, day time.Time) ([]domain.CaseRecord, error) {
	var out []domain.CaseRecord
	err := db.WithContext(ctx).Where("date = ?", day).Order("kreis_id ASC").Find(&out).Error
	return out, err
}

// PurgeCaseRecords deletes every record dated on or before cutoff and returns
// the number of deleted rows.
func PurgeCaseRecords(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("date <= ?", cutoff).Delete(&domain.CaseRecord{})
	return res.RowsAffected, res.Error
}
