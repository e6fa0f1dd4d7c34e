// Package services – Reconciler
//
// This file implements the fetch → reconcile → upsert cycle. Fetched sheet
// rows are matched onto the stored regions, checked against the reset
// heuristic and written as one transactional upsert. Any failure aborts the
// cycle before a single row is written.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/domain"
	"github.com/tbourn/go-corona-bot/internal/identity"
	"github.com/tbourn/go-corona-bot/internal/repo"
	"github.com/tbourn/go-corona-bot/internal/risklayer"
)

// Default reset heuristic thresholds.
const (
	DefaultResetHour     = 18
	DefaultResetMinCases = 100
)

// Fetcher returns the rows of the current reporting period.
type Fetcher interface {
	FetchCurrentPeriod(ctx context.Context) (risklayer.RawRows, error)
}

// Reconciler runs fetch cycles.
type Reconciler struct {
	DB      *gorm.DB
	Fetcher Fetcher

	// Location is the reporting time zone (Europe/Berlin); nil means UTC.
	Location *time.Location

	// Reset heuristic: a fetch after ResetHour (local) whose total is below
	// ResetMinCases is discarded.
	ResetHour     int
	ResetMinCases int64

	// Now is overridable in tests.
	Now func() time.Time
}

// CycleResult describes a successful cycle.
type CycleResult struct {
	Date    time.Time
	Rows    int
	Total   int64
	Entered int
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Reconcile turns fetched rows into one case record per row for asOf's
// calendar date. Every row must resolve to exactly one known region;
// otherwise nothing is returned. Negative counts are corrected to zero.
func Reconcile(rows risklayer.RawRows, known []domain.Region, asOf time.Time) ([]domain.CaseRecord, error) {
	if len(known) == 0 {
		return nil, ErrNoRegions
	}
	names := make([]string, len(known))
	for i, k := range known {
		names[i] = k.Name
	}
	entries, ambiguous := identity.RegionEntries(names)
	m := identity.NewMatcher(entries, ambiguous)

	day := domain.Day(asOf, asOf.Location())
	out := make([]domain.CaseRecord, 0, rows.Len())
	used := make(map[int64]int, rows.Len())
	for i, name := range rows.Names {
		idx, err := m.Match(name)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d %q: %v", ErrIdentityResolution, i, name, err)
		}
		id := known[idx].ID
		if prev, dup := used[id]; dup {
			return nil, fmt.Errorf("%w: rows %d and %d both resolve to region %d (%s)",
				ErrIdentityResolution, prev, i, id, known[idx].Name)
		}
		used[id] = i

		n := rows.NewCases[i]
		if n < 0 {
			n = 0
		}
		rec := domain.CaseRecord{RegionID: id, Date: day, NewCases: n}
		if i < len(rows.Entered) {
			rec.Entered = rows.Entered[i]
		}
		if i < len(rows.Links) {
			rec.Link = rows.Links[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

// DetectReset returns ErrDataAnomaly when now is strictly past the reset
// hour in the reporting time zone and total is below the minimum.
func (r *Reconciler) DetectReset(now time.Time, total int64) error {
	hour, minCases := r.ResetHour, r.ResetMinCases
	if hour <= 0 {
		hour = DefaultResetHour
	}
	if minCases <= 0 {
		minCases = DefaultResetMinCases
	}
	local := now.In(r.loc())
	gate := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, local.Location())
	if local.After(gate) && total < minCases {
		return fmt.Errorf("%w: total %d below %d after %02d:00", ErrDataAnomaly, total, minCases, hour)
	}
	return nil
}

func (r *Reconciler) loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

// Today is the current calendar date in the reporting time zone.
func (r *Reconciler) Today() time.Time { return domain.Day(r.now(), r.loc()) }

// RunCycle fetches the current period, reconciles it against the stored
// regions, applies the reset heuristic and upserts the result in one
// transaction. Errors wrap risklayer.ErrFetch, ErrIdentityResolution,
// ErrDataAnomaly or ErrPersistence.
func (r *Reconciler) RunCycle(ctx context.Context) (CycleResult, error) {
	tr := otel.Tracer("services/Reconciler")
	ctx, span := tr.Start(ctx, "RunCycle")
	defer span.End()

	res, err := r.runCycle(ctx, span)
	outcome := "ok"
	switch {
	case err == nil:
		cycleRows.Set(float64(res.Rows))
	case errors.Is(err, risklayer.ErrFetch):
		outcome = "fetch_error"
	case errors.Is(err, ErrDataAnomaly):
		outcome = "anomaly"
	case errors.Is(err, ErrIdentityResolution), errors.Is(err, ErrNoRegions):
		outcome = "identity_error"
	default:
		outcome = "persist_error"
	}
	cycleRuns.WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	return res, err
}

func (r *Reconciler) runCycle(ctx context.Context, span trace.Span) (CycleResult, error) {
	now := r.now()
	day := domain.Day(now, r.loc())

	rows, err := r.Fetcher.FetchCurrentPeriod(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	total := rows.Total()
	span.SetAttributes(
		attribute.Int("rows", rows.Len()),
		attribute.Int64("total", total),
		attribute.String("date", day.Format(time.DateOnly)),
	)

	known, err := repo.ListRegions(ctx, r.DB)
	if err != nil {
		return CycleResult{}, fmt.Errorf("%w: list regions: %v", ErrPersistence, err)
	}
	recs, err := Reconcile(rows, known, day)
	if err != nil {
		return CycleResult{}, err
	}
	if err := r.DetectReset(now, total); err != nil {
		log.Warn().Err(err).Int64("total", total).Time("now", now).Msg("fetch cycle discarded: probable upstream reset")
		return CycleResult{}, err
	}
	if err := repo.Upsert(ctx, r.DB, recs); err != nil {
		return CycleResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	res := CycleResult{Date: day, Rows: len(recs), Total: total}
	for _, rec := range recs {
		if rec.Entered {
			res.Entered++
		}
	}
	log.Info().
		Str("date", day.Format(time.DateOnly)).
		Int("rows", res.Rows).
		Int("entered", res.Entered).
		Int64("total", total).
		Msg("fetch cycle stored")
	return res, nil
}

// Purge deletes case records dated on or before today minus retentionDays.
func (r *Reconciler) Purge(ctx context.Context, retentionDays int) (int64, error) {
	tr := otel.Tracer("services/Reconciler")
	ctx, span := tr.Start(ctx, "Purge", trace.WithAttributes(attribute.Int("retention_days", retentionDays)))
	defer span.End()

	cutoff := r.Today().AddDate(0, 0, -retentionDays)
	n, err := repo.PurgeCaseRecords(ctx, r.DB, cutoff)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("%w: purge: %v", ErrPersistence, err)
	}
	log.Info().Str("cutoff", cutoff.Format(time.DateOnly)).Int64("deleted", n).Msg("purged case records")
	return n, nil
}
