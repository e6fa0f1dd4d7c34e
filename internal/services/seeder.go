// Package services – Seeder
//
// The seeder runs the one-time initialization pass: it creates one region
// per sheet row (id = row position, starting at 1), assigns every region its
// area through an injected identity.AreaStrategy, and back-fills population
// figures from an external district data set.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/domain"
	"github.com/tbourn/go-corona-bot/internal/identity"
	"github.com/tbourn/go-corona-bot/internal/repo"
)

// Seeder creates regions and merges population data.
type Seeder struct {
	DB      *gorm.DB
	Fetcher Fetcher

	// Strategy assigns areas. Nil selects identity.StrategyFor per fetch.
	Strategy identity.AreaStrategy
}

// SeedResult describes one seeding run.
type SeedResult struct {
	Rows     int
	Created  int64
	Strategy string
}

// Seed fetches the sheet and inserts every region that is not stored yet.
// Existing regions keep their id, name and area.
func (s *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	tr := otel.Tracer("services/Seeder")
	ctx, span := tr.Start(ctx, "Seed")
	defer span.End()

	rows, err := s.Fetcher.FetchCurrentPeriod(ctx)
	if err != nil {
		return SeedResult{}, err
	}
	strategy := s.Strategy
	if strategy == nil {
		strategy = identity.StrategyFor(rows.Names, rows.Areas)
	}
	areas, err := strategy.Areas(rows.Names, rows.Areas)
	if err != nil {
		return SeedResult{}, err
	}

	regions := make([]domain.Region, rows.Len())
	for i, name := range rows.Names {
		regions[i] = domain.Region{ID: int64(i + 1), Area: areas[i], Name: name}
	}
	created, err := repo.CreateRegions(ctx, s.DB, regions)
	if err != nil {
		return SeedResult{}, fmt.Errorf("%w: create regions: %v", ErrPersistence, err)
	}

	res := SeedResult{Rows: rows.Len(), Created: created, Strategy: fmt.Sprintf("%T", strategy)}
	span.SetAttributes(attribute.Int("rows", res.Rows), attribute.Int64("created", created))
	log.Info().Int("rows", res.Rows).Int64("created", created).Str("strategy", res.Strategy).Msg("regions seeded")
	return res, nil
}

// populationRecord is one entry of the district data set (kreis.json).
type populationRecord struct {
	Fields struct {
		Gen string  `json:"gen"`
		Bez string  `json:"bez"`
		Ewz float64 `json:"ewz"`
	} `json:"fields"`
}

// ParsePopulation reads the district data set: a JSON array of records
// whose fields carry the name (gen), the district type (bez) and the
// population (ewz).
func ParsePopulation(r io.Reader) ([]identity.Entry, error) {
	var recs []populationRecord
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode population data: %w", err)
	}
	out := make([]identity.Entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, identity.Entry{
			Name:       strings.TrimSpace(rec.Fields.Gen),
			Type:       strings.TrimSpace(rec.Fields.Bez),
			Population: int64(rec.Fields.Ewz),
		})
	}
	return out, nil
}

// MergePopulation resolves every stored region against entries with the
// two-pass matching rule and back-fills its population. The merge is
// all-or-nothing: one unmatched region aborts it before anything is written.
func (s *Seeder) MergePopulation(ctx context.Context, entries []identity.Entry) (int, error) {
	tr := otel.Tracer("services/Seeder")
	ctx, span := tr.Start(ctx, "MergePopulation", trace.WithAttributes(attribute.Int("entries", len(entries))))
	defer span.End()

	regions, err := repo.ListRegions(ctx, s.DB)
	if err != nil {
		return 0, err
	}
	if len(regions) == 0 {
		return 0, ErrNoRegions
	}
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.Name
	}
	m := identity.NewMatcher(entries, identity.AmbiguousBases(names), identity.SkipUnpopulated(), identity.MatchBaseName())

	pops := make([]int64, len(regions))
	var unmatched []string
	for i, r := range regions {
		idx, err := m.Match(r.Name)
		if err != nil {
			unmatched = append(unmatched, r.Name)
			continue
		}
		pops[i] = entries[idx].Population
	}
	if len(unmatched) > 0 {
		return 0, fmt.Errorf("%w: no population entry for %s", ErrIdentityResolution, strings.Join(unmatched, ", "))
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, r := range regions {
			if err := repo.SetPopulation(ctx, tx, r.ID, pops[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: population: %v", ErrPersistence, err)
	}
	log.Info().Int("regions", len(regions)).Msg("population merged")
	return len(regions), nil
}
