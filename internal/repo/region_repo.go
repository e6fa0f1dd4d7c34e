// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Region
// model (table kreise).
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-corona-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListRegions returns every region ordered by id, i.e. sheet row order.
func ListRegions(ctx context.Context, db *gorm.DB) ([]domain.Region, error) {
	var out []domain.Region
	err := db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// ListAreas returns the distinct area names ordered alphabetically.
func ListAreas(ctx context.Context, db *gorm.DB) ([]string, error) {
	var out []string
	err := db.WithContext(ctx).
		Model(&domain.Region{}).
		Distinct("bundesland").
		Order("bundesland ASC").
		Pluck("bundesland", &out).Error
	return out, err
}

// GetRegion fetches one region by id or returns ErrNotFound.
func GetRegion(ctx context.Context, db *gorm.DB, id int64) (*domain.Region, error) {
	var r domain.Region
	if err := db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRegionByName fetches one region by its canonical name or returns
// ErrNotFound.
func GetRegionByName(ctx context.Context, db *gorm.DB, name string) (*domain.Region, error) {
	var r domain.Region
	if err := db.WithContext(ctx).First(&r, "kreis = ?", name).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// CountRegions returns the number of stored regions.
func CountRegions(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Region{}).Count(&n).Error
	return n, err
}

// CreateRegions inserts regions that do not exist yet. Existing ids are left
// untouched so identifiers and names stay fixed after the first seed.
func CreateRegions(ctx context.Context, db *gorm.DB, regions []domain.Region) (int64, error) {
	if len(regions) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Clauses(onConflictDoNothing()).
		CreateInBatches(regions, upsertBatch)
	return res.RowsAffected, res.Error
}

// SetPopulation back-fills the population of one region.
func SetPopulation(ctx context.Context, db *gorm.DB, id, population int64) error {
	res := db.WithContext(ctx).
		Model(&domain.Region{}).
		Where("id = ?", id).
		Update("population", population)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsNotFound reports whether err means "no such row".
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
