package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertBatch keeps a single statement well below SQLite's bind limit.
const upsertBatch = 100

// ErrNoSchema is returned by PrimaryKeys for a model gorm cannot parse.
var ErrNoSchema = errors.New("model has no schema")

// Upsert inserts rows or, when a row with the same primary key exists,
// overwrites every non-key column. All rows are written in one transaction:
// either the whole batch lands or nothing does.
func Upsert[T any](ctx context.Context, db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.
			Omit(clause.Associations).
			Clauses(clause.OnConflict{UpdateAll: true}).
			CreateInBatches(rows, upsertBatch).Error
	})
}

// Query runs a raw read and scans the result into dest. Ordering of the
// result follows the ORDER BY of the statement.
func Query(ctx context.Context, db *gorm.DB, dest any, sql string, args ...any) error {
	return db.WithContext(ctx).Raw(sql, args...).Scan(dest).Error
}

// PrimaryKeys returns the primary key column names of model in declaration
// order.
func PrimaryKeys(db *gorm.DB, model any) ([]string, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSchema, err)
	}
	if stmt.Schema == nil {
		return nil, ErrNoSchema
	}
	out := make([]string, 0, len(stmt.Schema.PrimaryFields))
	for _, f := range stmt.Schema.PrimaryFields {
		out = append(out, f.DBName)
	}
	return out, nil
}
