package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/workorder_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

/* DB fetching */

// FetchModel loads T by primary key with optional preloads.
// (may return NotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	return FetchModelTx[T](config.GetDB().WithContext(ctx), id, associations...)
}

// FetchModelTx is FetchModel on an open transaction.
func FetchModelTx[T any](tx *gorm.DB, id int, associations ...string) (*T, error) {
	dbCtx := tx
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	if err := dbCtx.First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// FetchModelForUpdate loads T by id holding a row lock until tx ends.
func FetchModelForUpdate[T any](tx *gorm.DB, id int) (*T, error) {
	var result T
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}
