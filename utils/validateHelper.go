package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/workorder_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct runs `validate:"..."` tags and folds failures into one ValidationError.
func ValidateStruct(input interface{}) error {
	err := getValidator().Struct(input)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationError("%s", err.Error())
	}
	fields := ProcessValidationErrors(validationErrors)
	parts := make([]string, 0, len(fields))
	for _, fe := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fields[fe.Field()]))
	}
	return NewValidationError("invalid input (%s)", strings.Join(parts, ", "))
}

func ProcessValidationErrors(validationErrors validator.ValidationErrors) map[string]string {
	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// RequirePositive rejects zero/negative quantities; the validator cannot compare decimals.
func RequirePositive(field string, value decimal.Decimal) error {
	if !value.IsPositive() {
		return NewValidationError("%s must be greater than zero, got %s", field, value.String())
	}
	return nil
}

// ValidateResourceId returns NotFound naming the resource when no row with id exists.
func ValidateResourceId[T any](ctx context.Context, db *gorm.DB, resource string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, db, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return NewNotFound("%s %v not found", resource, id)
	}
	return nil
}

// ValidateResourcesId checks that ALL ids exist.
func ValidateResourcesId[M any, ID comparable](ctx context.Context, db *gorm.DB, resource string, ids []ID) error {
	unqIds := UniqueSlice(ids)
	if len(unqIds) == 0 {
		return nil
	}
	count, err := ResourceCountWhere[M](ctx, db, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return NewNotFound("one or more %s not found", resource)
	}
	return nil
}

// ValidateUnique fails with Conflict when column already holds value on another row.
func ValidateUnique[T any](ctx context.Context, db *gorm.DB, column string, value interface{}) error {
	count, err := ResourceCountWhere[T](ctx, db, column+" = ?", value)
	if err != nil {
		return err
	}
	if count > 0 {
		return NewConflict("duplicate %s %v", column, value)
	}
	return nil
}

// count records, using WHERE $condition; db defaults to the global connection
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, condition string, value ...interface{}) (int64, error) {
	var model T
	if db == nil {
		db = config.GetDB()
	}
	var count int64
	if err := db.WithContext(ctx).Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
