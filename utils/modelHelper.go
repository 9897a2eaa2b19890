package utils

import (
	"context"
	"errors"

	"github.com/huastex/huastex_backend/config"
	"gorm.io/gorm"
)

// fetch model from db
// (may return RecordNotFound)
func FetchSingleModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	dbCtx := config.GetDB().WithContext(ctx)
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

// ValidateResourceId returns ErrorRecordNotFound when no row of T has the id.
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	var model T
	var count int64
	if err := config.GetDB().WithContext(ctx).Model(&model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}
