package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/huastex/huastex_backend/models"
	"gorm.io/gorm"
)

type formulaReader struct {
	db *gorm.DB
}

func (r *formulaReader) getFormulas(ctx context.Context, ids []int) []*dataloader.Result[*models.Formula] {
	var results []*models.Formula
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Formula](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(f *models.Formula) int { return f.ID })
}

func GetFormulas(ctx context.Context, ids []int) ([]*models.Formula, []error) {
	loaders := For(ctx)
	return loaders.formulaLoader.LoadMany(ctx, ids)()
}
