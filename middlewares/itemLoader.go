package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/workorder_backend/models"
	"gorm.io/gorm"
)

type itemReader struct {
	db *gorm.DB
}

func (r *itemReader) getItems(ctx context.Context, ids []int) []*dataloader.Result[*models.Item] {
	var results []models.Item
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Item](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetItem(ctx context.Context, id int) (*models.Item, error) {
	loaders := For(ctx)
	return loaders.itemLoader.Load(ctx, id)()
}

func GetItems(ctx context.Context, ids []int) ([]*models.Item, []error) {
	loaders := For(ctx)
	return loaders.itemLoader.LoadMany(ctx, ids)()
}
