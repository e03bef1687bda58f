package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type factoryReader struct {
	db *gorm.DB
}

func (r *factoryReader) getFactories(ctx context.Context, ids []string) []*dataloader.Result[*models.Factory] {
	var results []models.Factory
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Factory](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetFactory(ctx context.Context, id string) (*models.Factory, error) {
	loaders := For(ctx)
	return loaders.factoryLoader.Load(ctx, id)()
}
