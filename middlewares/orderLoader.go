package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type orderReader struct {
	db *gorm.DB
}

func (r *orderReader) getOrders(ctx context.Context, ids []string) []*dataloader.Result[*models.Order] {
	var results []models.Order
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.Order](len(ids), err)
	}
	return generateLoaderResults(results, ids)
}

func GetOrder(ctx context.Context, id string) (*models.Order, error) {
	loaders := For(ctx)
	return loaders.orderLoader.Load(ctx, id)()
}
