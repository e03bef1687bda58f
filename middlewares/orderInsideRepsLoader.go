package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type orderInsideRepReader struct {
	db *gorm.DB
}

func (r *orderInsideRepReader) getOrderInsideReps(ctx context.Context, ids []string) []*dataloader.Result[[]*models.OrderInsideRep] {
	var results []models.OrderInsideRep
	err := r.db.WithContext(ctx).Where("order_detail_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.OrderInsideRep](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetOrderInsideReps(ctx context.Context, orderDetailId string) ([]*models.OrderInsideRep, error) {
	loaders := For(ctx)
	return loaders.orderInsideRepLoader.Load(ctx, orderDetailId)()
}
