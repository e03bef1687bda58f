package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type orderDetailReader struct {
	db *gorm.DB
}

func (r *orderDetailReader) getOrderDetails(ctx context.Context, ids []string) []*dataloader.Result[[]*models.OrderDetail] {
	var results []models.OrderDetail
	err := r.db.WithContext(ctx).Where("order_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.OrderDetail](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetOrderDetails(ctx context.Context, orderId string) ([]*models.OrderDetail, error) {
	loaders := For(ctx)
	return loaders.orderDetailLoader.Load(ctx, orderId)()
}
