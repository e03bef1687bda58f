package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type orderSplitRateReader struct {
	db *gorm.DB
}

func (r *orderSplitRateReader) getOrderSplitRates(ctx context.Context, ids []string) []*dataloader.Result[[]*models.OrderSplitRate] {
	var results []models.OrderSplitRate
	err := r.db.WithContext(ctx).Where("order_detail_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.OrderSplitRate](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetOrderSplitRates(ctx context.Context, orderDetailId string) ([]*models.OrderSplitRate, error) {
	loaders := For(ctx)
	return loaders.orderSplitRateLoader.Load(ctx, orderDetailId)()
}
