package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type orderBalanceReader struct {
	db *gorm.DB
}

// keyed by order id, one balance row per order
func (r *orderBalanceReader) getOrderBalances(ctx context.Context, ids []string) []*dataloader.Result[*models.OrderBalance] {
	var results []models.OrderBalance
	err := r.db.WithContext(ctx).Where("order_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[*models.OrderBalance](len(ids), err)
	}

	resultMap := make(map[string]*models.OrderBalance, len(results))
	for i := range results {
		resultMap[results[i].OrderId] = &results[i]
	}
	loaderResults := make([]*dataloader.Result[*models.OrderBalance], 0, len(ids))
	for _, id := range ids {
		loaderResults = append(loaderResults, &dataloader.Result[*models.OrderBalance]{Data: resultMap[id]})
	}
	return loaderResults
}

func GetOrderBalance(ctx context.Context, orderId string) (*models.OrderBalance, error) {
	loaders := For(ctx)
	return loaders.orderBalanceLoader.Load(ctx, orderId)()
}
