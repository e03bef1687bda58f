package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type fulfillmentLineItemReader struct {
	db *gorm.DB
}

func (r *fulfillmentLineItemReader) getFulfillmentLineItems(ctx context.Context, ids []string) []*dataloader.Result[[]*models.FulfillmentOrderLineItem] {
	var results []models.FulfillmentOrderLineItem
	err := r.db.WithContext(ctx).Where("fulfillment_order_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.FulfillmentOrderLineItem](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetFulfillmentLineItems(ctx context.Context, fulfillmentOrderId string) ([]*models.FulfillmentOrderLineItem, error) {
	loaders := For(ctx)
	return loaders.fulfillmentLineItemLoader.Load(ctx, fulfillmentOrderId)()
}
