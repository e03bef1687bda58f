package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type customerOwnerReader struct {
	db *gorm.DB
}

func (r *customerOwnerReader) getCustomerOwners(ctx context.Context, ids []string) []*dataloader.Result[[]*models.CustomerOwner] {
	var results []models.CustomerOwner
	err := r.db.WithContext(ctx).Where("customer_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.CustomerOwner](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetCustomerOwners(ctx context.Context, customerId string) ([]*models.CustomerOwner, error) {
	loaders := For(ctx)
	return loaders.customerOwnerLoader.Load(ctx, customerId)()
}
