package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type creditDetailReader struct {
	db *gorm.DB
}

func (r *creditDetailReader) getCreditDetails(ctx context.Context, ids []string) []*dataloader.Result[[]*models.CreditDetail] {
	var results []models.CreditDetail
	err := r.db.WithContext(ctx).Where("credit_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.CreditDetail](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetCreditDetails(ctx context.Context, creditId string) ([]*models.CreditDetail, error) {
	loaders := For(ctx)
	return loaders.creditDetailLoader.Load(ctx, creditId)()
}
