package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type checkDetailReader struct {
	db *gorm.DB
}

func (r *checkDetailReader) getCheckDetails(ctx context.Context, ids []string) []*dataloader.Result[[]*models.CheckDetail] {
	var results []models.CheckDetail
	err := r.db.WithContext(ctx).Where("check_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.CheckDetail](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetCheckDetails(ctx context.Context, checkId string) ([]*models.CheckDetail, error) {
	loaders := For(ctx)
	return loaders.checkDetailLoader.Load(ctx, checkId)()
}
