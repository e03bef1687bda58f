package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type quoteDetailReader struct {
	db *gorm.DB
}

func (r *quoteDetailReader) getQuoteDetails(ctx context.Context, ids []string) []*dataloader.Result[[]*models.QuoteDetail] {
	var results []models.QuoteDetail
	err := r.db.WithContext(ctx).Where("quote_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.QuoteDetail](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetQuoteDetails(ctx context.Context, quoteId string) ([]*models.QuoteDetail, error) {
	loaders := For(ctx)
	return loaders.quoteDetailLoader.Load(ctx, quoteId)()
}
