package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type invoiceSplitRateReader struct {
	db *gorm.DB
}

func (r *invoiceSplitRateReader) getInvoiceSplitRates(ctx context.Context, ids []string) []*dataloader.Result[[]*models.InvoiceSplitRate] {
	var results []models.InvoiceSplitRate
	err := r.db.WithContext(ctx).Where("invoice_detail_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.InvoiceSplitRate](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetInvoiceSplitRates(ctx context.Context, invoiceDetailId string) ([]*models.InvoiceSplitRate, error) {
	loaders := For(ctx)
	return loaders.invoiceSplitRateLoader.Load(ctx, invoiceDetailId)()
}
