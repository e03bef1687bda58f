package middlewares

import (
	"context"

	"github.com/flowplatform/flow_backend/models"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type invoiceDetailReader struct {
	db *gorm.DB
}

func (r *invoiceDetailReader) getInvoiceDetails(ctx context.Context, ids []string) []*dataloader.Result[[]*models.InvoiceDetail] {
	var results []models.InvoiceDetail
	err := r.db.WithContext(ctx).Where("invoice_id IN ?", ids).Find(&results).Error
	if err != nil {
		return handleError[[]*models.InvoiceDetail](len(ids), err)
	}
	return generateLoaderArrayResults(results, ids)
}

func GetInvoiceDetails(ctx context.Context, invoiceId string) ([]*models.InvoiceDetail, error) {
	loaders := For(ctx)
	return loaders.invoiceDetailLoader.Load(ctx, invoiceId)()
}
