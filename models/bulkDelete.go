package models

import (
	"context"
	"fmt"

	"github.com/flowplatform/flow_backend/utils"
	"gorm.io/gorm"
)

type BulkDeleteFailure struct {
	Id    string `json:"id"`
	Error string `json:"error"`
}

type BulkDeleteResult struct {
	DeletedCount int                  `json:"deleted_count"`
	Failures     []*BulkDeleteFailure `json:"failures"`
}

// BulkDeleteStrategy deletes one entity inside the caller's transaction.
// Guard checks run before the delete so business rules surface as domain
// errors instead of constraint violations.
type BulkDeleteStrategy interface {
	EntityType() EntityType
	DeleteOne(tx *gorm.DB, ctx context.Context, id string) error
}

var bulkDeleteStrategies = map[EntityType]BulkDeleteStrategy{
	EntityTypeOrder:      orderBulkDelete{},
	EntityTypeQuote:      quoteBulkDelete{},
	EntityTypeInvoice:    invoiceBulkDelete{},
	EntityTypeCredit:     creditBulkDelete{},
	EntityTypeAdjustment: adjustmentBulkDelete{},
}

// BulkDelete deletes each id inside its own savepoint; one failure never
// aborts the rest of the batch.
func BulkDelete(ctx context.Context, entityType EntityType, ids []string) (*BulkDeleteResult, error) {
	strategy, ok := bulkDeleteStrategies[entityType]
	if !ok {
		return nil, utils.NewValidationError("bulk delete is not supported for %s", entityType)
	}

	result := &BulkDeleteResult{Failures: []*BulkDeleteFailure{}}
	tx := dbFrom(ctx).Begin()
	for i, id := range ids {
		savepoint := fmt.Sprintf("bulk_delete_%d", i)
		if err := tx.SavePoint(savepoint).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := strategy.DeleteOne(tx, ctx, id); err != nil {
			if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
				tx.Rollback()
				return nil, rbErr
			}
			result.Failures = append(result.Failures, &BulkDeleteFailure{Id: id, Error: err.Error()})
			continue
		}
		result.DeletedCount++
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

type orderBulkDelete struct{}

func (orderBulkDelete) EntityType() EntityType { return EntityTypeOrder }

func (orderBulkDelete) DeleteOne(tx *gorm.DB, ctx context.Context, id string) error {
	var order Order
	if err := tx.First(&order, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &utils.NotFoundError{Entity: "Order", Id: id}
		}
		return err
	}
	var invoiceCount int64
	if err := tx.Model(&Invoice{}).Where("order_id = ?", id).Count(&invoiceCount).Error; err != nil {
		return err
	}
	if invoiceCount > 0 {
		return &utils.DeletionError{Message: "Order has invoices and cannot be deleted"}
	}
	if err := deleteOrderDetails(tx, id); err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", id).Delete(&OrderBalance{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&order).Error; err != nil {
		return err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeOrder, order.ID, order.OrderNumber)
	return nil
}

type quoteBulkDelete struct{}

func (quoteBulkDelete) EntityType() EntityType { return EntityTypeQuote }

func (quoteBulkDelete) DeleteOne(tx *gorm.DB, ctx context.Context, id string) error {
	var quote Quote
	if err := tx.First(&quote, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &utils.NotFoundError{Entity: "Quote", Id: id}
		}
		return err
	}
	if err := deleteQuoteDetails(tx, id); err != nil {
		return err
	}
	if err := tx.Delete(&quote).Error; err != nil {
		return err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeQuote, quote.ID, quote.QuoteNumber)
	return nil
}

type invoiceBulkDelete struct{}

func (invoiceBulkDelete) EntityType() EntityType { return EntityTypeInvoice }

func (invoiceBulkDelete) DeleteOne(tx *gorm.DB, ctx context.Context, id string) error {
	var invoice Invoice
	if err := tx.First(&invoice, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &utils.NotFoundError{Entity: "Invoice", Id: id}
		}
		return err
	}
	var checkCount int64
	if err := tx.Model(&CheckDetail{}).Where("invoice_id = ?", id).Count(&checkCount).Error; err != nil {
		return err
	}
	if checkCount > 0 {
		return &utils.DeletionError{Message: "Invoice is tied to a check and cannot be deleted"}
	}
	if err := deleteInvoiceDetails(tx, id); err != nil {
		return err
	}
	if err := tx.Where("invoice_id = ?", id).Delete(&InvoiceBalance{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&invoice).Error; err != nil {
		return err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeInvoice, invoice.ID, invoice.InvoiceNumber)
	return nil
}

type creditBulkDelete struct{}

func (creditBulkDelete) EntityType() EntityType { return EntityTypeCredit }

func (creditBulkDelete) DeleteOne(tx *gorm.DB, ctx context.Context, id string) error {
	var credit Credit
	if err := tx.First(&credit, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &utils.NotFoundError{Entity: "Credit", Id: id}
		}
		return err
	}
	var checkCount int64
	if err := tx.Model(&CheckDetail{}).Where("credit_id = ?", id).Count(&checkCount).Error; err != nil {
		return err
	}
	if checkCount > 0 {
		return &utils.DeletionError{Message: "Credit is tied to a check and cannot be deleted"}
	}
	if err := deleteCreditDetails(tx, id); err != nil {
		return err
	}
	if err := tx.Where("credit_id = ?", id).Delete(&CreditBalance{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&credit).Error; err != nil {
		return err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeCredit, credit.ID, credit.CreditNumber)
	return nil
}

type adjustmentBulkDelete struct{}

func (adjustmentBulkDelete) EntityType() EntityType { return EntityTypeAdjustment }

func (adjustmentBulkDelete) DeleteOne(tx *gorm.DB, ctx context.Context, id string) error {
	var adjustment Adjustment
	if err := tx.First(&adjustment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &utils.NotFoundError{Entity: "Adjustment", Id: id}
		}
		return err
	}
	var checkCount int64
	if err := tx.Model(&CheckDetail{}).Where("adjustment_id = ?", id).Count(&checkCount).Error; err != nil {
		return err
	}
	if checkCount > 0 {
		return &utils.DeletionError{Message: "Adjustment is tied to a check and cannot be deleted"}
	}
	if err := tx.Where("adjustment_id = ?", id).Delete(&AdjustmentSplitRate{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&adjustment).Error; err != nil {
		return err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeAdjustment, adjustment.ID, adjustment.AdjustmentNumber)
	return nil
}
