package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Invoice struct {
	OwnedBase
	InvoiceNumber string    `gorm:"size:100;not null;index" json:"invoice_number"`
	OrderId       *string   `gorm:"type:uuid;index" json:"order_id"`
	FactoryId     string    `gorm:"type:uuid;not null;index" json:"factory_id" binding:"required"`
	CustomerId    *string   `gorm:"type:uuid;index" json:"customer_id"`
	InvoiceDate   time.Time `json:"invoice_date"`

	InsideRepPerLineItem  *bool `gorm:"not null;default:false" json:"inside_rep_per_line_item"`
	OutsideRepPerLineItem *bool `gorm:"not null;default:false" json:"outside_rep_per_line_item"`
	EndUserPerLineItem    *bool `gorm:"not null;default:false" json:"end_user_per_line_item"`

	Balance *InvoiceBalance  `json:"balance"`
	Details []*InvoiceDetail `json:"details"`
}

type InvoiceBalance struct {
	Base
	InvoiceId string `gorm:"type:uuid;not null;uniqueIndex" json:"invoice_id"`
	BalanceFields
	PaidBalance decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"paid_balance"`
}

type InvoiceDetail struct {
	Base
	InvoiceId          string           `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductId          *string          `gorm:"type:uuid;index" json:"product_id"`
	EndUserId          *string          `gorm:"type:uuid" json:"end_user_id"`
	Description        string           `gorm:"type:text" json:"description"`
	Quantity           decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"quantity"`
	UnitPrice          decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"unit_price"`
	DivisionFactor     *decimal.Decimal `gorm:"type:decimal(18,6)" json:"division_factor"`
	Subtotal           decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"subtotal"`
	Discount           decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"discount"`
	Total              decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"total"`
	CommissionRate     decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"commission_rate"`
	Commission         decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"commission"`
	CommissionDiscount decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"commission_discount"`
	Position           int              `gorm:"default:0" json:"position"`

	SplitRates []*InvoiceSplitRate `gorm:"foreignKey:InvoiceDetailId" json:"split_rates"`
	InsideReps []*InvoiceInsideRep `gorm:"foreignKey:InvoiceDetailId" json:"inside_reps"`
}

type InvoiceSplitRate struct {
	Base
	InvoiceDetailId string          `gorm:"type:uuid;not null;index" json:"invoice_detail_id"`
	UserId          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	SplitRate       decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"split_rate"`
	Position        int             `gorm:"default:0" json:"position"`
}

type InvoiceInsideRep struct {
	Base
	InvoiceDetailId string          `gorm:"type:uuid;not null;index" json:"invoice_detail_id"`
	UserId          string          `gorm:"type:uuid;not null;index" json:"user_id"`
	SplitRate       decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"split_rate"`
	Position        int             `gorm:"default:0" json:"position"`
}

type NewInvoiceDetail struct {
	ProductId          *string          `json:"product_id"`
	EndUserId          *string          `json:"end_user_id"`
	Description        string           `json:"description"`
	Quantity           decimal.Decimal  `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	DivisionFactor     *decimal.Decimal `json:"division_factor"`
	Discount           decimal.Decimal  `json:"discount"`
	CommissionRate     decimal.Decimal  `json:"commission_rate"`
	CommissionDiscount decimal.Decimal  `json:"commission_discount"`

	SplitRates []*NewSplitRate `json:"split_rates"`
	InsideReps []*NewSplitRate `json:"inside_reps"`
}

type NewInvoice struct {
	InvoiceNumber string    `json:"invoice_number"`
	OrderId       *string   `json:"order_id"`
	FactoryId     string    `json:"factory_id" binding:"required"`
	CustomerId    *string   `json:"customer_id"`
	InvoiceDate   time.Time `json:"invoice_date"`

	InsideRepPerLineItem  *bool `json:"inside_rep_per_line_item"`
	OutsideRepPerLineItem *bool `json:"outside_rep_per_line_item"`
	EndUserPerLineItem    *bool `json:"end_user_per_line_item"`

	Details []*NewInvoiceDetail `json:"details" binding:"required"`
}

type InvoicesEdge Edge[Invoice]
type InvoicesConnection struct {
	Edges    []*InvoicesEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

func (i Invoice) GetCursor() string {
	return i.CreatedAt.Format(time.RFC3339Nano)
}

func (input *NewInvoice) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Invoice](ctx, "Invoice", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Factory](ctx, "Factory", input.FactoryId); err != nil {
		return err
	}
	if input.OrderId != nil {
		if err := utils.ValidateResourceId[Order](ctx, "Order", *input.OrderId); err != nil {
			return err
		}
	}
	if len(input.Details) == 0 {
		return utils.NewValidationError("invoice requires at least one detail")
	}

	var customerIds, productIds, outsideIds, insideIds []string
	if input.CustomerId != nil {
		customerIds = append(customerIds, *input.CustomerId)
	}
	for _, d := range input.Details {
		if err := validateSplitSum(d.SplitRates, "outside"); err != nil {
			return err
		}
		if err := validateSplitSum(d.InsideReps, "inside"); err != nil {
			return err
		}
		if d.ProductId != nil {
			productIds = append(productIds, *d.ProductId)
		}
		if d.EndUserId != nil {
			customerIds = append(customerIds, *d.EndUserId)
		}
		for _, s := range d.SplitRates {
			outsideIds = append(outsideIds, s.UserId)
		}
		for _, s := range d.InsideReps {
			insideIds = append(insideIds, s.UserId)
		}
	}

	return utils.MassValidateResourceIds(ctx, []utils.ValidationRule{
		{Model: &Customer{}, Ids: customerIds, Message: "customer not found"},
		{Model: &Product{}, Ids: productIds, Message: "product not found"},
		{Model: &User{}, Ids: outsideIds, Message: "outside rep not found"},
		{Model: &User{}, Ids: insideIds, Message: "inside rep not found"},
	})
}

func (d *NewInvoiceDetail) buildInvoiceDetail(position int) *InvoiceDetail {
	unitPrice := d.UnitPrice
	if d.DivisionFactor != nil && d.DivisionFactor.IsPositive() {
		unitPrice = unitPrice.Div(*d.DivisionFactor)
	}
	subtotal := utils.RoundAmount(d.Quantity.Mul(unitPrice))
	total := subtotal.Sub(d.Discount)
	commission := utils.RoundAmount(total.Mul(d.CommissionRate).Div(decimal.NewFromInt(100)))

	return &InvoiceDetail{
		ProductId:          d.ProductId,
		EndUserId:          d.EndUserId,
		Description:        d.Description,
		Quantity:           d.Quantity,
		UnitPrice:          d.UnitPrice,
		DivisionFactor:     d.DivisionFactor,
		Subtotal:           subtotal,
		Discount:           d.Discount,
		Total:              total,
		CommissionRate:     d.CommissionRate,
		Commission:         commission,
		CommissionDiscount: d.CommissionDiscount,
		Position:           position,
	}
}

func (d *InvoiceDetail) lineAmounts() LineAmounts {
	return LineAmounts{
		Quantity:           d.Quantity,
		Subtotal:           d.Subtotal,
		Discount:           d.Discount,
		Commission:         d.Commission,
		CommissionDiscount: d.CommissionDiscount,
	}
}

// recomputeInvoiceBalance preserves paid_balance across rebuilds; it is
// owned by check application, not by the detail roll-up.
func recomputeInvoiceBalance(tx *gorm.DB, invoice *Invoice) error {
	lines := make([]LineAmounts, 0, len(invoice.Details))
	for _, d := range invoice.Details {
		lines = append(lines, d.lineAmounts())
	}
	fields := ComputeBalanceFields(lines)

	balance := invoice.Balance
	if balance == nil {
		balance = &InvoiceBalance{InvoiceId: invoice.ID, PaidBalance: decimal.Zero}
	}
	balance.BalanceFields = fields

	if err := tx.Save(balance).Error; err != nil {
		return err
	}
	invoice.Balance = balance
	return nil
}

func createInvoiceDetails(tx *gorm.DB, invoice *Invoice, inputs []*NewInvoiceDetail) error {
	invoice.Details = nil
	for i, in := range inputs {
		detail := in.buildInvoiceDetail(i)
		detail.InvoiceId = invoice.ID
		if err := tx.Create(detail).Error; err != nil {
			return err
		}
		for j, s := range in.SplitRates {
			row := &InvoiceSplitRate{InvoiceDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: j}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			detail.SplitRates = append(detail.SplitRates, row)
		}
		for j, s := range in.InsideReps {
			row := &InvoiceInsideRep{InvoiceDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: j}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			detail.InsideReps = append(detail.InsideReps, row)
		}
		invoice.Details = append(invoice.Details, detail)
	}
	return nil
}

func deleteInvoiceDetails(tx *gorm.DB, invoiceId string) error {
	var detailIds []string
	if err := tx.Model(&InvoiceDetail{}).Where("invoice_id = ?", invoiceId).
		Pluck("id", &detailIds).Error; err != nil {
		return err
	}
	if len(detailIds) > 0 {
		if err := tx.Where("invoice_detail_id IN ?", detailIds).Delete(&InvoiceSplitRate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_detail_id IN ?", detailIds).Delete(&InvoiceInsideRep{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("invoice_id = ?", invoiceId).Delete(&InvoiceDetail{}).Error
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	invoice := Invoice{
		InvoiceNumber:         input.InvoiceNumber,
		OrderId:               input.OrderId,
		FactoryId:             input.FactoryId,
		CustomerId:            input.CustomerId,
		InvoiceDate:           input.InvoiceDate,
		InsideRepPerLineItem:  input.InsideRepPerLineItem,
		OutsideRepPerLineItem: input.OutsideRepPerLineItem,
		EndUserPerLineItem:    input.EndUserPerLineItem,
	}
	invoice.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Omit("Balance", "Details").Create(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createInvoiceDetails(tx, &invoice, input.Details); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recomputeInvoiceBalance(tx, &invoice); err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.OrderId != nil {
		if err := tx.Model(&Order{}).Where("id = ?", *input.OrderId).
			Update("header_status", OrderHeaderStatusInvoiced).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeInvoice, invoice.ID, invoice.InvoiceNumber)
	return &invoice, nil
}

func UpdateInvoice(ctx context.Context, id string, input *NewInvoice) (*Invoice, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	invoice, err := utils.FetchModel[Invoice](ctx, "Invoice", id, "Balance")
	if err != nil {
		return nil, err
	}
	invoice.InvoiceNumber = input.InvoiceNumber
	invoice.OrderId = input.OrderId
	invoice.FactoryId = input.FactoryId
	invoice.CustomerId = input.CustomerId
	invoice.InvoiceDate = input.InvoiceDate
	if input.InsideRepPerLineItem != nil {
		invoice.InsideRepPerLineItem = input.InsideRepPerLineItem
	}
	if input.OutsideRepPerLineItem != nil {
		invoice.OutsideRepPerLineItem = input.OutsideRepPerLineItem
	}
	if input.EndUserPerLineItem != nil {
		invoice.EndUserPerLineItem = input.EndUserPerLineItem
	}

	tx := dbFrom(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&Invoice{}).Where("id = ?", id).Select(
		"invoice_number", "order_id", "factory_id", "customer_id", "invoice_date",
		"inside_rep_per_line_item", "outside_rep_per_line_item", "end_user_per_line_item",
	).Updates(invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := deleteInvoiceDetails(tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createInvoiceDetails(tx, invoice, input.Details); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recomputeInvoiceBalance(tx, invoice); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeInvoice, invoice.ID, invoice.InvoiceNumber)
	return invoice, nil
}

func DeleteInvoice(ctx context.Context, id string) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, "Invoice", id)
	if err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&CheckDetail{}).Where("invoice_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Invoice is tied to a check and cannot be deleted"}
	}

	tx := db.Begin()
	if err := deleteInvoiceDetails(tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("invoice_id = ?", id).Delete(&InvoiceBalance{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Invoice{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeInvoice, invoice.ID, invoice.InvoiceNumber)
	return invoice, nil
}

func GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	invoice, err := utils.FetchModel[Invoice](ctx, "Invoice", id,
		"Balance", "Details", "Details.SplitRates", "Details.InsideReps")
	if err != nil {
		return nil, err
	}
	seesCommission, err := CanSeeCommission(ctx)
	if err != nil {
		return nil, err
	}
	if !seesCommission {
		if invoice.Balance != nil {
			invoice.Balance.Commission = decimal.Zero
			invoice.Balance.CommissionRate = decimal.Zero
		}
		for _, d := range invoice.Details {
			d.Commission = decimal.Zero
			d.CommissionRate = decimal.Zero
		}
	}
	return invoice, nil
}
