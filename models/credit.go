package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Credit is a negative invoice; its balance has no discount column and
// total always equals subtotal.
type Credit struct {
	OwnedBase
	CreditNumber string    `gorm:"size:100;not null;index" json:"credit_number"`
	InvoiceId    *string   `gorm:"type:uuid;index" json:"invoice_id"`
	FactoryId    string    `gorm:"type:uuid;not null;index" json:"factory_id" binding:"required"`
	CustomerId   *string   `gorm:"type:uuid;index" json:"customer_id"`
	CreditDate   time.Time `json:"credit_date"`

	OutsideRepPerLineItem *bool `gorm:"not null;default:false" json:"outside_rep_per_line_item"`

	Balance *CreditBalance  `json:"balance"`
	Details []*CreditDetail `json:"details"`
}

type CreditBalance struct {
	Base
	CreditId       string          `gorm:"type:uuid;not null;uniqueIndex" json:"credit_id"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"quantity"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"subtotal"`
	Total          decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"total"`
	Commission     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"commission"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"commission_rate"`
}

type CreditDetail struct {
	Base
	CreditId       string          `gorm:"type:uuid;not null;index" json:"credit_id"`
	ProductId      *string         `gorm:"type:uuid;index" json:"product_id"`
	Description    string          `gorm:"type:text" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"unit_price"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"subtotal"`
	Total          decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"total"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"commission_rate"`
	Commission     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"commission"`
	Position       int             `gorm:"default:0" json:"position"`

	SplitRates []*CreditSplitRate `gorm:"foreignKey:CreditDetailId" json:"split_rates"`
}

type CreditSplitRate struct {
	Base
	CreditDetailId string          `gorm:"type:uuid;not null;index" json:"credit_detail_id"`
	UserId         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	SplitRate      decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"split_rate"`
	Position       int             `gorm:"default:0" json:"position"`
}

type NewCreditDetail struct {
	ProductId      *string         `json:"product_id"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	CommissionRate decimal.Decimal `json:"commission_rate"`

	SplitRates []*NewSplitRate `json:"split_rates"`
}

type NewCredit struct {
	CreditNumber string    `json:"credit_number"`
	InvoiceId    *string   `json:"invoice_id"`
	FactoryId    string    `json:"factory_id" binding:"required"`
	CustomerId   *string   `json:"customer_id"`
	CreditDate   time.Time `json:"credit_date"`

	OutsideRepPerLineItem *bool `json:"outside_rep_per_line_item"`

	Details []*NewCreditDetail `json:"details" binding:"required"`
}

func (input *NewCredit) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Credit](ctx, "Credit", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Factory](ctx, "Factory", input.FactoryId); err != nil {
		return err
	}
	if input.InvoiceId != nil {
		if err := utils.ValidateResourceId[Invoice](ctx, "Invoice", *input.InvoiceId); err != nil {
			return err
		}
	}
	if len(input.Details) == 0 {
		return utils.NewValidationError("credit requires at least one detail")
	}

	var customerIds, productIds, outsideIds []string
	if input.CustomerId != nil {
		customerIds = append(customerIds, *input.CustomerId)
	}
	for _, d := range input.Details {
		if err := validateSplitSum(d.SplitRates, "outside"); err != nil {
			return err
		}
		if d.ProductId != nil {
			productIds = append(productIds, *d.ProductId)
		}
		for _, s := range d.SplitRates {
			outsideIds = append(outsideIds, s.UserId)
		}
	}

	return utils.MassValidateResourceIds(ctx, []utils.ValidationRule{
		{Model: &Customer{}, Ids: customerIds, Message: "customer not found"},
		{Model: &Product{}, Ids: productIds, Message: "product not found"},
		{Model: &User{}, Ids: outsideIds, Message: "outside rep not found"},
	})
}

func (d *NewCreditDetail) buildCreditDetail(position int) *CreditDetail {
	subtotal := utils.RoundAmount(d.Quantity.Mul(d.UnitPrice))
	commission := utils.RoundAmount(subtotal.Mul(d.CommissionRate).Div(decimal.NewFromInt(100)))

	return &CreditDetail{
		ProductId:      d.ProductId,
		Description:    d.Description,
		Quantity:       d.Quantity,
		UnitPrice:      d.UnitPrice,
		Subtotal:       subtotal,
		Total:          subtotal,
		CommissionRate: d.CommissionRate,
		Commission:     commission,
		Position:       position,
	}
}

func recomputeCreditBalance(tx *gorm.DB, credit *Credit) error {
	lines := make([]LineAmounts, 0, len(credit.Details))
	for _, d := range credit.Details {
		lines = append(lines, LineAmounts{
			Quantity:   d.Quantity,
			Subtotal:   d.Subtotal,
			Commission: d.Commission,
		})
	}
	fields := ComputeCreditBalanceFields(lines)

	balance := credit.Balance
	if balance == nil {
		balance = &CreditBalance{CreditId: credit.ID}
	}
	balance.Quantity = fields.Quantity
	balance.Subtotal = fields.Subtotal
	balance.Total = fields.Total
	balance.Commission = fields.Commission
	balance.CommissionRate = fields.CommissionRate

	if err := tx.Save(balance).Error; err != nil {
		return err
	}
	credit.Balance = balance
	return nil
}

func createCreditDetails(tx *gorm.DB, credit *Credit, inputs []*NewCreditDetail) error {
	credit.Details = nil
	for i, in := range inputs {
		detail := in.buildCreditDetail(i)
		detail.CreditId = credit.ID
		if err := tx.Create(detail).Error; err != nil {
			return err
		}
		for j, s := range in.SplitRates {
			row := &CreditSplitRate{CreditDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: j}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			detail.SplitRates = append(detail.SplitRates, row)
		}
		credit.Details = append(credit.Details, detail)
	}
	return nil
}

func deleteCreditDetails(tx *gorm.DB, creditId string) error {
	var detailIds []string
	if err := tx.Model(&CreditDetail{}).Where("credit_id = ?", creditId).
		Pluck("id", &detailIds).Error; err != nil {
		return err
	}
	if len(detailIds) > 0 {
		if err := tx.Where("credit_detail_id IN ?", detailIds).Delete(&CreditSplitRate{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("credit_id = ?", creditId).Delete(&CreditDetail{}).Error
}

func CreateCredit(ctx context.Context, input *NewCredit) (*Credit, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	credit := Credit{
		CreditNumber:          input.CreditNumber,
		InvoiceId:             input.InvoiceId,
		FactoryId:             input.FactoryId,
		CustomerId:            input.CustomerId,
		CreditDate:            input.CreditDate,
		OutsideRepPerLineItem: input.OutsideRepPerLineItem,
	}
	credit.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Omit("Balance", "Details").Create(&credit).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createCreditDetails(tx, &credit, input.Details); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recomputeCreditBalance(tx, &credit); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeCredit, credit.ID, credit.CreditNumber)
	return &credit, nil
}

func UpdateCredit(ctx context.Context, id string, input *NewCredit) (*Credit, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	credit, err := utils.FetchModel[Credit](ctx, "Credit", id, "Balance")
	if err != nil {
		return nil, err
	}
	credit.CreditNumber = input.CreditNumber
	credit.InvoiceId = input.InvoiceId
	credit.FactoryId = input.FactoryId
	credit.CustomerId = input.CustomerId
	credit.CreditDate = input.CreditDate
	if input.OutsideRepPerLineItem != nil {
		credit.OutsideRepPerLineItem = input.OutsideRepPerLineItem
	}

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&Credit{}).Where("id = ?", id).Select(
		"credit_number", "invoice_id", "factory_id", "customer_id", "credit_date",
		"outside_rep_per_line_item",
	).Updates(credit).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := deleteCreditDetails(tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createCreditDetails(tx, credit, input.Details); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recomputeCreditBalance(tx, credit); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeCredit, credit.ID, credit.CreditNumber)
	return credit, nil
}

func DeleteCredit(ctx context.Context, id string) (*Credit, error) {
	credit, err := utils.FetchModel[Credit](ctx, "Credit", id)
	if err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&CheckDetail{}).Where("credit_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Credit is tied to a check and cannot be deleted"}
	}

	tx := db.Begin()
	if err := deleteCreditDetails(tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("credit_id = ?", id).Delete(&CreditBalance{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Credit{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeCredit, credit.ID, credit.CreditNumber)
	return credit, nil
}

func GetCredit(ctx context.Context, id string) (*Credit, error) {
	return utils.FetchModel[Credit](ctx, "Credit", id,
		"Balance", "Details", "Details.SplitRates")
}
