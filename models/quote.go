package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Quote struct {
	OwnedBase
	QuoteNumber string     `gorm:"size:100;not null;index" json:"quote_number"`
	CustomerId  *string    `gorm:"type:uuid;index" json:"customer_id"`
	EndUserId   *string    `gorm:"type:uuid" json:"end_user_id"`
	QuoteDate   time.Time  `json:"quote_date"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Notes       string     `gorm:"type:text" json:"notes"`

	InsideRepPerLineItem  *bool `gorm:"not null;default:false" json:"inside_rep_per_line_item"`
	OutsideRepPerLineItem *bool `gorm:"not null;default:false" json:"outside_rep_per_line_item"`
	EndUserPerLineItem    *bool `gorm:"not null;default:false" json:"end_user_per_line_item"`

	Details []*QuoteDetail `json:"details"`
}

// QuoteDetail lines may point at different factories; conversion to an
// order requires the selected lines to agree on one.
type QuoteDetail struct {
	Base
	QuoteId        string           `gorm:"type:uuid;not null;index" json:"quote_id"`
	FactoryId      string           `gorm:"type:uuid;not null;index" json:"factory_id"`
	ProductId      *string          `gorm:"type:uuid;index" json:"product_id"`
	EndUserId      *string          `gorm:"type:uuid" json:"end_user_id"`
	Description    string           `gorm:"type:text" json:"description"`
	Quantity       decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"quantity"`
	UnitPrice      decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"unit_price"`
	DivisionFactor *decimal.Decimal `gorm:"type:decimal(18,6)" json:"division_factor"`
	Discount       decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"discount"`
	CommissionRate decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"commission_rate"`
	Position       int              `gorm:"default:0" json:"position"`

	SplitRates []*QuoteSplitRate `gorm:"foreignKey:QuoteDetailId" json:"split_rates"`
	InsideReps []*QuoteInsideRep `gorm:"foreignKey:QuoteDetailId" json:"inside_reps"`
}

type QuoteSplitRate struct {
	Base
	QuoteDetailId string          `gorm:"type:uuid;not null;index" json:"quote_detail_id"`
	UserId        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	SplitRate     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"split_rate"`
	Position      int             `gorm:"default:0" json:"position"`
}

type QuoteInsideRep struct {
	Base
	QuoteDetailId string          `gorm:"type:uuid;not null;index" json:"quote_detail_id"`
	UserId        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	SplitRate     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"split_rate"`
	Position      int             `gorm:"default:0" json:"position"`
}

type NewQuoteDetail struct {
	FactoryId      string           `json:"factory_id" binding:"required"`
	ProductId      *string          `json:"product_id"`
	EndUserId      *string          `json:"end_user_id"`
	Description    string           `json:"description"`
	Quantity       decimal.Decimal  `json:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	DivisionFactor *decimal.Decimal `json:"division_factor"`
	Discount       decimal.Decimal  `json:"discount"`
	CommissionRate decimal.Decimal  `json:"commission_rate"`

	SplitRates []*NewSplitRate `json:"split_rates"`
	InsideReps []*NewSplitRate `json:"inside_reps"`
}

type NewQuote struct {
	QuoteNumber string     `json:"quote_number"`
	CustomerId  *string    `json:"customer_id"`
	EndUserId   *string    `json:"end_user_id"`
	QuoteDate   time.Time  `json:"quote_date"`
	ExpiresAt   *time.Time `json:"expires_at"`
	Notes       string     `json:"notes"`

	InsideRepPerLineItem  *bool `json:"inside_rep_per_line_item"`
	OutsideRepPerLineItem *bool `json:"outside_rep_per_line_item"`
	EndUserPerLineItem    *bool `json:"end_user_per_line_item"`

	Details []*NewQuoteDetail `json:"details" binding:"required"`
}

type QuotesEdge Edge[Quote]
type QuotesConnection struct {
	Edges    []*QuotesEdge `json:"edges"`
	PageInfo *PageInfo     `json:"pageInfo"`
}

func (q Quote) GetCursor() string {
	return q.CreatedAt.Format(time.RFC3339Nano)
}

func (input *NewQuote) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Quote](ctx, "Quote", id); err != nil {
			return err
		}
	}
	if len(input.Details) == 0 {
		return utils.NewValidationError("quote requires at least one detail")
	}

	var factoryIds, customerIds, productIds, outsideIds, insideIds []string
	if input.CustomerId != nil {
		customerIds = append(customerIds, *input.CustomerId)
	}
	if input.EndUserId != nil {
		customerIds = append(customerIds, *input.EndUserId)
	}
	for _, d := range input.Details {
		if err := validateSplitSum(d.SplitRates, "outside"); err != nil {
			return err
		}
		if err := validateSplitSum(d.InsideReps, "inside"); err != nil {
			return err
		}
		factoryIds = append(factoryIds, d.FactoryId)
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
		{Model: &Factory{}, Ids: factoryIds, Message: "factory not found"},
		{Model: &Customer{}, Ids: customerIds, Message: "customer not found"},
		{Model: &Product{}, Ids: productIds, Message: "product not found"},
		{Model: &User{}, Ids: outsideIds, Message: "outside rep not found"},
		{Model: &User{}, Ids: insideIds, Message: "inside rep not found"},
	})
}

func createQuoteDetails(tx *gorm.DB, quote *Quote, inputs []*NewQuoteDetail) error {
	quote.Details = nil
	for i, in := range inputs {
		detail := &QuoteDetail{
			QuoteId:        quote.ID,
			FactoryId:      in.FactoryId,
			ProductId:      in.ProductId,
			EndUserId:      in.EndUserId,
			Description:    in.Description,
			Quantity:       in.Quantity,
			UnitPrice:      in.UnitPrice,
			DivisionFactor: in.DivisionFactor,
			Discount:       in.Discount,
			CommissionRate: in.CommissionRate,
			Position:       i,
		}
		if err := tx.Create(detail).Error; err != nil {
			return err
		}
		for j, s := range in.SplitRates {
			row := &QuoteSplitRate{QuoteDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: j}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			detail.SplitRates = append(detail.SplitRates, row)
		}
		for j, s := range in.InsideReps {
			row := &QuoteInsideRep{QuoteDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: j}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			detail.InsideReps = append(detail.InsideReps, row)
		}
		quote.Details = append(quote.Details, detail)
	}
	return nil
}

func deleteQuoteDetails(tx *gorm.DB, quoteId string) error {
	var detailIds []string
	if err := tx.Model(&QuoteDetail{}).Where("quote_id = ?", quoteId).
		Pluck("id", &detailIds).Error; err != nil {
		return err
	}
	if len(detailIds) > 0 {
		if err := tx.Where("quote_detail_id IN ?", detailIds).Delete(&QuoteSplitRate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("quote_detail_id IN ?", detailIds).Delete(&QuoteInsideRep{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("quote_id = ?", quoteId).Delete(&QuoteDetail{}).Error
}

func CreateQuote(ctx context.Context, input *NewQuote) (*Quote, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	quote := Quote{
		QuoteNumber:           input.QuoteNumber,
		CustomerId:            input.CustomerId,
		EndUserId:             input.EndUserId,
		QuoteDate:             input.QuoteDate,
		ExpiresAt:             input.ExpiresAt,
		Notes:                 input.Notes,
		InsideRepPerLineItem:  input.InsideRepPerLineItem,
		OutsideRepPerLineItem: input.OutsideRepPerLineItem,
		EndUserPerLineItem:    input.EndUserPerLineItem,
	}
	quote.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Omit("Details").Create(&quote).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createQuoteDetails(tx, &quote, input.Details); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeQuote, quote.ID, quote.QuoteNumber)
	return &quote, nil
}

func UpdateQuote(ctx context.Context, id string, input *NewQuote) (*Quote, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	quote, err := utils.FetchModel[Quote](ctx, "Quote", id)
	if err != nil {
		return nil, err
	}
	quote.QuoteNumber = input.QuoteNumber
	quote.CustomerId = input.CustomerId
	quote.EndUserId = input.EndUserId
	quote.QuoteDate = input.QuoteDate
	quote.ExpiresAt = input.ExpiresAt
	quote.Notes = input.Notes
	if input.InsideRepPerLineItem != nil {
		quote.InsideRepPerLineItem = input.InsideRepPerLineItem
	}
	if input.OutsideRepPerLineItem != nil {
		quote.OutsideRepPerLineItem = input.OutsideRepPerLineItem
	}
	if input.EndUserPerLineItem != nil {
		quote.EndUserPerLineItem = input.EndUserPerLineItem
	}

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&Quote{}).Where("id = ?", id).Select(
		"quote_number", "customer_id", "end_user_id", "quote_date", "expires_at", "notes",
		"inside_rep_per_line_item", "outside_rep_per_line_item", "end_user_per_line_item",
	).Updates(quote).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := deleteQuoteDetails(tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createQuoteDetails(tx, quote, input.Details); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeQuote, quote.ID, quote.QuoteNumber)
	return quote, nil
}

func DeleteQuote(ctx context.Context, id string) (*Quote, error) {
	quote, err := utils.FetchModel[Quote](ctx, "Quote", id)
	if err != nil {
		return nil, err
	}

	tx := dbFrom(ctx).Begin()
	if err := deleteQuoteDetails(tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Quote{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeQuote, quote.ID, quote.QuoteNumber)
	return quote, nil
}

func GetQuote(ctx context.Context, id string) (*Quote, error) {
	return utils.FetchModel[Quote](ctx, "Quote", id,
		"Details", "Details.SplitRates", "Details.InsideReps")
}

// ConvertQuoteToOrder turns the selected quote details into a new order.
// Every selected line must belong to the same factory; splits are copied
// verbatim.
func ConvertQuoteToOrder(ctx context.Context, quoteId string, detailIds []string) (*Order, error) {
	quote, err := GetQuote(ctx, quoteId)
	if err != nil {
		return nil, err
	}

	selected := make([]*QuoteDetail, 0, len(detailIds))
	byId := make(map[string]*QuoteDetail, len(quote.Details))
	for _, d := range quote.Details {
		byId[d.ID] = d
	}
	for _, id := range detailIds {
		d, ok := byId[id]
		if !ok {
			return nil, &utils.NotFoundError{Entity: "QuoteDetail", Id: id}
		}
		selected = append(selected, d)
	}
	if len(selected) == 0 {
		return nil, utils.NewValidationError("no quote details selected")
	}

	factoryId := selected[0].FactoryId
	for _, d := range selected {
		if d.FactoryId != factoryId {
			return nil, utils.NewValidationError("different manufacturers")
		}
	}

	order := Order{
		OrderNumber:           quote.QuoteNumber,
		FactoryId:             factoryId,
		SoldToId:              quote.CustomerId,
		EndUserId:             quote.EndUserId,
		OrderDate:             time.Now().UTC(),
		Status:                OrderStatusOpen,
		HeaderStatus:          OrderHeaderStatusNone,
		InsideRepPerLineItem:  quote.InsideRepPerLineItem,
		OutsideRepPerLineItem: quote.OutsideRepPerLineItem,
		EndUserPerLineItem:    quote.EndUserPerLineItem,
	}
	order.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Omit("Balance", "Details").Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i, qd := range selected {
		in := &NewOrderDetail{
			ProductId:      qd.ProductId,
			EndUserId:      qd.EndUserId,
			Description:    qd.Description,
			Quantity:       qd.Quantity,
			UnitPrice:      qd.UnitPrice,
			DivisionFactor: qd.DivisionFactor,
			Discount:       qd.Discount,
			CommissionRate: qd.CommissionRate,
		}
		detail := in.buildOrderDetail(i)
		detail.OrderId = order.ID
		if err := tx.Create(detail).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		for _, s := range qd.SplitRates {
			row := &OrderSplitRate{OrderDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: s.Position}
			if err := tx.Create(row).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			detail.SplitRates = append(detail.SplitRates, row)
		}
		for _, s := range qd.InsideReps {
			row := &OrderInsideRep{OrderDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: s.Position}
			if err := tx.Create(row).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			detail.InsideReps = append(detail.InsideReps, row)
		}
		order.Details = append(order.Details, detail)
	}
	if err := recomputeOrderBalance(tx, &order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeOrder, order.ID, order.OrderNumber)
	return &order, nil
}
