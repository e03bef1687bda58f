package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Order struct {
	OwnedBase
	OrderNumber string    `gorm:"size:100;not null;index" json:"order_number"`
	FactoryId   string    `gorm:"type:uuid;not null;index" json:"factory_id" binding:"required"`
	SoldToId    *string   `gorm:"type:uuid;index" json:"sold_to_id"`
	BillToId    *string   `gorm:"type:uuid;index" json:"bill_to_id"`
	EndUserId   *string   `gorm:"type:uuid" json:"end_user_id"`
	OrderDate   time.Time `json:"order_date"`
	ShipDate    *time.Time `json:"ship_date"`
	Freight      decimal.Decimal   `gorm:"type:decimal(18,6);default:0" json:"freight"`
	Status       OrderStatus       `gorm:"size:20;not null;default:'Open'" json:"status"`
	HeaderStatus OrderHeaderStatus `gorm:"size:30;not null;default:'None'" json:"header_status"`
	OrderType    OrderType         `gorm:"size:30" json:"order_type"`
	Published    *bool             `gorm:"not null;default:false" json:"published"`

	InsideRepPerLineItem  *bool `gorm:"not null;default:false" json:"inside_rep_per_line_item"`
	OutsideRepPerLineItem *bool `gorm:"not null;default:false" json:"outside_rep_per_line_item"`
	EndUserPerLineItem    *bool `gorm:"not null;default:false" json:"end_user_per_line_item"`

	Balance *OrderBalance  `json:"balance"`
	Details []*OrderDetail `json:"details"`
}

type OrderBalance struct {
	Base
	OrderId string `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	BalanceFields
	ShippingBalance      decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"shipping_balance"`
	CancelledBalance     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"cancelled_balance"`
	FreightChargeBalance decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"freight_charge_balance"`
}

type OrderDetail struct {
	Base
	OrderId            string           `gorm:"type:uuid;not null;index" json:"order_id"`
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
	ShippingBalance    decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"shipping_balance"`
	CancelledBalance   decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"cancelled_balance"`
	FreightCharge      decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"freight_charge"`
	Position           int              `gorm:"default:0" json:"position"`

	SplitRates []*OrderSplitRate `gorm:"foreignKey:OrderDetailId" json:"split_rates"`
	InsideReps []*OrderInsideRep `gorm:"foreignKey:OrderDetailId" json:"inside_reps"`
}

// OrderSplitRate carries an outside rep's fractional share of a line.
type OrderSplitRate struct {
	Base
	OrderDetailId string          `gorm:"type:uuid;not null;index" json:"order_detail_id"`
	UserId        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	SplitRate     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"split_rate"`
	Position      int             `gorm:"default:0" json:"position"`
}

type OrderInsideRep struct {
	Base
	OrderDetailId string          `gorm:"type:uuid;not null;index" json:"order_detail_id"`
	UserId        string          `gorm:"type:uuid;not null;index" json:"user_id"`
	SplitRate     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"split_rate"`
	Position      int             `gorm:"default:0" json:"position"`
}

type NewSplitRate struct {
	UserId    string          `json:"user_id" binding:"required"`
	SplitRate decimal.Decimal `json:"split_rate"`
	Position  int             `json:"position"`
}

type NewOrderDetail struct {
	ProductId          *string          `json:"product_id"`
	EndUserId          *string          `json:"end_user_id"`
	Description        string           `json:"description"`
	Quantity           decimal.Decimal  `json:"quantity"`
	UnitPrice          decimal.Decimal  `json:"unit_price"`
	DivisionFactor     *decimal.Decimal `json:"division_factor"`
	Discount           decimal.Decimal  `json:"discount"`
	CommissionRate     decimal.Decimal  `json:"commission_rate"`
	CommissionDiscount decimal.Decimal  `json:"commission_discount"`
	ShippingBalance    decimal.Decimal  `json:"shipping_balance"`
	CancelledBalance   decimal.Decimal  `json:"cancelled_balance"`
	FreightCharge      decimal.Decimal  `json:"freight_charge"`

	SplitRates []*NewSplitRate `json:"split_rates"`
	InsideReps []*NewSplitRate `json:"inside_reps"`
}

type NewOrder struct {
	OrderNumber string     `json:"order_number"`
	FactoryId   string     `json:"factory_id" binding:"required"`
	SoldToId    *string    `json:"sold_to_id"`
	BillToId    *string    `json:"bill_to_id"`
	EndUserId   *string    `json:"end_user_id"`
	OrderDate   time.Time  `json:"order_date"`
	ShipDate    *time.Time `json:"ship_date"`
	Freight     decimal.Decimal `json:"freight"`
	Status      *OrderStatus    `json:"status"`
	OrderType   OrderType       `json:"order_type"`
	Published   *bool           `json:"published"`

	InsideRepPerLineItem  *bool `json:"inside_rep_per_line_item"`
	OutsideRepPerLineItem *bool `json:"outside_rep_per_line_item"`
	EndUserPerLineItem    *bool `json:"end_user_per_line_item"`

	Details []*NewOrderDetail `json:"details" binding:"required"`
}

type OrdersEdge Edge[Order]
type OrdersConnection struct {
	Edges    []*OrdersEdge `json:"edges"`
	PageInfo *PageInfo     `json:"pageInfo"`
}

func (o Order) GetCursor() string {
	return o.CreatedAt.Format(time.RFC3339Nano)
}

var splitSumLow = decimal.RequireFromString("0.9999")
var splitSumHigh = decimal.RequireFromString("1.0001")

// validateSplitSum enforces that a non-empty split set sums to 1.0 within
// rounding tolerance.
func validateSplitSum(splits []*NewSplitRate, category string) error {
	if len(splits) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(s.SplitRate)
	}
	if sum.LessThan(splitSumLow) || sum.GreaterThan(splitSumHigh) {
		return utils.NewValidationError("%s split rates must sum to 1.0, got %s", category, sum.String())
	}
	return nil
}

func splitUserIds(details []*NewOrderDetail) (outside []string, inside []string) {
	for _, d := range details {
		for _, s := range d.SplitRates {
			outside = append(outside, s.UserId)
		}
		for _, s := range d.InsideReps {
			inside = append(inside, s.UserId)
		}
	}
	return
}

func (input *NewOrder) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Order](ctx, "Order", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Factory](ctx, "Factory", input.FactoryId); err != nil {
		return err
	}
	if len(input.Details) == 0 {
		return utils.NewValidationError("order requires at least one detail")
	}
	for _, d := range input.Details {
		if err := validateSplitSum(d.SplitRates, "outside"); err != nil {
			return err
		}
		if err := validateSplitSum(d.InsideReps, "inside"); err != nil {
			return err
		}
		if d.DivisionFactor != nil && !d.DivisionFactor.IsPositive() {
			return utils.NewValidationError("division factor must be positive")
		}
	}

	var customerIds, productIds []string
	if input.SoldToId != nil {
		customerIds = append(customerIds, *input.SoldToId)
	}
	if input.BillToId != nil {
		customerIds = append(customerIds, *input.BillToId)
	}
	if input.EndUserId != nil {
		customerIds = append(customerIds, *input.EndUserId)
	}
	for _, d := range input.Details {
		if d.ProductId != nil {
			productIds = append(productIds, *d.ProductId)
		}
		if d.EndUserId != nil {
			customerIds = append(customerIds, *d.EndUserId)
		}
	}
	outsideIds, insideIds := splitUserIds(input.Details)

	return utils.MassValidateResourceIds(ctx, []utils.ValidationRule{
		{Model: &Customer{}, Ids: customerIds, Message: "customer not found"},
		{Model: &Product{}, Ids: productIds, Message: "product not found"},
		{Model: &User{}, Ids: outsideIds, Message: "outside rep not found"},
		{Model: &User{}, Ids: insideIds, Message: "inside rep not found"},
	})
}

// buildOrderDetail derives the computed money columns for one line.
func (d *NewOrderDetail) buildOrderDetail(position int) *OrderDetail {
	unitPrice := d.UnitPrice
	if d.DivisionFactor != nil && d.DivisionFactor.IsPositive() {
		unitPrice = unitPrice.Div(*d.DivisionFactor)
	}
	subtotal := utils.RoundAmount(d.Quantity.Mul(unitPrice))
	total := subtotal.Sub(d.Discount)
	commission := utils.RoundAmount(total.Mul(d.CommissionRate).Div(decimal.NewFromInt(100)))

	return &OrderDetail{
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
		ShippingBalance:    d.ShippingBalance,
		CancelledBalance:   d.CancelledBalance,
		FreightCharge:      d.FreightCharge,
		Position:           position,
	}
}

func (d *OrderDetail) lineAmounts() LineAmounts {
	return LineAmounts{
		Quantity:           d.Quantity,
		Subtotal:           d.Subtotal,
		Discount:           d.Discount,
		Commission:         d.Commission,
		CommissionDiscount: d.CommissionDiscount,
		ShippingBalance:    d.ShippingBalance,
		CancelledBalance:   d.CancelledBalance,
		FreightCharge:      d.FreightCharge,
	}
}

// recomputeOrderBalance rebuilds the balance row from the order's details
// inside the caller's transaction.
func recomputeOrderBalance(tx *gorm.DB, order *Order) error {
	lines := make([]LineAmounts, 0, len(order.Details))
	for _, d := range order.Details {
		lines = append(lines, d.lineAmounts())
	}
	fields := ComputeBalanceFields(lines)

	balance := order.Balance
	if balance == nil {
		balance = &OrderBalance{OrderId: order.ID}
	}
	balance.BalanceFields = fields
	balance.ShippingBalance = sumShipping(lines)
	balance.CancelledBalance = sumCancelled(lines)
	balance.FreightChargeBalance = sumFreight(lines)

	if err := tx.Save(balance).Error; err != nil {
		return err
	}
	order.Balance = balance
	return nil
}

func createOrderDetails(tx *gorm.DB, order *Order, inputs []*NewOrderDetail) error {
	order.Details = nil
	for i, in := range inputs {
		detail := in.buildOrderDetail(i)
		detail.OrderId = order.ID
		if err := tx.Create(detail).Error; err != nil {
			return err
		}
		for j, s := range in.SplitRates {
			row := &OrderSplitRate{OrderDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: j}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			detail.SplitRates = append(detail.SplitRates, row)
		}
		for j, s := range in.InsideReps {
			row := &OrderInsideRep{OrderDetailId: detail.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: j}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			detail.InsideReps = append(detail.InsideReps, row)
		}
		order.Details = append(order.Details, detail)
	}
	return nil
}

func deleteOrderDetails(tx *gorm.DB, orderId string) error {
	var detailIds []string
	if err := tx.Model(&OrderDetail{}).Where("order_id = ?", orderId).
		Pluck("id", &detailIds).Error; err != nil {
		return err
	}
	if len(detailIds) > 0 {
		if err := tx.Where("order_detail_id IN ?", detailIds).Delete(&OrderSplitRate{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_detail_id IN ?", detailIds).Delete(&OrderInsideRep{}).Error; err != nil {
			return err
		}
	}
	return tx.Where("order_id = ?", orderId).Delete(&OrderDetail{}).Error
}

func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	order := Order{
		OrderNumber:           input.OrderNumber,
		FactoryId:             input.FactoryId,
		SoldToId:              input.SoldToId,
		BillToId:              input.BillToId,
		EndUserId:             input.EndUserId,
		OrderDate:             input.OrderDate,
		ShipDate:              input.ShipDate,
		Freight:               input.Freight,
		Status:                OrderStatusOpen,
		HeaderStatus:          OrderHeaderStatusNone,
		OrderType:             input.OrderType,
		Published:             input.Published,
		InsideRepPerLineItem:  input.InsideRepPerLineItem,
		OutsideRepPerLineItem: input.OutsideRepPerLineItem,
		EndUserPerLineItem:    input.EndUserPerLineItem,
	}
	if input.Status != nil {
		order.Status = *input.Status
	}
	order.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Omit("Balance", "Details").Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createOrderDetails(tx, &order, input.Details); err != nil {
		tx.Rollback()
		return nil, err
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

func UpdateOrder(ctx context.Context, id string, input *NewOrder) (*Order, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[Order](ctx, "Order", id, "Balance")
	if err != nil {
		return nil, err
	}

	order.OrderNumber = input.OrderNumber
	order.FactoryId = input.FactoryId
	order.SoldToId = input.SoldToId
	order.BillToId = input.BillToId
	order.EndUserId = input.EndUserId
	order.OrderDate = input.OrderDate
	order.ShipDate = input.ShipDate
	order.Freight = input.Freight
	order.OrderType = input.OrderType
	if input.Status != nil {
		order.Status = *input.Status
	}
	if input.Published != nil {
		order.Published = input.Published
	}
	if input.InsideRepPerLineItem != nil {
		order.InsideRepPerLineItem = input.InsideRepPerLineItem
	}
	if input.OutsideRepPerLineItem != nil {
		order.OutsideRepPerLineItem = input.OutsideRepPerLineItem
	}
	if input.EndUserPerLineItem != nil {
		order.EndUserPerLineItem = input.EndUserPerLineItem
	}

	tx := dbFrom(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&Order{}).Where("id = ?", id).Select(
		"order_number", "factory_id", "sold_to_id", "bill_to_id", "end_user_id",
		"order_date", "ship_date", "freight", "status", "order_type", "published",
		"inside_rep_per_line_item", "outside_rep_per_line_item", "end_user_per_line_item",
	).Updates(order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := deleteOrderDetails(tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := createOrderDetails(tx, order, input.Details); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recomputeOrderBalance(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeOrder, order.ID, order.OrderNumber)
	return order, nil
}

func DeleteOrder(ctx context.Context, id string) (*Order, error) {
	order, err := utils.FetchModel[Order](ctx, "Order", id)
	if err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&Invoice{}).Where("order_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Order has invoices and cannot be deleted"}
	}

	tx := db.Begin()
	if err := deleteOrderDetails(tx, id); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("order_id = ?", id).Delete(&OrderBalance{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Order{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeOrder, order.ID, order.OrderNumber)
	return order, nil
}

func GetOrder(ctx context.Context, id string) (*Order, error) {
	order, err := utils.FetchModel[Order](ctx, "Order", id,
		"Balance", "Details", "Details.SplitRates", "Details.InsideReps")
	if err != nil {
		return nil, err
	}
	if err := redactOrderCommission(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// redactOrderCommission zeroes commission amounts for roles without
// commission visibility.
func redactOrderCommission(ctx context.Context, order *Order) error {
	seesCommission, err := CanSeeCommission(ctx)
	if err != nil {
		return err
	}
	if seesCommission {
		return nil
	}
	if order.Balance != nil {
		order.Balance.Commission = decimal.Zero
		order.Balance.CommissionRate = decimal.Zero
	}
	for _, d := range order.Details {
		d.Commission = decimal.Zero
		d.CommissionRate = decimal.Zero
	}
	return nil
}

// RebuildOrderBalance recomputes an order's balance row straight from its
// detail lines. Repair path for balances drifted by manual data fixes.
func RebuildOrderBalance(ctx context.Context, id string) (*OrderBalance, error) {
	order, err := utils.FetchModel[Order](ctx, "Order", id, "Balance", "Details")
	if err != nil {
		return nil, err
	}

	tx := dbFrom(ctx).Begin()
	if err := recomputeOrderBalance(tx, order); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return order.Balance, nil
}
