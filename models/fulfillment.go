package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FulfillmentOrder struct {
	OwnedBase
	OrderId     string  `gorm:"type:uuid;not null;index" json:"order_id" binding:"required"`
	WarehouseId *string `gorm:"type:uuid;index" json:"warehouse_id"`
	CarrierId   *string `gorm:"type:uuid" json:"carrier_id"`

	Status            FulfillmentStatus `gorm:"size:30;not null;default:'Pending'" json:"status"`
	HasBackorderItems *bool             `gorm:"not null;default:false" json:"has_backorder_items"`
	HoldReason        *string           `gorm:"size:255" json:"hold_reason"`
	CancelReason      *string           `gorm:"size:255" json:"cancel_reason"`

	TrackingNumbers    string  `gorm:"type:text" json:"tracking_numbers"`
	BolNumber          *string `gorm:"size:100" json:"bol_number"`
	ProNumber          *string `gorm:"size:100" json:"pro_number"`
	Signature          []byte  `json:"signature"`
	DriverName         *string `gorm:"size:255" json:"driver_name"`
	PickupCustomerName *string `gorm:"size:255" json:"pickup_customer_name"`
	SignatureCapturedAt *time.Time `json:"signature_captured_at"`

	ReleasedAt      *time.Time `json:"released_at"`
	PickStartedAt   *time.Time `json:"pick_started_at"`
	PickCompletedAt *time.Time `json:"pick_completed_at"`
	PackCompletedAt *time.Time `json:"pack_completed_at"`
	ShipConfirmedAt *time.Time `json:"ship_confirmed_at"`
	DeliveredAt     *time.Time `json:"delivered_at"`

	LineItems   []*FulfillmentOrderLineItem `gorm:"foreignKey:FulfillmentOrderId" json:"line_items"`
	Assignments []*FulfillmentAssignment    `gorm:"foreignKey:FulfillmentOrderId" json:"assignments"`
}

type FulfillmentOrderLineItem struct {
	Base
	FulfillmentOrderId string  `gorm:"type:uuid;not null;index" json:"fulfillment_order_id"`
	OrderDetailId      *string `gorm:"type:uuid;index" json:"order_detail_id"`
	Description        string  `gorm:"type:text" json:"description"`

	OrderedQty   decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"ordered_qty"`
	AllocatedQty decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"allocated_qty"`
	PickedQty    decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"picked_qty"`
	PackedQty    decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"packed_qty"`
	ShippedQty   decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"shipped_qty"`
	BackorderQty decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"backorder_qty"`

	ShortReason *string `gorm:"size:255" json:"short_reason"`
	PickNotes   *string `gorm:"size:255" json:"pick_notes"`

	FulfilledByManufacturer       *bool                         `gorm:"not null;default:false" json:"fulfilled_by_manufacturer"`
	ManufacturerFulfillmentStatus ManufacturerFulfillmentStatus `gorm:"size:30;not null;default:'None'" json:"manufacturer_fulfillment_status"`
	LinkedShipmentRequestId       *string                       `gorm:"type:uuid" json:"linked_shipment_request_id"`
}

type FulfillmentAssignment struct {
	Base
	FulfillmentOrderId string          `gorm:"type:uuid;not null;index;uniqueIndex:idx_fulfillment_assignment" json:"fulfillment_order_id"`
	UserId             string          `gorm:"type:uuid;not null;uniqueIndex:idx_fulfillment_assignment" json:"user_id"`
	Role               FulfillmentRole `gorm:"size:20;not null;uniqueIndex:idx_fulfillment_assignment" json:"role"`
}

// FulfillmentActivity rows are append-only.
type FulfillmentActivity struct {
	Base
	FulfillmentOrderId string                  `gorm:"type:uuid;not null;index" json:"fulfillment_order_id"`
	Type               FulfillmentActivityType `gorm:"size:30;not null" json:"type"`
	ActorId            string                  `gorm:"type:uuid" json:"actor_id"`
	Metadata           *string                 `gorm:"type:jsonb" json:"metadata"`
}

type NewFulfillmentLineItem struct {
	OrderDetailId *string         `json:"order_detail_id"`
	Description   string          `json:"description"`
	OrderedQty    decimal.Decimal `json:"ordered_qty"`
}

type NewFulfillmentOrder struct {
	OrderId     string  `json:"order_id" binding:"required"`
	WarehouseId *string `json:"warehouse_id"`
	CarrierId   *string `json:"carrier_id"`

	LineItems []*NewFulfillmentLineItem `json:"line_items" binding:"required"`
}

type ShippingConfirmation struct {
	TrackingNumbers    []string `json:"tracking_numbers"`
	BolNumber          *string  `json:"bol_number"`
	ProNumber          *string  `json:"pro_number"`
	Signature          []byte   `json:"signature"`
	DriverName         *string  `json:"driver_name"`
	PickupCustomerName *string  `json:"pickup_customer_name"`
}

// fulfillmentTransitions is the legal edge set of the state machine.
// Cancel is handled separately: any non-terminal state may cancel.
var fulfillmentTransitions = map[FulfillmentStatus][]FulfillmentStatus{
	FulfillmentStatusPending:         {FulfillmentStatusReleased},
	FulfillmentStatusReleased:        {FulfillmentStatusPicking},
	FulfillmentStatusPicking:         {FulfillmentStatusPacking, FulfillmentStatusBackorderReview},
	FulfillmentStatusBackorderReview: {FulfillmentStatusPicking},
	FulfillmentStatusPacking:         {FulfillmentStatusShipping},
	FulfillmentStatusShipping:        {FulfillmentStatusShipped},
	FulfillmentStatusShipped:         {FulfillmentStatusCommunicated, FulfillmentStatusDelivered},
	FulfillmentStatusCommunicated:    {FulfillmentStatusDelivered},
}

func (s FulfillmentStatus) IsTerminal() bool {
	return s == FulfillmentStatusDelivered || s == FulfillmentStatusCancelled
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from FulfillmentStatus, to FulfillmentStatus) bool {
	if to == FulfillmentStatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range fulfillmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (f *FulfillmentOrder) requireStatus(expected ...FulfillmentStatus) error {
	for _, s := range expected {
		if f.Status == s {
			return nil
		}
	}
	return utils.NewValidationError("operation not allowed while fulfillment order is %s", f.Status)
}

func writeActivity(tx *gorm.DB, ctx context.Context, fulfillmentOrderId string, activityType FulfillmentActivityType, metadata map[string]interface{}) error {
	activity := FulfillmentActivity{
		FulfillmentOrderId: fulfillmentOrderId,
		Type:               activityType,
		ActorId:            currentUserId(ctx),
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		s := string(raw)
		activity.Metadata = &s
	}
	return tx.Create(&activity).Error
}

func CreateFulfillmentOrder(ctx context.Context, input *NewFulfillmentOrder) (*FulfillmentOrder, error) {
	if err := utils.ValidateResourceId[Order](ctx, "Order", input.OrderId); err != nil {
		return nil, err
	}
	if len(input.LineItems) == 0 {
		return nil, utils.NewValidationError("fulfillment order requires at least one line item")
	}
	for _, li := range input.LineItems {
		if !li.OrderedQty.IsPositive() {
			return nil, utils.NewValidationError("ordered quantity must be positive")
		}
	}

	fo := FulfillmentOrder{
		OrderId:     input.OrderId,
		WarehouseId: input.WarehouseId,
		CarrierId:   input.CarrierId,
		Status:      FulfillmentStatusPending,
	}
	fo.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Omit("LineItems", "Assignments").Create(&fo).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, in := range input.LineItems {
		li := &FulfillmentOrderLineItem{
			FulfillmentOrderId: fo.ID,
			OrderDetailId:      in.OrderDetailId,
			Description:        in.Description,
			OrderedQty:         in.OrderedQty,
		}
		if err := tx.Create(li).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		fo.LineItems = append(fo.LineItems, li)
	}
	if err := writeActivity(tx, ctx, fo.ID, FulfillmentActivityTypeCreated, nil); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &fo, nil
}

func GetFulfillmentOrder(ctx context.Context, id string) (*FulfillmentOrder, error) {
	return utils.FetchModel[FulfillmentOrder](ctx, "FulfillmentOrder", id, "LineItems", "Assignments")
}

// transition moves the order to the target state, stamps the matching
// timestamp, and writes the activity row. Extra per-transition work runs
// inside the same transaction through mutate.
func (f *FulfillmentOrder) transition(
	ctx context.Context,
	to FulfillmentStatus,
	activityType FulfillmentActivityType,
	metadata map[string]interface{},
	mutate func(tx *gorm.DB) error,
) error {
	if !CanTransition(f.Status, to) {
		return utils.NewValidationError("cannot move fulfillment order from %s to %s", f.Status, to)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"status": to}
	switch to {
	case FulfillmentStatusReleased:
		f.ReleasedAt = &now
		updates["released_at"] = now
	case FulfillmentStatusPicking:
		if f.PickStartedAt == nil {
			f.PickStartedAt = &now
			updates["pick_started_at"] = now
		}
	case FulfillmentStatusPacking:
		f.PickCompletedAt = &now
		updates["pick_completed_at"] = now
	case FulfillmentStatusShipping:
		f.PackCompletedAt = &now
		updates["pack_completed_at"] = now
	case FulfillmentStatusShipped:
		f.ShipConfirmedAt = &now
		updates["ship_confirmed_at"] = now
	case FulfillmentStatusDelivered:
		f.DeliveredAt = &now
		updates["delivered_at"] = now
	}

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&FulfillmentOrder{}).Where("id = ?", f.ID).
		Updates(updates).Error; err != nil {
		tx.Rollback()
		return err
	}
	if mutate != nil {
		if err := mutate(tx); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := writeActivity(tx, ctx, f.ID, activityType, metadata); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}
	f.Status = to
	return nil
}

// ReleaseToWarehouse moves Pending → Released and ensures the releasing
// user holds a Manager assignment.
func ReleaseToWarehouse(ctx context.Context, id string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	userId := currentUserId(ctx)
	err = fo.transition(ctx, FulfillmentStatusReleased, FulfillmentActivityTypeReleased, nil, func(tx *gorm.DB) error {
		if userId == "" {
			return nil
		}
		var count int64
		if err := tx.Model(&FulfillmentAssignment{}).
			Where("fulfillment_order_id = ? AND user_id = ? AND role = ?", id, userId, FulfillmentRoleManager).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			assignment := FulfillmentAssignment{
				FulfillmentOrderId: id,
				UserId:             userId,
				Role:               FulfillmentRoleManager,
			}
			return tx.Create(&assignment).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fo, nil
}

func StartPicking(ctx context.Context, id string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusReleased); err != nil {
		return nil, err
	}
	if err := fo.transition(ctx, FulfillmentStatusPicking, FulfillmentActivityTypePickStarted, nil, nil); err != nil {
		return nil, err
	}
	return fo, nil
}

// UpdatePickedQuantity overwrites picked_qty for a line; it never changes
// the parent's state.
func UpdatePickedQuantity(ctx context.Context, lineItemId string, qty decimal.Decimal, notes *string) (*FulfillmentOrderLineItem, error) {
	li, err := utils.FetchModel[FulfillmentOrderLineItem](ctx, "FulfillmentOrderLineItem", lineItemId)
	if err != nil {
		return nil, err
	}
	if qty.IsNegative() {
		return nil, utils.NewValidationError("picked quantity cannot be negative")
	}
	pickable := li.OrderedQty.Sub(li.BackorderQty)
	if qty.GreaterThan(pickable) {
		return nil, utils.NewValidationError(
			"picked quantity %s exceeds pickable quantity %s", qty.String(), pickable.String())
	}

	updates := map[string]interface{}{"picked_qty": qty}
	if notes != nil {
		updates["pick_notes"] = *notes
	}
	if err := dbFrom(ctx).Model(&FulfillmentOrderLineItem{}).
		Where("id = ?", lineItemId).Updates(updates).Error; err != nil {
		return nil, err
	}
	li.PickedQty = qty
	li.PickNotes = notes
	return li, nil
}

func CompletePicking(ctx context.Context, id string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusPicking); err != nil {
		return nil, err
	}
	for _, li := range fo.LineItems {
		required := li.OrderedQty.Sub(li.BackorderQty)
		if li.PickedQty.LessThan(required) {
			return nil, utils.NewValidationError(
				"line item %s picked %s of %s", li.ID, li.PickedQty.String(), required.String())
		}
	}
	if err := fo.transition(ctx, FulfillmentStatusPacking, FulfillmentActivityTypePickCompleted, nil, nil); err != nil {
		return nil, err
	}
	return fo, nil
}

// ReportInventoryDiscrepancy sends a short line to backorder review.
func ReportInventoryDiscrepancy(ctx context.Context, lineItemId string, actualQty decimal.Decimal, reason string) (*FulfillmentOrder, error) {
	li, err := utils.FetchModel[FulfillmentOrderLineItem](ctx, "FulfillmentOrderLineItem", lineItemId)
	if err != nil {
		return nil, err
	}
	fo, err := GetFulfillmentOrder(ctx, li.FulfillmentOrderId)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusPicking); err != nil {
		return nil, err
	}

	shortage := li.OrderedQty.Sub(actualQty)
	if !shortage.IsPositive() {
		return nil, utils.NewValidationError("no shortage: actual quantity covers the order")
	}

	metadata := map[string]interface{}{
		"line_item_id": lineItemId,
		"short_qty":    shortage.String(),
		"reason":       reason,
	}
	err = fo.transition(ctx, FulfillmentStatusBackorderReview, FulfillmentActivityTypeBackorderReported, metadata, func(tx *gorm.DB) error {
		if err := tx.Model(&FulfillmentOrderLineItem{}).Where("id = ?", lineItemId).
			Updates(map[string]interface{}{
				"backorder_qty": shortage,
				"short_reason":  reason,
				"allocated_qty": actualQty,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&FulfillmentOrder{}).Where("id = ?", fo.ID).
			Update("has_backorder_items", true).Error
	})
	if err != nil {
		return nil, err
	}
	fo.HasBackorderItems = utils.NewTrue()
	return fo, nil
}

// ResolveBackorder returns to Picking once every backordered line is
// covered by a manufacturer.
func ResolveBackorder(ctx context.Context, id string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusBackorderReview); err != nil {
		return nil, err
	}
	for _, li := range fo.LineItems {
		covered := li.FulfilledByManufacturer != nil && *li.FulfilledByManufacturer
		if li.BackorderQty.IsPositive() && !covered {
			return nil, utils.NewValidationError(
				"line item %s still has unresolved backorder quantity", li.ID)
		}
	}
	if err := fo.transition(ctx, FulfillmentStatusPicking, FulfillmentActivityTypePickStarted, nil, nil); err != nil {
		return nil, err
	}
	return fo, nil
}

func CompleteShipping(ctx context.Context, id string, input *ShippingConfirmation) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusShipping); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = fo.transition(ctx, FulfillmentStatusShipped, FulfillmentActivityTypeShipped, nil, func(tx *gorm.DB) error {
		updates := map[string]interface{}{}
		if input != nil {
			if len(input.TrackingNumbers) > 0 {
				raw, err := json.Marshal(input.TrackingNumbers)
				if err != nil {
					return err
				}
				updates["tracking_numbers"] = string(raw)
			}
			if input.BolNumber != nil {
				updates["bol_number"] = *input.BolNumber
			}
			if input.ProNumber != nil {
				updates["pro_number"] = *input.ProNumber
			}
			if len(input.Signature) > 0 {
				updates["signature"] = input.Signature
				updates["signature_captured_at"] = now
				if input.DriverName != nil {
					updates["driver_name"] = *input.DriverName
				}
				if input.PickupCustomerName != nil {
					updates["pickup_customer_name"] = *input.PickupCustomerName
				}
				if err := writeActivity(tx, ctx, id, FulfillmentActivityTypeSignatureCaptured, nil); err != nil {
					return err
				}
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&FulfillmentOrder{}).Where("id = ?", id).
				Updates(updates).Error; err != nil {
				return err
			}
		}
		// shipped quantity snapshots the picked quantity
		return tx.Model(&FulfillmentOrderLineItem{}).
			Where("fulfillment_order_id = ?", id).
			Update("shipped_qty", gorm.Expr("picked_qty")).Error
	})
	if err != nil {
		return nil, err
	}
	for _, li := range fo.LineItems {
		li.ShippedQty = li.PickedQty
	}
	notifyOrderShipped(ctx, fo)
	return fo, nil
}

func MarkCommunicated(ctx context.Context, id string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusShipped); err != nil {
		return nil, err
	}
	if err := fo.transition(ctx, FulfillmentStatusCommunicated, FulfillmentActivityTypeCommunicated, nil, nil); err != nil {
		return nil, err
	}
	return fo, nil
}

func MarkDelivered(ctx context.Context, id string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusShipped, FulfillmentStatusCommunicated); err != nil {
		return nil, err
	}
	if err := fo.transition(ctx, FulfillmentStatusDelivered, FulfillmentActivityTypeDelivered, nil, nil); err != nil {
		return nil, err
	}
	return fo, nil
}

func CancelFulfillmentOrder(ctx context.Context, id string, reason string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	metadata := map[string]interface{}{"reason": reason}
	err = fo.transition(ctx, FulfillmentStatusCancelled, FulfillmentActivityTypeCancelled, metadata, func(tx *gorm.DB) error {
		return tx.Model(&FulfillmentOrder{}).Where("id = ?", id).
			Update("cancel_reason", reason).Error
	})
	if err != nil {
		return nil, err
	}
	fo.CancelReason = &reason
	return fo, nil
}

// MarkManufacturerFulfilled flags backordered lines as covered by the
// manufacturer and re-evaluates the parent's backorder flag.
func MarkManufacturerFulfilled(ctx context.Context, fulfillmentOrderId string, lineItemIds []string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, fulfillmentOrderId)
	if err != nil {
		return nil, err
	}
	requested := map[string]bool{}
	for _, id := range lineItemIds {
		requested[id] = true
	}

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&FulfillmentOrderLineItem{}).
		Where("fulfillment_order_id = ? AND id IN ?", fulfillmentOrderId, lineItemIds).
		Updates(map[string]interface{}{
			"fulfilled_by_manufacturer":       true,
			"manufacturer_fulfillment_status": ManufacturerFulfillmentStatusPendingManufacturer,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	hasBackorder := false
	for _, li := range fo.LineItems {
		if requested[li.ID] {
			li.FulfilledByManufacturer = utils.NewTrue()
			li.ManufacturerFulfillmentStatus = ManufacturerFulfillmentStatusPendingManufacturer
		}
		covered := li.FulfilledByManufacturer != nil && *li.FulfilledByManufacturer
		if li.BackorderQty.IsPositive() && !covered {
			hasBackorder = true
		}
	}
	if err := tx.Model(&FulfillmentOrder{}).Where("id = ?", fulfillmentOrderId).
		Update("has_backorder_items", hasBackorder).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	fo.HasBackorderItems = &hasBackorder
	return fo, nil
}

// SplitLineItem divides a line between warehouse stock and manufacturer
// fulfillment.
func SplitLineItem(ctx context.Context, lineItemId string, warehouseQty decimal.Decimal, manufacturerQty decimal.Decimal) (*FulfillmentOrderLineItem, error) {
	li, err := utils.FetchModel[FulfillmentOrderLineItem](ctx, "FulfillmentOrderLineItem", lineItemId)
	if err != nil {
		return nil, err
	}
	if warehouseQty.IsNegative() || manufacturerQty.IsNegative() {
		return nil, utils.NewValidationError("split quantities cannot be negative")
	}
	if warehouseQty.Add(manufacturerQty).GreaterThan(li.OrderedQty) {
		return nil, utils.NewValidationError("split quantities exceed ordered quantity")
	}

	fulfilled := manufacturerQty.IsPositive()
	status := ManufacturerFulfillmentStatusNone
	if fulfilled {
		status = ManufacturerFulfillmentStatusPendingManufacturer
	}
	if err := dbFrom(ctx).Model(&FulfillmentOrderLineItem{}).
		Where("id = ?", lineItemId).
		Updates(map[string]interface{}{
			"allocated_qty":                   warehouseQty,
			"backorder_qty":                   manufacturerQty,
			"fulfilled_by_manufacturer":       fulfilled,
			"manufacturer_fulfillment_status": status,
		}).Error; err != nil {
		return nil, err
	}
	li.AllocatedQty = warehouseQty
	li.BackorderQty = manufacturerQty
	li.FulfilledByManufacturer = &fulfilled
	li.ManufacturerFulfillmentStatus = status
	return li, nil
}

// CancelBackorderItems drops the backordered quantity from the listed
// lines. If nothing remains on the whole order it is cancelled.
func CancelBackorderItems(ctx context.Context, fulfillmentOrderId string, lineItemIds []string, reason string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, fulfillmentOrderId)
	if err != nil {
		return nil, err
	}
	requested := map[string]bool{}
	for _, id := range lineItemIds {
		requested[id] = true
	}

	tx := dbFrom(ctx).Begin()
	remaining := decimal.Zero
	for _, li := range fo.LineItems {
		if requested[li.ID] && li.BackorderQty.IsPositive() {
			newOrdered := li.OrderedQty.Sub(li.BackorderQty)
			if err := tx.Model(&FulfillmentOrderLineItem{}).Where("id = ?", li.ID).
				Updates(map[string]interface{}{
					"ordered_qty":   newOrdered,
					"backorder_qty": decimal.Zero,
					"short_reason":  reason,
				}).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			li.OrderedQty = newOrdered
			li.BackorderQty = decimal.Zero
			li.ShortReason = &reason
		}
		remaining = remaining.Add(li.OrderedQty)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if remaining.IsZero() {
		return CancelFulfillmentOrder(ctx, fulfillmentOrderId, "All items cancelled: "+reason)
	}
	return fo, nil
}

// LinkShipmentRequest stamps an inbound shipment request on the lines and
// holds the order until the inventory arrives.
func LinkShipmentRequest(ctx context.Context, fulfillmentOrderId string, lineItemIds []string, shipmentRequestId string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, fulfillmentOrderId)
	if err != nil {
		return nil, err
	}

	holdReason := "Pending inventory from shipment request"
	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&FulfillmentOrderLineItem{}).
		Where("fulfillment_order_id = ? AND id IN ?", fulfillmentOrderId, lineItemIds).
		Update("linked_shipment_request_id", shipmentRequestId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&FulfillmentOrder{}).Where("id = ?", fulfillmentOrderId).
		Update("hold_reason", holdReason).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	fo.HoldReason = &holdReason
	return fo, nil
}

// AddFulfillmentAssignment is idempotent per (user, role); a different role
// for an assigned user updates the existing row.
func AddFulfillmentAssignment(ctx context.Context, fulfillmentOrderId string, userId string, role FulfillmentRole) (*FulfillmentAssignment, error) {
	if err := utils.ValidateResourceId[FulfillmentOrder](ctx, "FulfillmentOrder", fulfillmentOrderId); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[User](ctx, "User", userId); err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var existing FulfillmentAssignment
	err := db.Where("fulfillment_order_id = ? AND user_id = ?", fulfillmentOrderId, userId).
		First(&existing).Error
	if err == nil {
		if existing.Role == role {
			return &existing, nil
		}
		if err := db.Model(&existing).Update("role", role).Error; err != nil {
			return nil, err
		}
		existing.Role = role
		return &existing, nil
	}

	assignment := FulfillmentAssignment{
		FulfillmentOrderId: fulfillmentOrderId,
		UserId:             userId,
		Role:               role,
	}
	tx := db.Begin()
	if err := tx.Create(&assignment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := writeActivity(tx, ctx, fulfillmentOrderId, FulfillmentActivityTypeAssignmentAdded,
		map[string]interface{}{"user_id": userId, "role": string(role)}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func RemoveFulfillmentAssignment(ctx context.Context, fulfillmentOrderId string, userId string) (*FulfillmentAssignment, error) {
	db := dbFrom(ctx)
	var assignment FulfillmentAssignment
	if err := db.Where("fulfillment_order_id = ? AND user_id = ?", fulfillmentOrderId, userId).
		First(&assignment).Error; err != nil {
		return nil, &utils.NotFoundError{Entity: "FulfillmentAssignment", Id: userId}
	}

	tx := db.Begin()
	if err := tx.Delete(&assignment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := writeActivity(tx, ctx, fulfillmentOrderId, FulfillmentActivityTypeAssignmentRemoved,
		map[string]interface{}{"user_id": userId}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func AddFulfillmentNote(ctx context.Context, fulfillmentOrderId string, note string) (*FulfillmentActivity, error) {
	if err := utils.ValidateResourceId[FulfillmentOrder](ctx, "FulfillmentOrder", fulfillmentOrderId); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(map[string]string{"note": note})
	if err != nil {
		return nil, err
	}
	s := string(raw)
	activity := FulfillmentActivity{
		FulfillmentOrderId: fulfillmentOrderId,
		Type:               FulfillmentActivityTypeNoteAdded,
		ActorId:            currentUserId(ctx),
		Metadata:           &s,
	}
	if err := dbFrom(ctx).Create(&activity).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func GetFulfillmentActivities(ctx context.Context, fulfillmentOrderId string) ([]*FulfillmentActivity, error) {
	var activities []*FulfillmentActivity
	if err := dbFrom(ctx).
		Where("fulfillment_order_id = ?", fulfillmentOrderId).
		Order("created_at ASC").
		Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}
