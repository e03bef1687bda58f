package models

import (
	"context"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PackingBox struct {
	Base
	FulfillmentOrderId string `gorm:"type:uuid;not null;index" json:"fulfillment_order_id"`
	BoxNumber          int    `gorm:"not null" json:"box_number"`

	LengthIn *decimal.Decimal `gorm:"type:decimal(18,6)" json:"length_in"`
	WidthIn  *decimal.Decimal `gorm:"type:decimal(18,6)" json:"width_in"`
	HeightIn *decimal.Decimal `gorm:"type:decimal(18,6)" json:"height_in"`
	WeightLb *decimal.Decimal `gorm:"type:decimal(18,6)" json:"weight_lb"`

	TrackingNumber *string `gorm:"size:100" json:"tracking_number"`

	Items []*PackingBoxItem `gorm:"foreignKey:PackingBoxId" json:"items"`
}

type PackingBoxItem struct {
	Base
	PackingBoxId string          `gorm:"type:uuid;not null;index;uniqueIndex:idx_packing_box_item" json:"packing_box_id"`
	LineItemId   string          `gorm:"type:uuid;not null;uniqueIndex:idx_packing_box_item" json:"line_item_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"quantity"`
}

type NewPackingBox struct {
	FulfillmentOrderId string           `json:"fulfillment_order_id" binding:"required"`
	LengthIn           *decimal.Decimal `json:"length_in"`
	WidthIn            *decimal.Decimal `json:"width_in"`
	HeightIn           *decimal.Decimal `json:"height_in"`
	WeightLb           *decimal.Decimal `json:"weight_lb"`
	TrackingNumber     *string          `json:"tracking_number"`
}

type UpdatePackingBoxInput struct {
	LengthIn       *decimal.Decimal `json:"length_in"`
	WidthIn        *decimal.Decimal `json:"width_in"`
	HeightIn       *decimal.Decimal `json:"height_in"`
	WeightLb       *decimal.Decimal `json:"weight_lb"`
	TrackingNumber *string          `json:"tracking_number"`
}

func CreatePackingBox(ctx context.Context, input *NewPackingBox) (*PackingBox, error) {
	fo, err := GetFulfillmentOrder(ctx, input.FulfillmentOrderId)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusPacking); err != nil {
		return nil, err
	}

	box := PackingBox{
		FulfillmentOrderId: input.FulfillmentOrderId,
		LengthIn:           input.LengthIn,
		WidthIn:            input.WidthIn,
		HeightIn:           input.HeightIn,
		WeightLb:           input.WeightLb,
		TrackingNumber:     input.TrackingNumber,
	}

	tx := dbFrom(ctx).Begin()
	// box numbers are dense per fulfillment order, starting at 1
	var maxBoxNumber int
	if err := tx.Model(&PackingBox{}).
		Where("fulfillment_order_id = ?", input.FulfillmentOrderId).
		Select("COALESCE(MAX(box_number), 0)").Scan(&maxBoxNumber).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	box.BoxNumber = maxBoxNumber + 1

	if err := tx.Omit("Items").Create(&box).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &box, nil
}

func UpdatePackingBox(ctx context.Context, id string, input *UpdatePackingBoxInput) (*PackingBox, error) {
	box, err := utils.FetchModel[PackingBox](ctx, "PackingBox", id, "Items")
	if err != nil {
		return nil, err
	}
	box.LengthIn = input.LengthIn
	box.WidthIn = input.WidthIn
	box.HeightIn = input.HeightIn
	box.WeightLb = input.WeightLb
	box.TrackingNumber = input.TrackingNumber
	if err := dbFrom(ctx).Omit("Items").Save(box).Error; err != nil {
		return nil, err
	}
	return box, nil
}

func DeletePackingBox(ctx context.Context, id string) (*PackingBox, error) {
	box, err := utils.FetchModel[PackingBox](ctx, "PackingBox", id, "Items")
	if err != nil {
		return nil, err
	}
	tx := dbFrom(ctx).Begin()
	if err := tx.Where("packing_box_id = ?", id).Delete(&PackingBoxItem{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(box).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return box, nil
}

// AddItemToBox upserts the (box, line item) quantity.
func AddItemToBox(ctx context.Context, boxId string, lineItemId string, quantity decimal.Decimal) (*PackingBoxItem, error) {
	if !quantity.IsPositive() {
		return nil, utils.NewValidationError("packed quantity must be positive")
	}
	box, err := utils.FetchModel[PackingBox](ctx, "PackingBox", boxId)
	if err != nil {
		return nil, err
	}
	li, err := utils.FetchModel[FulfillmentOrderLineItem](ctx, "FulfillmentOrderLineItem", lineItemId)
	if err != nil {
		return nil, err
	}
	if li.FulfillmentOrderId != box.FulfillmentOrderId {
		return nil, utils.NewValidationError("line item does not belong to this fulfillment order")
	}

	packed, err := packedQuantityExcluding(ctx, box.FulfillmentOrderId, lineItemId, boxId)
	if err != nil {
		return nil, err
	}
	if packed.Add(quantity).GreaterThan(li.PickedQty) {
		return nil, utils.NewValidationError(
			"packed quantity %s exceeds picked quantity %s", packed.Add(quantity).String(), li.PickedQty.String())
	}

	db := dbFrom(ctx)
	var item PackingBoxItem
	err = db.Where("packing_box_id = ? AND line_item_id = ?", boxId, lineItemId).First(&item).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		item = PackingBoxItem{PackingBoxId: boxId, LineItemId: lineItemId, Quantity: quantity}
		if err := db.Create(&item).Error; err != nil {
			return nil, err
		}
		return &item, nil
	}
	item.Quantity = quantity
	if err := db.Save(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func RemoveItemFromBox(ctx context.Context, boxId string, lineItemId string) (*PackingBoxItem, error) {
	db := dbFrom(ctx)
	var item PackingBoxItem
	if err := db.Where("packing_box_id = ? AND line_item_id = ?", boxId, lineItemId).
		First(&item).Error; err != nil {
		return nil, &utils.NotFoundError{Entity: "PackingBoxItem", Id: lineItemId}
	}
	if err := db.Delete(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// packedQuantityExcluding sums a line's packed quantity across every box of
// the fulfillment order except excludeBoxId.
func packedQuantityExcluding(ctx context.Context, fulfillmentOrderId string, lineItemId string, excludeBoxId string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := dbFrom(ctx).Model(&PackingBoxItem{}).
		Joins("JOIN packing_boxes ON packing_boxes.id = packing_box_items.packing_box_id").
		Where("packing_boxes.fulfillment_order_id = ? AND packing_box_items.line_item_id = ? AND packing_box_items.packing_box_id <> ?",
			fulfillmentOrderId, lineItemId, excludeBoxId).
		Select("COALESCE(SUM(packing_box_items.quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// CompletePacking validates box contents, snapshots packed quantities onto
// the lines, and moves the order to Shipping.
func CompletePacking(ctx context.Context, fulfillmentOrderId string) (*FulfillmentOrder, error) {
	fo, err := GetFulfillmentOrder(ctx, fulfillmentOrderId)
	if err != nil {
		return nil, err
	}
	if err := fo.requireStatus(FulfillmentStatusPacking); err != nil {
		return nil, err
	}

	var boxes []*PackingBox
	if err := dbFrom(ctx).Preload("Items").
		Where("fulfillment_order_id = ?", fulfillmentOrderId).
		Find(&boxes).Error; err != nil {
		return nil, err
	}

	packedByLine := map[string]decimal.Decimal{}
	for _, box := range boxes {
		for _, item := range box.Items {
			packedByLine[item.LineItemId] = packedByLine[item.LineItemId].Add(item.Quantity)
		}
	}
	for _, li := range fo.LineItems {
		if packedByLine[li.ID].GreaterThan(li.PickedQty) {
			return nil, utils.NewValidationError(
				"line item %s packed %s exceeds picked %s",
				li.ID, packedByLine[li.ID].String(), li.PickedQty.String())
		}
	}

	err = fo.transition(ctx, FulfillmentStatusShipping, FulfillmentActivityTypePackCompleted, nil, func(tx *gorm.DB) error {
		for _, li := range fo.LineItems {
			if err := tx.Model(&FulfillmentOrderLineItem{}).Where("id = ?", li.ID).
				Update("packed_qty", packedByLine[li.ID]).Error; err != nil {
				return err
			}
			li.PackedQty = packedByLine[li.ID]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fo, nil
}

func GetPackingBoxes(ctx context.Context, fulfillmentOrderId string) ([]*PackingBox, error) {
	var boxes []*PackingBox
	if err := dbFrom(ctx).Preload("Items").
		Where("fulfillment_order_id = ?", fulfillmentOrderId).
		Order("box_number ASC").
		Find(&boxes).Error; err != nil {
		return nil, err
	}
	return boxes, nil
}
