package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
)

// Adjustment is a factory-level commission correction with its own
// outside-rep splits.
type Adjustment struct {
	OwnedBase
	AdjustmentNumber string          `gorm:"size:100;index" json:"adjustment_number"`
	FactoryId        string          `gorm:"type:uuid;not null;index" json:"factory_id" binding:"required"`
	CustomerId       *string         `gorm:"type:uuid;index" json:"customer_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"amount"`
	Description      string          `gorm:"type:text" json:"description"`
	AdjustmentDate   time.Time       `json:"adjustment_date"`

	SplitRates []*AdjustmentSplitRate `gorm:"foreignKey:AdjustmentId" json:"split_rates"`
}

type AdjustmentSplitRate struct {
	Base
	AdjustmentId string          `gorm:"type:uuid;not null;index" json:"adjustment_id"`
	UserId       string          `gorm:"type:uuid;not null;index" json:"user_id"`
	SplitRate    decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"split_rate"`
	Position     int             `gorm:"default:0" json:"position"`
}

type NewAdjustment struct {
	AdjustmentNumber string          `json:"adjustment_number"`
	FactoryId        string          `json:"factory_id" binding:"required"`
	CustomerId       *string         `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	AdjustmentDate   time.Time       `json:"adjustment_date"`

	SplitRates []*NewSplitRate `json:"split_rates"`
}

func (input *NewAdjustment) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Adjustment](ctx, "Adjustment", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Factory](ctx, "Factory", input.FactoryId); err != nil {
		return err
	}
	if input.CustomerId != nil {
		if err := utils.ValidateResourceId[Customer](ctx, "Customer", *input.CustomerId); err != nil {
			return err
		}
	}
	if err := validateSplitSum(input.SplitRates, "outside"); err != nil {
		return err
	}

	var userIds []string
	for _, s := range input.SplitRates {
		userIds = append(userIds, s.UserId)
	}
	return utils.MassValidateResourceIds(ctx, []utils.ValidationRule{
		{Model: &User{}, Ids: userIds, Message: "outside rep not found"},
	})
}

func CreateAdjustment(ctx context.Context, input *NewAdjustment) (*Adjustment, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	adjustment := Adjustment{
		AdjustmentNumber: input.AdjustmentNumber,
		FactoryId:        input.FactoryId,
		CustomerId:       input.CustomerId,
		Amount:           input.Amount,
		Description:      input.Description,
		AdjustmentDate:   input.AdjustmentDate,
	}
	adjustment.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Omit("SplitRates").Create(&adjustment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i, s := range input.SplitRates {
		row := &AdjustmentSplitRate{AdjustmentId: adjustment.ID, UserId: s.UserId, SplitRate: s.SplitRate, Position: i}
		if err := tx.Create(row).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		adjustment.SplitRates = append(adjustment.SplitRates, row)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeAdjustment, adjustment.ID, adjustment.AdjustmentNumber)
	return &adjustment, nil
}

func UpdateAdjustment(ctx context.Context, id string, input *NewAdjustment) (*Adjustment, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	adjustment, err := utils.FetchModel[Adjustment](ctx, "Adjustment", id)
	if err != nil {
		return nil, err
	}
	adjustment.AdjustmentNumber = input.AdjustmentNumber
	adjustment.FactoryId = input.FactoryId
	adjustment.CustomerId = input.CustomerId
	adjustment.Amount = input.Amount
	adjustment.Description = input.Description
	adjustment.AdjustmentDate = input.AdjustmentDate

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&Adjustment{}).Where("id = ?", id).Select(
		"adjustment_number", "factory_id", "customer_id", "amount",
		"description", "adjustment_date",
	).Updates(adjustment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("adjustment_id = ?", id).Delete(&AdjustmentSplitRate{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	adjustment.SplitRates = nil
	for i, s := range input.SplitRates {
		row := &AdjustmentSplitRate{AdjustmentId: id, UserId: s.UserId, SplitRate: s.SplitRate, Position: i}
		if err := tx.Create(row).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		adjustment.SplitRates = append(adjustment.SplitRates, row)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeAdjustment, adjustment.ID, adjustment.AdjustmentNumber)
	return adjustment, nil
}

func DeleteAdjustment(ctx context.Context, id string) (*Adjustment, error) {
	adjustment, err := utils.FetchModel[Adjustment](ctx, "Adjustment", id, "SplitRates")
	if err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&CheckDetail{}).Where("adjustment_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Adjustment is tied to a check and cannot be deleted"}
	}

	tx := db.Begin()
	if err := tx.Where("adjustment_id = ?", id).Delete(&AdjustmentSplitRate{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Adjustment{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeAdjustment, adjustment.ID, adjustment.AdjustmentNumber)
	return adjustment, nil
}

func GetAdjustment(ctx context.Context, id string) (*Adjustment, error) {
	return utils.FetchModel[Adjustment](ctx, "Adjustment", id, "SplitRates")
}
