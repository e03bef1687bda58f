package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
)

type Factory struct {
	OwnedBase
	Name                   string           `gorm:"size:255;not null;index" json:"name" binding:"required"`
	Email                  string           `gorm:"size:100" json:"email"`
	Phone                  string           `gorm:"size:20" json:"phone"`
	BaseCommissionRate     decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"base_commission_rate"`
	CommissionDiscountRate decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"commission_discount_rate"`
	OverallDiscountRate    decimal.Decimal  `gorm:"type:decimal(18,6);default:0" json:"overall_discount_rate"`
	OverageAllowed         *bool            `gorm:"not null;default:false" json:"overage_allowed"`
	OverageType            OverageType      `gorm:"size:20;default:'BY_LINE'" json:"overage_type"`
	RepOverageShare        *decimal.Decimal `gorm:"type:decimal(18,6)" json:"rep_overage_share"`
	IsActive               *bool            `gorm:"not null;default:true" json:"is_active"`
}

type NewFactory struct {
	Name                   string           `json:"name" binding:"required"`
	Email                  string           `json:"email"`
	Phone                  string           `json:"phone"`
	BaseCommissionRate     decimal.Decimal  `json:"base_commission_rate"`
	CommissionDiscountRate decimal.Decimal  `json:"commission_discount_rate"`
	OverallDiscountRate    decimal.Decimal  `json:"overall_discount_rate"`
	OverageAllowed         *bool            `json:"overage_allowed"`
	OverageType            *OverageType     `json:"overage_type"`
	RepOverageShare        *decimal.Decimal `json:"rep_overage_share"`
	IsActive               *bool            `json:"is_active"`
}

type FactoriesEdge Edge[Factory]
type FactoriesConnection struct {
	Edges    []*FactoriesEdge `json:"edges"`
	PageInfo *PageInfo        `json:"pageInfo"`
}

func (f Factory) GetCursor() string {
	return f.CreatedAt.Format(time.RFC3339Nano)
}

func (input *NewFactory) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Factory](ctx, "Factory", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Factory](ctx, "Factory", "name", input.Name, id); err != nil {
		return err
	}
	if input.BaseCommissionRate.IsNegative() {
		return utils.NewValidationError("base commission rate cannot be negative")
	}
	if input.RepOverageShare != nil &&
		(input.RepOverageShare.IsNegative() || input.RepOverageShare.GreaterThan(decimal.NewFromInt(100))) {
		return utils.NewValidationError("rep overage share must be between 0 and 100")
	}
	if input.OverageType != nil && !input.OverageType.IsValid() {
		return utils.NewValidationError("invalid overage type")
	}
	return nil
}

func (input *NewFactory) apply(f *Factory) {
	f.Name = input.Name
	f.Email = input.Email
	f.Phone = input.Phone
	f.BaseCommissionRate = input.BaseCommissionRate
	f.CommissionDiscountRate = input.CommissionDiscountRate
	f.OverallDiscountRate = input.OverallDiscountRate
	if input.OverageAllowed != nil {
		f.OverageAllowed = input.OverageAllowed
	}
	if input.OverageType != nil {
		f.OverageType = *input.OverageType
	}
	f.RepOverageShare = input.RepOverageShare
	if input.IsActive != nil {
		f.IsActive = input.IsActive
	}
}

func CreateFactory(ctx context.Context, input *NewFactory) (*Factory, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	var factory Factory
	input.apply(&factory)
	factory.stampCreatedBy(ctx)

	if err := dbFrom(ctx).Create(&factory).Error; err != nil {
		return nil, err
	}
	return &factory, nil
}

func UpdateFactory(ctx context.Context, id string, input *NewFactory) (*Factory, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	factory, err := utils.FetchModel[Factory](ctx, "Factory", id)
	if err != nil {
		return nil, err
	}
	input.apply(factory)

	if err := dbFrom(ctx).Model(&Factory{}).Where("id = ?", id).Select(
		"name", "email", "phone", "base_commission_rate", "commission_discount_rate",
		"overall_discount_rate", "overage_allowed", "overage_type", "rep_overage_share", "is_active",
	).Updates(factory).Error; err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Factory](id)
	return factory, nil
}

func DeleteFactory(ctx context.Context, id string) (*Factory, error) {
	factory, err := utils.FetchModel[Factory](ctx, "Factory", id)
	if err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&Order{}).Where("factory_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Factory has orders and cannot be deleted"}
	}
	if err := db.Model(&Product{}).Where("factory_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Factory has products and cannot be deleted"}
	}

	if err := db.Delete(&Factory{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	utils.RemoveRedisItem[Factory](id)
	return factory, nil
}

func GetFactory(ctx context.Context, id string) (*Factory, error) {
	if cached, err := utils.RetrieveRedis[Factory](id); err == nil && cached != nil {
		return cached, nil
	}
	factory, err := utils.FetchModel[Factory](ctx, "Factory", id)
	if err != nil {
		return nil, err
	}
	utils.StoreRedis[Factory](factory, id)
	return factory, nil
}

func GetAllFactories(ctx context.Context) ([]*Factory, error) {
	return utils.FetchAllModels[Factory](ctx)
}
