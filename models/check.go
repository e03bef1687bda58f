package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Check struct {
	OwnedBase
	CheckNumber             string            `gorm:"size:100;index" json:"check_number"`
	FactoryId               string            `gorm:"type:uuid;not null;index" json:"factory_id" binding:"required"`
	EnteredCommissionAmount decimal.Decimal   `gorm:"type:decimal(18,6);default:0" json:"entered_commission_amount"`
	PostDate                time.Time         `json:"post_date"`
	EntityDate              time.Time         `json:"entity_date"`
	CommissionMonth         string            `gorm:"size:7" json:"commission_month"`
	Status                  CheckStatus       `gorm:"size:20;not null;default:'Open'" json:"status"`
	CreationType            CheckCreationType `gorm:"size:20" json:"creation_type"`

	Details []*CheckDetail `json:"details"`
}

// CheckDetail applies part of a check to exactly one of invoice, credit,
// or adjustment.
type CheckDetail struct {
	Base
	CheckId       string          `gorm:"type:uuid;not null;index" json:"check_id"`
	InvoiceId     *string         `gorm:"type:uuid;index" json:"invoice_id"`
	CreditId      *string         `gorm:"type:uuid;index" json:"credit_id"`
	AdjustmentId  *string         `gorm:"type:uuid;index" json:"adjustment_id"`
	AppliedAmount decimal.Decimal `gorm:"type:decimal(18,6);default:0" json:"applied_amount"`
}

type NewCheckDetail struct {
	InvoiceId     *string         `json:"invoice_id"`
	CreditId      *string         `json:"credit_id"`
	AdjustmentId  *string         `json:"adjustment_id"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
}

type NewCheck struct {
	CheckNumber             string             `json:"check_number"`
	FactoryId               string             `json:"factory_id" binding:"required"`
	EnteredCommissionAmount decimal.Decimal    `json:"entered_commission_amount"`
	PostDate                time.Time          `json:"post_date"`
	EntityDate              time.Time          `json:"entity_date"`
	CommissionMonth         string             `json:"commission_month"`
	CreationType            *CheckCreationType `json:"creation_type"`

	Details []*NewCheckDetail `json:"details"`
}

func (d *NewCheckDetail) targetCount() int {
	count := 0
	if d.InvoiceId != nil {
		count++
	}
	if d.CreditId != nil {
		count++
	}
	if d.AdjustmentId != nil {
		count++
	}
	return count
}

func (input *NewCheck) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Check](ctx, "Check", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateResourceId[Factory](ctx, "Factory", input.FactoryId); err != nil {
		return err
	}

	var invoiceIds, creditIds, adjustmentIds []string
	applied := decimal.Zero
	for _, d := range input.Details {
		if d.targetCount() != 1 {
			return utils.NewValidationError("check detail must reference exactly one of invoice, credit, or adjustment")
		}
		if d.InvoiceId != nil {
			invoiceIds = append(invoiceIds, *d.InvoiceId)
		}
		if d.CreditId != nil {
			creditIds = append(creditIds, *d.CreditId)
		}
		if d.AdjustmentId != nil {
			adjustmentIds = append(adjustmentIds, *d.AdjustmentId)
		}
		applied = applied.Add(d.AppliedAmount)
	}
	if applied.GreaterThan(input.EnteredCommissionAmount) {
		return utils.NewValidationError(
			"applied amounts %s exceed entered commission amount %s",
			applied.String(), input.EnteredCommissionAmount.String())
	}

	return utils.MassValidateResourceIds(ctx, []utils.ValidationRule{
		{Model: &Invoice{}, Ids: invoiceIds, Message: "invoice not found"},
		{Model: &Credit{}, Ids: creditIds, Message: "credit not found"},
		{Model: &Adjustment{}, Ids: adjustmentIds, Message: "adjustment not found"},
	})
}

func CreateCheck(ctx context.Context, input *NewCheck) (*Check, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	check := Check{
		CheckNumber:             input.CheckNumber,
		FactoryId:               input.FactoryId,
		EnteredCommissionAmount: input.EnteredCommissionAmount,
		PostDate:                input.PostDate,
		EntityDate:              input.EntityDate,
		CommissionMonth:         input.CommissionMonth,
		Status:                  CheckStatusOpen,
	}
	if input.CreationType != nil {
		check.CreationType = *input.CreationType
	}
	check.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Omit("Details").Create(&check).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, in := range input.Details {
		detail := &CheckDetail{
			CheckId:       check.ID,
			InvoiceId:     in.InvoiceId,
			CreditId:      in.CreditId,
			AdjustmentId:  in.AdjustmentId,
			AppliedAmount: in.AppliedAmount,
		}
		if err := tx.Create(detail).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		// an invoice application moves its paid balance
		if in.InvoiceId != nil {
			if err := tx.Model(&InvoiceBalance{}).
				Where("invoice_id = ?", *in.InvoiceId).
				Update("paid_balance", gorm.Expr("paid_balance + ?", in.AppliedAmount)).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		check.Details = append(check.Details, detail)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeCheck, check.ID, check.CheckNumber)
	return &check, nil
}

// UpdateCheck replaces the check's details, reverting prior invoice
// applications before applying the new set.
func UpdateCheck(ctx context.Context, id string, input *NewCheck) (*Check, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	check, err := utils.FetchModel[Check](ctx, "Check", id, "Details")
	if err != nil {
		return nil, err
	}
	if check.Status == CheckStatusPosted {
		return nil, utils.NewValidationError("posted check cannot be modified")
	}

	check.CheckNumber = input.CheckNumber
	check.FactoryId = input.FactoryId
	check.EnteredCommissionAmount = input.EnteredCommissionAmount
	check.PostDate = input.PostDate
	check.EntityDate = input.EntityDate
	check.CommissionMonth = input.CommissionMonth
	if input.CreationType != nil {
		check.CreationType = *input.CreationType
	}

	tx := dbFrom(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&Check{}).Where("id = ?", id).Select(
		"check_number", "factory_id", "entered_commission_amount",
		"post_date", "entity_date", "commission_month", "creation_type",
	).Updates(check).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, old := range check.Details {
		if old.InvoiceId != nil {
			if err := tx.Model(&InvoiceBalance{}).
				Where("invoice_id = ?", *old.InvoiceId).
				Update("paid_balance", gorm.Expr("paid_balance - ?", old.AppliedAmount)).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}
	if err := tx.Where("check_id = ?", id).Delete(&CheckDetail{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	check.Details = nil
	for _, in := range input.Details {
		detail := &CheckDetail{
			CheckId:       id,
			InvoiceId:     in.InvoiceId,
			CreditId:      in.CreditId,
			AdjustmentId:  in.AdjustmentId,
			AppliedAmount: in.AppliedAmount,
		}
		if err := tx.Create(detail).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if in.InvoiceId != nil {
			if err := tx.Model(&InvoiceBalance{}).
				Where("invoice_id = ?", *in.InvoiceId).
				Update("paid_balance", gorm.Expr("paid_balance + ?", in.AppliedAmount)).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		check.Details = append(check.Details, detail)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostUpdate, EntityTypeCheck, check.ID, check.CheckNumber)
	return check, nil
}

func PostCheck(ctx context.Context, id string) (*Check, error) {
	check, err := utils.FetchModel[Check](ctx, "Check", id, "Details")
	if err != nil {
		return nil, err
	}
	if check.Status != CheckStatusOpen {
		return nil, utils.NewValidationError("check is %s and cannot be posted", check.Status)
	}
	if err := dbFrom(ctx).Model(&Check{}).Where("id = ?", id).
		Update("status", CheckStatusPosted).Error; err != nil {
		return nil, err
	}
	check.Status = CheckStatusPosted
	return check, nil
}

func VoidCheck(ctx context.Context, id string) (*Check, error) {
	check, err := utils.FetchModel[Check](ctx, "Check", id, "Details")
	if err != nil {
		return nil, err
	}
	if check.Status == CheckStatusVoid {
		return nil, utils.NewValidationError("check is already void")
	}

	tx := dbFrom(ctx).Begin()
	for _, d := range check.Details {
		if d.InvoiceId != nil {
			if err := tx.Model(&InvoiceBalance{}).
				Where("invoice_id = ?", *d.InvoiceId).
				Update("paid_balance", gorm.Expr("paid_balance - ?", d.AppliedAmount)).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}
	if err := tx.Model(&Check{}).Where("id = ?", id).
		Update("status", CheckStatusVoid).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	check.Status = CheckStatusVoid
	return check, nil
}

func DeleteCheck(ctx context.Context, id string) (*Check, error) {
	check, err := utils.FetchModel[Check](ctx, "Check", id, "Details")
	if err != nil {
		return nil, err
	}
	if check.Status == CheckStatusPosted {
		return nil, &utils.DeletionError{Message: "Posted check cannot be deleted"}
	}

	tx := dbFrom(ctx).Begin()
	for _, d := range check.Details {
		if d.InvoiceId != nil {
			if err := tx.Model(&InvoiceBalance{}).
				Where("invoice_id = ?", *d.InvoiceId).
				Update("paid_balance", gorm.Expr("paid_balance - ?", d.AppliedAmount)).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}
	if err := tx.Where("check_id = ?", id).Delete(&CheckDetail{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Check{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	emitEntityEvent(ctx, EventActionPostDelete, EntityTypeCheck, check.ID, check.CheckNumber)
	return check, nil
}

func GetCheck(ctx context.Context, id string) (*Check, error) {
	return utils.FetchModel[Check](ctx, "Check", id, "Details")
}
