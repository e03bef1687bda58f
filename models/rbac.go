package models

import (
	"context"

	"github.com/flowplatform/flow_backend/utils"
	"gorm.io/gorm"
)

// RbacPermission is one cell of the role/resource/privilege grid.
type RbacPermission struct {
	Base
	Role      string        `gorm:"size:50;not null;uniqueIndex:idx_rbac_permission" json:"role"`
	Resource  RbacResource  `gorm:"size:30;not null;uniqueIndex:idx_rbac_permission" json:"resource"`
	Privilege RbacPrivilege `gorm:"size:20;not null;uniqueIndex:idx_rbac_permission" json:"privilege"`
	Option    RbacOption    `gorm:"size:10;not null;default:'None'" json:"option"`
}

// RbacRoleSetting carries per-role flags outside the grid.
type RbacRoleSetting struct {
	Base
	Role       string `gorm:"size:50;not null;uniqueIndex" json:"role"`
	Commission *bool  `gorm:"not null;default:false" json:"commission"`
}

type RbacPermissionInput struct {
	Role      string        `json:"role" binding:"required"`
	Resource  RbacResource  `json:"resource" binding:"required"`
	Privilege RbacPrivilege `json:"privilege" binding:"required"`
	Option    RbacOption    `json:"option" binding:"required"`
}

// ResolveRbacOption returns the strongest option the user's roles grant for
// (resource, privilege). Admins and skip-rbac contexts always get All.
func ResolveRbacOption(ctx context.Context, resource RbacResource, privilege RbacPrivilege) (RbacOption, error) {
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		return RbacOptionAll, nil
	}
	if skip, _ := utils.GetSkipRbacFromContext(ctx); skip {
		return RbacOptionAll, nil
	}
	roles, ok := utils.GetRolesFromContext(ctx)
	if !ok || len(roles) == 0 {
		return RbacOptionNone, nil
	}

	var permissions []*RbacPermission
	if err := dbFrom(ctx).
		Where("role IN ? AND resource = ? AND privilege = ?", roles, resource, privilege).
		Find(&permissions).Error; err != nil {
		return RbacOptionNone, err
	}

	best := RbacOptionNone
	for _, p := range permissions {
		if p.Option.rank() > best.rank() {
			best = p.Option
		}
	}
	return best, nil
}

// UpdateRbacPermissions upserts grid cells in one transaction.
func UpdateRbacPermissions(ctx context.Context, inputs []*RbacPermissionInput) ([]*RbacPermission, error) {
	if !utils.HasRole(ctx, "Admin") {
		return nil, &utils.PermissionError{Message: "only admins can update permissions"}
	}

	tx := dbFrom(ctx).Begin()
	updated := make([]*RbacPermission, 0, len(inputs))
	for _, in := range inputs {
		var existing RbacPermission
		err := tx.Where("role = ? AND resource = ? AND privilege = ?", in.Role, in.Resource, in.Privilege).
			First(&existing).Error
		if err == nil {
			existing.Option = in.Option
			if err := tx.Save(&existing).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			updated = append(updated, &existing)
			continue
		}
		if err != gorm.ErrRecordNotFound {
			tx.Rollback()
			return nil, err
		}
		permission := RbacPermission{
			Role:      in.Role,
			Resource:  in.Resource,
			Privilege: in.Privilege,
			Option:    in.Option,
		}
		if err := tx.Create(&permission).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		updated = append(updated, &permission)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return updated, nil
}

func GetRbacPermissions(ctx context.Context, role *string) ([]*RbacPermission, error) {
	query := dbFrom(ctx).Model(&RbacPermission{})
	if role != nil {
		query = query.Where("role = ?", *role)
	}
	var permissions []*RbacPermission
	if err := query.Order("role, resource, privilege").Find(&permissions).Error; err != nil {
		return nil, err
	}
	return permissions, nil
}

// UpdateRoleCommissionVisibility toggles whether a role may see commission
// amounts.
func UpdateRoleCommissionVisibility(ctx context.Context, role string, commission bool) (*RbacRoleSetting, error) {
	if !utils.HasRole(ctx, "Admin") {
		return nil, &utils.PermissionError{Message: "only admins can update role settings"}
	}

	db := dbFrom(ctx)
	var setting RbacRoleSetting
	err := db.Where("role = ?", role).First(&setting).Error
	if err == nil {
		setting.Commission = &commission
		if err := db.Save(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	setting = RbacRoleSetting{Role: role, Commission: &commission}
	if err := db.Create(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

// CanSeeCommission reports whether any of the user's roles has commission
// visibility. Admins always can.
func CanSeeCommission(ctx context.Context) (bool, error) {
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		return true, nil
	}
	roles, ok := utils.GetRolesFromContext(ctx)
	if !ok || len(roles) == 0 {
		return false, nil
	}
	var count int64
	if err := dbFrom(ctx).Model(&RbacRoleSetting{}).
		Where("role IN ? AND commission = true", roles).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
