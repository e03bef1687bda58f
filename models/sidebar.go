package models

import (
	"context"

	"github.com/flowplatform/flow_backend/utils"
	"gorm.io/gorm"
)

// Sidebar is a named navigation layout. System sidebars (OwnerType Admin)
// are shared; user sidebars belong to their creator.
type Sidebar struct {
	OwnedBase
	Name      string           `gorm:"size:100;not null" json:"name" binding:"required"`
	OwnerType SidebarOwnerType `gorm:"size:10;not null;default:'User'" json:"owner_type"`
	IsDefault *bool            `gorm:"not null;default:false" json:"is_default"`

	Groups []*SidebarGroup `gorm:"foreignKey:SidebarId" json:"groups"`
}

type SidebarGroup struct {
	Base
	SidebarId string `gorm:"type:uuid;not null;index" json:"sidebar_id"`
	Label     string `gorm:"size:100;not null" json:"label"`
	Position  int    `gorm:"not null;default:0" json:"position"`

	Items []*SidebarItem `gorm:"foreignKey:SidebarGroupId" json:"items"`
}

type SidebarItem struct {
	Base
	SidebarGroupId string  `gorm:"type:uuid;not null;index" json:"sidebar_group_id"`
	Label          string  `gorm:"size:100;not null" json:"label"`
	Route          string  `gorm:"size:255;not null" json:"route"`
	Icon           *string `gorm:"size:100" json:"icon"`
	Position       int     `gorm:"not null;default:0" json:"position"`
	RequiredRole   *string `gorm:"size:50" json:"required_role"`
}

// RoleSidebarAssignment maps a role to the sidebar its members get when they
// have no personal selection.
type RoleSidebarAssignment struct {
	Base
	Role      string `gorm:"size:50;not null;uniqueIndex" json:"role"`
	SidebarId string `gorm:"type:uuid;not null" json:"sidebar_id"`
}

type NewSidebarItem struct {
	Label        string  `json:"label" binding:"required"`
	Route        string  `json:"route" binding:"required"`
	Icon         *string `json:"icon"`
	RequiredRole *string `json:"required_role"`
}

type NewSidebarGroup struct {
	Label string            `json:"label" binding:"required"`
	Items []*NewSidebarItem `json:"items"`
}

type NewSidebar struct {
	Name      string             `json:"name" binding:"required"`
	OwnerType SidebarOwnerType   `json:"owner_type"`
	IsDefault *bool              `json:"is_default"`
	Groups    []*NewSidebarGroup `json:"groups"`
}

func (input *NewSidebar) validate(ctx context.Context) error {
	if input.Name == "" {
		return utils.NewValidationError("sidebar name is required")
	}
	if input.OwnerType == SidebarOwnerTypeAdmin && !utils.HasRole(ctx, "Admin") {
		return &utils.PermissionError{Message: "only admins can manage system sidebars"}
	}
	return nil
}

func writeSidebarGroups(tx *gorm.DB, sidebar *Sidebar, groups []*NewSidebarGroup) error {
	for gi, g := range groups {
		group := &SidebarGroup{
			SidebarId: sidebar.ID,
			Label:     g.Label,
			Position:  gi,
		}
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		for ii, it := range g.Items {
			item := &SidebarItem{
				SidebarGroupId: group.ID,
				Label:          it.Label,
				Route:          it.Route,
				Icon:           it.Icon,
				Position:       ii,
				RequiredRole:   it.RequiredRole,
			}
			if err := tx.Create(item).Error; err != nil {
				return err
			}
			group.Items = append(group.Items, item)
		}
		sidebar.Groups = append(sidebar.Groups, group)
	}
	return nil
}

func CreateSidebar(ctx context.Context, input *NewSidebar) (*Sidebar, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	ownerType := input.OwnerType
	if ownerType == "" {
		ownerType = SidebarOwnerTypeUser
	}
	sidebar := Sidebar{
		Name:      input.Name,
		OwnerType: ownerType,
		IsDefault: input.IsDefault,
	}
	sidebar.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Omit("Groups").Create(&sidebar).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := writeSidebarGroups(tx, &sidebar, input.Groups); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &sidebar, nil
}

func UpdateSidebar(ctx context.Context, id string, input *NewSidebar) (*Sidebar, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	sidebar, err := utils.FetchModel[Sidebar](ctx, "Sidebar", id)
	if err != nil {
		return nil, err
	}

	sidebar.Name = input.Name
	if input.OwnerType != "" {
		sidebar.OwnerType = input.OwnerType
	}
	sidebar.IsDefault = input.IsDefault
	sidebar.Groups = nil

	tx := dbFrom(ctx).Begin()
	if err := tx.Exec(
		"DELETE FROM sidebar_items WHERE sidebar_group_id IN (SELECT id FROM sidebar_groups WHERE sidebar_id = ?)", id,
	).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("sidebar_id = ?", id).Delete(&SidebarGroup{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Omit("Groups").Save(sidebar).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := writeSidebarGroups(tx, sidebar, input.Groups); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return sidebar, nil
}

func DeleteSidebar(ctx context.Context, id string) (*Sidebar, error) {
	sidebar, err := utils.FetchModel[Sidebar](ctx, "Sidebar", id, "Groups", "Groups.Items")
	if err != nil {
		return nil, err
	}
	if sidebar.OwnerType == SidebarOwnerTypeAdmin && !utils.HasRole(ctx, "Admin") {
		return nil, &utils.PermissionError{Message: "only admins can manage system sidebars"}
	}

	tx := dbFrom(ctx).Begin()
	if err := tx.Exec(
		"DELETE FROM sidebar_items WHERE sidebar_group_id IN (SELECT id FROM sidebar_groups WHERE sidebar_id = ?)", id,
	).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("sidebar_id = ?", id).Delete(&SidebarGroup{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("sidebar_id = ?", id).Delete(&RoleSidebarAssignment{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Exec(
		"UPDATE users SET active_sidebar = NULL WHERE active_sidebar = ?", id,
	).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(sidebar).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return sidebar, nil
}

func AssignRoleSidebar(ctx context.Context, role string, sidebarId string) (*RoleSidebarAssignment, error) {
	if !utils.HasRole(ctx, "Admin") {
		return nil, &utils.PermissionError{Message: "only admins can assign role sidebars"}
	}
	if err := utils.ValidateResourceId[Sidebar](ctx, "Sidebar", sidebarId); err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var assignment RoleSidebarAssignment
	err := db.Where("role = ?", role).First(&assignment).Error
	if err == nil {
		assignment.SidebarId = sidebarId
		if err := db.Save(&assignment).Error; err != nil {
			return nil, err
		}
		return &assignment, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	assignment = RoleSidebarAssignment{Role: role, SidebarId: sidebarId}
	if err := db.Create(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ResolveSidebar picks the sidebar the user sees. Priority: the user's
// active selection, then their own default, then their roles' assignments,
// then the system default. Items gated on a role the user lacks are
// filtered out.
func ResolveSidebar(ctx context.Context, userId string) (*Sidebar, error) {
	db := dbFrom(ctx)

	user, err := utils.FetchModel[User](ctx, "User", userId)
	if err != nil {
		return nil, err
	}

	if user.ActiveSidebar != nil {
		sidebar, err := fetchSidebarTree(ctx, *user.ActiveSidebar)
		if err == nil {
			return filterSidebarByRoles(sidebar, user.Roles), nil
		}
		if _, ok := err.(*utils.NotFoundError); !ok {
			return nil, err
		}
	}

	var own Sidebar
	err = db.Preload("Groups.Items").Preload("Groups").
		Where("created_by_id = ? AND is_default = true", userId).
		First(&own).Error
	if err == nil {
		return filterSidebarByRoles(&own, user.Roles), nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	for _, role := range user.Roles {
		var assignment RoleSidebarAssignment
		if err := db.Where("role = ?", role).First(&assignment).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, err
		}
		sidebar, err := fetchSidebarTree(ctx, assignment.SidebarId)
		if err != nil {
			return nil, err
		}
		return filterSidebarByRoles(sidebar, user.Roles), nil
	}

	var system Sidebar
	err = db.Preload("Groups.Items").Preload("Groups").
		Where("owner_type = ? AND is_default = true", SidebarOwnerTypeAdmin).
		First(&system).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &utils.NotFoundError{Entity: "Sidebar"}
		}
		return nil, err
	}
	return filterSidebarByRoles(&system, user.Roles), nil
}

func fetchSidebarTree(ctx context.Context, id string) (*Sidebar, error) {
	return utils.FetchModel[Sidebar](ctx, "Sidebar", id, "Groups", "Groups.Items")
}

func filterSidebarByRoles(sidebar *Sidebar, roles []string) *Sidebar {
	roleSet := map[string]bool{}
	for _, r := range roles {
		roleSet[r] = true
	}
	groups := make([]*SidebarGroup, 0, len(sidebar.Groups))
	for _, g := range sidebar.Groups {
		items := make([]*SidebarItem, 0, len(g.Items))
		for _, it := range g.Items {
			if it.RequiredRole != nil && !roleSet[*it.RequiredRole] {
				continue
			}
			items = append(items, it)
		}
		if len(items) == 0 {
			continue
		}
		g.Items = items
		groups = append(groups, g)
	}
	sidebar.Groups = groups
	return sidebar
}
