package models

import (
	"context"

	"github.com/flowplatform/flow_backend/utils"
	"gorm.io/gorm"
)

type Territory struct {
	OwnedBase
	Name     string  `gorm:"size:255;not null;index" json:"name" binding:"required"`
	ParentId *string `gorm:"type:uuid;index" json:"parent_id"`

	Managers   []*TerritoryManager   `json:"managers"`
	SplitRates []*TerritorySplitRate `json:"split_rates"`
}

type TerritoryManager struct {
	Base
	TerritoryId string `gorm:"type:uuid;not null;index;uniqueIndex:idx_territory_manager" json:"territory_id"`
	UserId      string `gorm:"type:uuid;not null;index;uniqueIndex:idx_territory_manager" json:"user_id"`
}

// TerritorySplitRate lists the reps working a territory.
type TerritorySplitRate struct {
	Base
	TerritoryId string `gorm:"type:uuid;not null;index;uniqueIndex:idx_territory_split" json:"territory_id"`
	UserId      string `gorm:"type:uuid;not null;index;uniqueIndex:idx_territory_split" json:"user_id"`
	Position    int    `gorm:"default:0" json:"position"`
}

type NewTerritory struct {
	Name         string   `json:"name" binding:"required"`
	ParentId     *string  `json:"parent_id"`
	ManagerIds   []string `json:"manager_ids"`
	SplitUserIds []string `json:"split_user_ids"`
}

func (input *NewTerritory) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[Territory](ctx, "Territory", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Territory](ctx, "Territory", "name", input.Name, id); err != nil {
		return err
	}
	if input.ParentId != nil {
		if *input.ParentId == id {
			return utils.NewValidationError("territory cannot be its own parent")
		}
		if err := utils.ValidateResourceId[Territory](ctx, "Territory", *input.ParentId); err != nil {
			return err
		}
	}
	return utils.MassValidateResourceIds(ctx, []utils.ValidationRule{
		{Model: &User{}, Ids: input.ManagerIds, Message: "manager user not found"},
		{Model: &User{}, Ids: input.SplitUserIds, Message: "split user not found"},
	})
}

func (input *NewTerritory) writeChildren(tx *gorm.DB, territory *Territory) error {
	territory.Managers = nil
	territory.SplitRates = nil
	for _, userId := range utils.UniqueSlice(input.ManagerIds) {
		manager := TerritoryManager{TerritoryId: territory.ID, UserId: userId}
		if err := tx.Create(&manager).Error; err != nil {
			return err
		}
		territory.Managers = append(territory.Managers, &manager)
	}
	for i, userId := range utils.UniqueSlice(input.SplitUserIds) {
		rate := TerritorySplitRate{TerritoryId: territory.ID, UserId: userId, Position: i}
		if err := tx.Create(&rate).Error; err != nil {
			return err
		}
		territory.SplitRates = append(territory.SplitRates, &rate)
	}
	return nil
}

func CreateTerritory(ctx context.Context, input *NewTerritory) (*Territory, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	territory := Territory{Name: input.Name, ParentId: input.ParentId}
	territory.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Create(&territory).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := input.writeChildren(tx, &territory); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &territory, nil
}

func UpdateTerritory(ctx context.Context, id string, input *NewTerritory) (*Territory, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	territory, err := utils.FetchModel[Territory](ctx, "Territory", id)
	if err != nil {
		return nil, err
	}
	territory.Name = input.Name
	territory.ParentId = input.ParentId

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&Territory{}).Where("id = ?", id).Select(
		"name", "parent_id",
	).Updates(territory).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("territory_id = ?", id).Delete(&TerritoryManager{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("territory_id = ?", id).Delete(&TerritorySplitRate{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := input.writeChildren(tx, territory); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return territory, nil
}

func DeleteTerritory(ctx context.Context, id string) (*Territory, error) {
	territory, err := utils.FetchModel[Territory](ctx, "Territory", id, "Managers", "SplitRates")
	if err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&Territory{}).Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.DeletionError{Message: "Territory has child territories and cannot be deleted"}
	}

	tx := db.Begin()
	if err := tx.Where("territory_id = ?", id).Delete(&TerritoryManager{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("territory_id = ?", id).Delete(&TerritorySplitRate{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&SalesTeam{}).Where("territory_id = ?", id).
		Update("territory_id", nil).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&Territory{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return territory, tx.Commit().Error
}

func GetTerritory(ctx context.Context, id string) (*Territory, error) {
	return utils.FetchModel[Territory](ctx, "Territory", id, "Managers", "SplitRates")
}

func GetAllTerritories(ctx context.Context) ([]*Territory, error) {
	return utils.FetchAllModels[Territory](ctx, "Managers", "SplitRates")
}

// territoriesManagedBy collects the territories the user manages plus their
// children and grandchildren.
func territoriesManagedBy(ctx context.Context, userId string) ([]string, error) {
	db := dbFrom(ctx)

	var rootIds []string
	if err := db.Model(&TerritoryManager{}).
		Where("user_id = ?", userId).
		Pluck("territory_id", &rootIds).Error; err != nil {
		return nil, err
	}
	if len(rootIds) == 0 {
		return nil, nil
	}

	var childIds []string
	if err := db.Model(&Territory{}).
		Where("parent_id IN ?", rootIds).
		Pluck("id", &childIds).Error; err != nil {
		return nil, err
	}
	all := utils.MergeStringSlices(rootIds, childIds)

	if len(childIds) > 0 {
		var grandchildIds []string
		if err := db.Model(&Territory{}).
			Where("parent_id IN ?", childIds).
			Pluck("id", &grandchildIds).Error; err != nil {
			return nil, err
		}
		all = utils.MergeStringSlices(all, grandchildIds)
	}
	return all, nil
}
