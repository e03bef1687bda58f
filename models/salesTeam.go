package models

import (
	"context"

	"github.com/flowplatform/flow_backend/utils"
)

type SalesTeam struct {
	OwnedBase
	Name        string  `gorm:"size:255;not null;index" json:"name" binding:"required"`
	ManagerId   string  `gorm:"type:uuid;not null;index" json:"manager_id" binding:"required"`
	TerritoryId *string `gorm:"type:uuid;index" json:"territory_id"`

	Members []*SalesTeamMember `json:"members"`
}

type SalesTeamMember struct {
	Base
	SalesTeamId string `gorm:"type:uuid;not null;index;uniqueIndex:idx_team_member" json:"sales_team_id"`
	UserId      string `gorm:"type:uuid;not null;index;uniqueIndex:idx_team_member" json:"user_id"`
	Position    int    `gorm:"default:0" json:"position"`
}

type NewSalesTeam struct {
	Name        string   `json:"name" binding:"required"`
	ManagerId   string   `json:"manager_id" binding:"required"`
	TerritoryId *string  `json:"territory_id"`
	MemberIds   []string `json:"member_ids"`
}

func (input *NewSalesTeam) validate(ctx context.Context, id string) error {
	if id != "" {
		if err := utils.ValidateResourceId[SalesTeam](ctx, "SalesTeam", id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[SalesTeam](ctx, "SalesTeam", "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[User](ctx, "User", input.ManagerId); err != nil {
		return err
	}
	if input.TerritoryId != nil {
		if err := utils.ValidateResourceId[Territory](ctx, "Territory", *input.TerritoryId); err != nil {
			return err
		}
	}
	if len(input.MemberIds) > 0 {
		if err := utils.MassValidateResourceIds(ctx, []utils.ValidationRule{
			{Model: &User{}, Ids: input.MemberIds, Message: "member user not found"},
		}); err != nil {
			return err
		}
	}
	return nil
}

func CreateSalesTeam(ctx context.Context, input *NewSalesTeam) (*SalesTeam, error) {
	if err := input.validate(ctx, ""); err != nil {
		return nil, err
	}

	team := SalesTeam{
		Name:        input.Name,
		ManagerId:   input.ManagerId,
		TerritoryId: input.TerritoryId,
	}
	team.stampCreatedBy(ctx)

	tx := dbFrom(ctx).Begin()
	if err := tx.Create(&team).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i, userId := range utils.UniqueSlice(input.MemberIds) {
		member := SalesTeamMember{SalesTeamId: team.ID, UserId: userId, Position: i}
		if err := tx.Create(&member).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		team.Members = append(team.Members, &member)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func UpdateSalesTeam(ctx context.Context, id string, input *NewSalesTeam) (*SalesTeam, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	team, err := utils.FetchModel[SalesTeam](ctx, "SalesTeam", id)
	if err != nil {
		return nil, err
	}
	team.Name = input.Name
	team.ManagerId = input.ManagerId
	team.TerritoryId = input.TerritoryId

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&SalesTeam{}).Where("id = ?", id).Select(
		"name", "manager_id", "territory_id",
	).Updates(team).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.MemberIds != nil {
		if err := tx.Where("sales_team_id = ?", id).Delete(&SalesTeamMember{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		team.Members = nil
		for i, userId := range utils.UniqueSlice(input.MemberIds) {
			member := SalesTeamMember{SalesTeamId: id, UserId: userId, Position: i}
			if err := tx.Create(&member).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			team.Members = append(team.Members, &member)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return team, nil
}

func DeleteSalesTeam(ctx context.Context, id string) (*SalesTeam, error) {
	team, err := utils.FetchModel[SalesTeam](ctx, "SalesTeam", id, "Members")
	if err != nil {
		return nil, err
	}

	tx := dbFrom(ctx).Begin()
	if err := tx.Where("sales_team_id = ?", id).Delete(&SalesTeamMember{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(&SalesTeam{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	return team, tx.Commit().Error
}

func GetSalesTeam(ctx context.Context, id string) (*SalesTeam, error) {
	return utils.FetchModel[SalesTeam](ctx, "SalesTeam", id, "Members")
}

func GetAllSalesTeams(ctx context.Context) ([]*SalesTeam, error) {
	return utils.FetchAllModels[SalesTeam](ctx, "Members")
}

func AddSalesTeamMember(ctx context.Context, teamId string, userId string) (*SalesTeamMember, error) {
	if err := utils.ValidateResourceId[SalesTeam](ctx, "SalesTeam", teamId); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[User](ctx, "User", userId); err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var count int64
	if err := db.Model(&SalesTeamMember{}).
		Where("sales_team_id = ? AND user_id = ?", teamId, userId).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &utils.ConflictError{Message: "user is already a member of this team"}
	}

	var maxPosition int
	row := db.Model(&SalesTeamMember{}).
		Where("sales_team_id = ?", teamId).
		Select("COALESCE(MAX(position), -1)").Row()
	if err := row.Scan(&maxPosition); err != nil {
		return nil, err
	}

	member := SalesTeamMember{SalesTeamId: teamId, UserId: userId, Position: maxPosition + 1}
	if err := db.Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func RemoveSalesTeamMember(ctx context.Context, teamId string, userId string) (*SalesTeamMember, error) {
	db := dbFrom(ctx)
	var member SalesTeamMember
	if err := db.Where("sales_team_id = ? AND user_id = ?", teamId, userId).
		First(&member).Error; err != nil {
		return nil, &utils.NotFoundError{Entity: "SalesTeamMember", Id: userId}
	}
	if err := db.Delete(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// LinkSalesTeamTerritory binds a team to a territory and reconciles member
// lists in the requested direction.
func LinkSalesTeamTerritory(ctx context.Context, teamId string, territoryId string, direction SyncDirection) (*SalesTeam, error) {
	team, err := utils.FetchModel[SalesTeam](ctx, "SalesTeam", teamId, "Members")
	if err != nil {
		return nil, err
	}
	territory, err := utils.FetchModel[Territory](ctx, "Territory", territoryId, "Managers", "SplitRates")
	if err != nil {
		return nil, err
	}

	tx := dbFrom(ctx).Begin()
	if err := tx.Model(&SalesTeam{}).Where("id = ?", teamId).
		Update("territory_id", territoryId).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	switch direction {
	case SyncDirectionTeamToTerritory:
		// team roster becomes the territory's split-rate roster
		if err := tx.Where("territory_id = ?", territoryId).Delete(&TerritorySplitRate{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		for i, member := range team.Members {
			row := TerritorySplitRate{TerritoryId: territoryId, UserId: member.UserId, Position: i}
			if err := tx.Create(&row).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	case SyncDirectionTerritoryToTeam:
		// territory roster becomes the team's member list
		if err := tx.Where("sales_team_id = ?", teamId).Delete(&SalesTeamMember{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		team.Members = nil
		for i, rate := range territory.SplitRates {
			member := SalesTeamMember{SalesTeamId: teamId, UserId: rate.UserId, Position: i}
			if err := tx.Create(&member).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
			team.Members = append(team.Members, &member)
		}
	default:
		tx.Rollback()
		return nil, utils.NewValidationError("invalid sync direction")
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	team.TerritoryId = &territoryId
	return team, nil
}

func UnlinkSalesTeamTerritory(ctx context.Context, teamId string) (*SalesTeam, error) {
	team, err := utils.FetchModel[SalesTeam](ctx, "SalesTeam", teamId, "Members")
	if err != nil {
		return nil, err
	}
	if err := dbFrom(ctx).Model(&SalesTeam{}).Where("id = ?", teamId).
		Update("territory_id", nil).Error; err != nil {
		return nil, err
	}
	team.TerritoryId = nil
	return team, nil
}

// teamsManagedBy returns ids of teams the user manages.
func teamsManagedBy(ctx context.Context, userId string) ([]string, error) {
	var ids []string
	if err := dbFrom(ctx).Model(&SalesTeam{}).
		Where("manager_id = ?", userId).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// managedMemberUserIds returns the user ids of every member of every team
// the user manages, the manager included.
func managedMemberUserIds(ctx context.Context, userId string) ([]string, error) {
	teamIds, err := teamsManagedBy(ctx, userId)
	if err != nil {
		return nil, err
	}
	ids := []string{userId}
	if len(teamIds) == 0 {
		return ids, nil
	}
	var memberIds []string
	if err := dbFrom(ctx).Model(&SalesTeamMember{}).
		Where("sales_team_id IN ?", teamIds).
		Distinct().
		Pluck("user_id", &memberIds).Error; err != nil {
		return nil, err
	}
	return utils.MergeStringSlices(ids, memberIds), nil
}
