package models

import (
	"context"

	"github.com/flowplatform/flow_backend/utils"
	"gorm.io/gorm"
)

// Watcher subscribes a user to change notifications for one entity.
type Watcher struct {
	Base
	EntityType EntityType `gorm:"size:30;not null;uniqueIndex:idx_watcher" json:"entity_type"`
	EntityId   string     `gorm:"type:uuid;not null;uniqueIndex:idx_watcher" json:"entity_id"`
	UserId     string     `gorm:"type:uuid;not null;uniqueIndex:idx_watcher;index" json:"user_id"`
}

func AddWatcher(ctx context.Context, entityType EntityType, entityId string, userId string) (*Watcher, error) {
	if err := utils.ValidateResourceId[User](ctx, "User", userId); err != nil {
		return nil, err
	}

	db := dbFrom(ctx)
	var existing Watcher
	err := db.Where("entity_type = ? AND entity_id = ? AND user_id = ?", entityType, entityId, userId).
		First(&existing).Error
	if err == nil {
		return nil, &utils.ConflictError{Message: "user is already watching this " + string(entityType)}
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	watcher := Watcher{
		EntityType: entityType,
		EntityId:   entityId,
		UserId:     userId,
	}
	if err := db.Create(&watcher).Error; err != nil {
		return nil, err
	}
	return &watcher, nil
}

func RemoveWatcher(ctx context.Context, entityType EntityType, entityId string, userId string) (*Watcher, error) {
	db := dbFrom(ctx)
	var watcher Watcher
	if err := db.Where("entity_type = ? AND entity_id = ? AND user_id = ?", entityType, entityId, userId).
		First(&watcher).Error; err != nil {
		return nil, &utils.NotFoundError{Entity: "Watcher", Id: userId}
	}
	if err := db.Delete(&watcher).Error; err != nil {
		return nil, err
	}
	return &watcher, nil
}

func GetWatchers(ctx context.Context, entityType EntityType, entityId string) ([]*Watcher, error) {
	return watchersOf(ctx, entityType, entityId)
}

func watchersOf(ctx context.Context, entityType EntityType, entityId string) ([]*Watcher, error) {
	var watchers []*Watcher
	if err := dbFrom(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityId).
		Find(&watchers).Error; err != nil {
		return nil, err
	}
	return watchers, nil
}
