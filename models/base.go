package models

import (
	"context"
	"time"

	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the uuid primary key and timestamps shared by every entity.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (b Base) GetId() string {
	return b.ID
}

// OwnedBase adds the creator column used by the created-by ownership path.
type OwnedBase struct {
	Base
	CreatedById string `gorm:"type:uuid;index" json:"created_by_id"`
}

// dbFrom resolves the request's tenant database with the context attached.
func dbFrom(ctx context.Context) *gorm.DB {
	return config.DBFromContext(ctx).WithContext(ctx)
}

// currentUserId returns the authenticated user's id, empty when the request
// is unauthenticated (internal ops).
func currentUserId(ctx context.Context) string {
	userId, _ := utils.GetUserIdFromContext(ctx)
	return userId
}

// stampCreatedBy fills CreatedById from the request context when unset.
func (o *OwnedBase) stampCreatedBy(ctx context.Context) {
	if o.CreatedById == "" {
		o.CreatedById = currentUserId(ctx)
	}
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
