package models

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Delivery statuses for NotificationRecord.DeliveryStatus. Kept as strings,
// they are DB values.
const (
	NotificationDeliveryPending    = "PENDING"
	NotificationDeliveryProcessing = "PROCESSING"
	NotificationDeliverySent       = "SENT"
	NotificationDeliveryFailed     = "FAILED"
	NotificationDeliveryDead       = "DEAD"
)

// NotificationRecord is the outbox row behind watcher emails. The mutation
// writes the row; the dispatcher delivers it after commit.
type NotificationRecord struct {
	ID            int        `gorm:"primaryKey;index:idx_notification_dispatch,priority:3" json:"id"`
	RecipientId   string     `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Subject       string     `gorm:"size:255;not null" json:"subject"`
	EntityType    EntityType `gorm:"size:30;not null" json:"entity_type"`
	EntityId      string     `gorm:"type:uuid;not null;index" json:"entity_id"`
	Payload       []byte     `gorm:"type:jsonb" json:"payload"`
	CorrelationId string     `gorm:"size:64;index" json:"correlation_id"`

	DeliveryStatus   string     `gorm:"size:20;not null;default:'PENDING';index;index:idx_notification_dispatch,priority:1" json:"delivery_status"`
	DeliveryAttempts int        `gorm:"not null;default:0" json:"delivery_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_notification_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastError        *string    `gorm:"type:text" json:"last_error"`
	SentAt           *time.Time `gorm:"index" json:"sent_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func queueNotification(ctx context.Context, recipientId string, subject string, event EntityEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	record := NotificationRecord{
		RecipientId:    recipientId,
		Subject:        subject,
		EntityType:     event.EntityType,
		EntityId:       event.EntityId,
		Payload:        payload,
		CorrelationId:  correlationIdFromContextOrNew(ctx),
		DeliveryStatus: NotificationDeliveryPending,
	}
	return dbFrom(ctx).Create(&record).Error
}

// ClaimNotificationBatch locks up to limit due rows for the named worker.
// SKIP LOCKED keeps concurrent dispatchers from contending on the same rows.
func ClaimNotificationBatch(db *gorm.DB, workerId string, limit int) ([]*NotificationRecord, error) {
	now := time.Now().UTC()
	var records []*NotificationRecord

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(`
				SELECT * FROM notification_records
				WHERE delivery_status IN (?, ?)
				  AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
				ORDER BY id
				LIMIT ?
				FOR UPDATE SKIP LOCKED`,
				NotificationDeliveryPending, NotificationDeliveryFailed, now, limit).
			Scan(&records).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		ids := make([]int, 0, len(records))
		for _, r := range records {
			ids = append(ids, r.ID)
		}
		return tx.Model(&NotificationRecord{}).Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"delivery_status": NotificationDeliveryProcessing,
				"locked_at":       now,
				"locked_by":       workerId,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func MarkNotificationSent(db *gorm.DB, id int) error {
	now := time.Now().UTC()
	return db.Model(&NotificationRecord{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivery_status": NotificationDeliverySent,
			"sent_at":         now,
			"locked_at":       nil,
			"locked_by":       nil,
			"last_error":      nil,
		}).Error
}

// MarkNotificationFailed records the error and schedules a retry with
// exponential backoff; past maxAttempts the row goes DEAD.
func MarkNotificationFailed(db *gorm.DB, record *NotificationRecord, deliveryErr error, maxAttempts int) error {
	attempts := record.DeliveryAttempts + 1
	status := NotificationDeliveryFailed
	var nextAttempt *time.Time
	if attempts >= maxAttempts {
		status = NotificationDeliveryDead
	} else {
		backoff := time.Duration(1<<uint(attempts)) * time.Minute
		t := time.Now().UTC().Add(backoff)
		nextAttempt = &t
	}
	msg := deliveryErr.Error()
	return db.Model(&NotificationRecord{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"delivery_status":   status,
			"delivery_attempts": attempts,
			"next_attempt_at":   nextAttempt,
			"locked_at":         nil,
			"locked_by":         nil,
			"last_error":        msg,
		}).Error
}

// ReprocessNotification resets a FAILED or DEAD row back to PENDING.
func ReprocessNotification(ctx context.Context, id int) (*NotificationRecord, error) {
	db := dbFrom(ctx)
	res := db.Model(&NotificationRecord{}).
		Where("id = ? AND delivery_status IN (?, ?)", id, NotificationDeliveryFailed, NotificationDeliveryDead).
		Updates(map[string]interface{}{
			"delivery_status": NotificationDeliveryPending,
			"next_attempt_at": nil,
			"locked_at":       nil,
			"locked_by":       nil,
			"last_error":      nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var record NotificationRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func GetNotificationsForEntity(ctx context.Context, entityType EntityType, entityId string) ([]*NotificationRecord, error) {
	var records []*NotificationRecord
	if err := dbFrom(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityId).
		Order("id DESC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
