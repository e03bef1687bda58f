package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/bsm/redislock"
	"github.com/flowplatform/flow_backend/config"
	"github.com/flowplatform/flow_backend/models"
	"github.com/flowplatform/flow_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dispatcherLockKey = "flow:notification-dispatcher"

// NotificationDispatcher drains the notification outbox and delivers watcher
// emails. Mutations only write outbox rows; delivery happens here, after
// commit, with retries.
type NotificationDispatcher struct {
	Logger   *logrus.Logger
	Sender   utils.EmailSender
	Locker   *redislock.Client
	WorkerID string

	BatchSize    int
	PollInterval time.Duration
	LockTTL      time.Duration
	MaxAttempts  int
}

func NewNotificationDispatcher(logger *logrus.Logger) *NotificationDispatcher {
	d := &NotificationDispatcher{
		Logger:       logger,
		Locker:       config.GetRedisLock(),
		WorkerID:     uuid.NewString(),
		BatchSize:    50,
		PollInterval: 5 * time.Second,
		LockTTL:      30 * time.Second,
		MaxAttempts:  8,
	}
	sender, err := utils.NewResendSender()
	if err != nil {
		if logger != nil {
			logger.Warn("notification dispatcher: email delivery disabled: " + err.Error())
		}
	} else {
		d.Sender = sender
	}
	return d
}

func (d *NotificationDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.dispatchCycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// dispatchCycle sweeps every tenant database once, under a distributed lock
// so only one replica delivers at a time.
func (d *NotificationDispatcher) dispatchCycle(ctx context.Context) {
	if d.Sender == nil {
		return
	}

	if d.Locker != nil {
		lock, err := d.Locker.Obtain(ctx, dispatcherLockKey, d.LockTTL, nil)
		if err != nil {
			if err != redislock.ErrNotObtained && d.Logger != nil {
				d.Logger.Warn("notification dispatcher: lock error: " + err.Error())
			}
			return
		}
		defer lock.Release(ctx)
	}

	for _, db := range config.AllDatabases() {
		d.dispatchOnce(ctx, db.WithContext(ctx))
	}
}

func (d *NotificationDispatcher) dispatchOnce(ctx context.Context, db *gorm.DB) {
	records, err := models.ClaimNotificationBatch(db, d.WorkerID, d.BatchSize)
	if err != nil {
		d.logError("dispatchOnce", nil, err)
		return
	}

	for _, record := range records {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := d.deliver(ctx, db, record); err != nil {
			d.logError("deliver", record, err)
			if markErr := models.MarkNotificationFailed(db, record, err, d.MaxAttempts); markErr != nil {
				d.logError("markFailed", record, markErr)
			}
			continue
		}
		if err := models.MarkNotificationSent(db, record.ID); err != nil {
			d.logError("markSent", record, err)
		}
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, db *gorm.DB, record *models.NotificationRecord) error {
	var recipient models.User
	if err := db.Model(&models.User{}).Where("id = ?", record.RecipientId).Take(&recipient).Error; err != nil {
		return fmt.Errorf("recipient lookup failed: %w", err)
	}
	if recipient.IsActive != nil && !*recipient.IsActive {
		// Deactivated users keep their watches but stop receiving mail.
		return nil
	}

	_, err := d.Sender.Send(recipient.Email, record.Subject, renderNotificationBody(record))
	return err
}

func renderNotificationBody(record *models.NotificationRecord) string {
	var event models.EntityEvent
	displayName := record.EntityId
	if err := json.Unmarshal(record.Payload, &event); err == nil && event.DisplayName != "" {
		displayName = event.DisplayName
	}
	return fmt.Sprintf(
		"<p>%s</p><p>%s <strong>%s</strong> was changed. Open Flow to review the update.</p>",
		html.EscapeString(record.Subject),
		html.EscapeString(string(record.EntityType)),
		html.EscapeString(displayName),
	)
}

func (d *NotificationDispatcher) logError(funcName string, record *models.NotificationRecord, err error) {
	if d.Logger == nil {
		return
	}
	fields := logrus.Fields{"worker_id": d.WorkerID}
	if record != nil {
		fields["record_id"] = record.ID
		fields["attempt"] = record.DeliveryAttempts
		fields["correlation_id"] = record.CorrelationId
	}
	d.Logger.WithFields(fields).Error("notification dispatcher " + funcName + ": " + err.Error())
}
