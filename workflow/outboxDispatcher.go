package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxOutboxBackoff = 10 * time.Minute

// PublishFunc sends one sales event and returns the broker message id.
type PublishFunc func(ctx context.Context, msg config.SalesEventMessage) (string, error)

// OutboxDispatcher moves committed sales events from the outbox table to Pub/Sub.
// Several dispatchers may run at once; rows are claimed with SKIP LOCKED.
type OutboxDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	DispatcherID string
	Publish      PublishFunc

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:             db,
		Logger:         logger,
		DispatcherID:   uuid.NewString(),
		Publish:        config.PublishSalesEventWithResult,
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
	}
}

// Run polls until ctx is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	interval := d.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) {
	if d.DB == nil || d.Publish == nil || ctx.Err() != nil {
		return
	}
	now := time.Now().UTC()
	events, err := d.claim(ctx, now)
	if err != nil {
		if d.Logger != nil {
			config.LogError(d.Logger, "OutboxDispatcher", "dispatchOnce", "claim", nil, err)
		}
		return
	}
	for _, event := range events {
		messageId, err := d.Publish(ctx, event.ToSalesEventMessage())
		if err != nil {
			d.settleFailure(ctx, event, err)
			continue
		}
		d.settleSent(ctx, event.ID, messageId, now)
	}
}

// claim locks a batch of due events for this dispatcher and returns the ones to publish.
// Due means PENDING/FAILED past next_attempt_at, or PROCESSING with a lock older
// than LockTimeout (a dispatcher died mid-batch). Events already at MaxAttempts
// go DEAD here and are not returned.
func (d *OutboxDispatcher) claim(ctx context.Context, now time.Time) ([]models.OutboxEvent, error) {
	var due []models.OutboxEvent
	var claimed []models.OutboxEvent
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		retryable := []string{models.OutboxPublishStatusPending, models.OutboxPublishStatusFailed}
		err := tx.
			Where("(publish_status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)) OR (publish_status = ? AND locked_at IS NOT NULL AND locked_at <= ?)",
				retryable, now, models.OutboxPublishStatusProcessing, now.Add(-d.LockTimeout)).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Find(&due).Error
		if err != nil {
			return err
		}

		for _, event := range due {
			if d.exhausted(event.PublishAttempts) {
				reason := fmt.Sprintf("max publish attempts exceeded (%d)", d.MaxAttempts)
				if err := d.release(tx, event.ID, models.OutboxPublishStatusDead, &reason, nil); err != nil {
					return err
				}
				continue
			}
			err := tx.Model(&models.OutboxEvent{}).Where("id = ?", event.ID).Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusProcessing,
				"locked_at":          now,
				"locked_by":          d.DispatcherID,
				"publish_attempts":   gorm.Expr("publish_attempts + 1"),
				"last_publish_error": nil,
				"next_attempt_at":    nil,
			}).Error
			if err != nil {
				return err
			}
			event.PublishAttempts++
			claimed = append(claimed, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (d *OutboxDispatcher) exhausted(attempts int) bool {
	return d.MaxAttempts > 0 && attempts >= d.MaxAttempts
}

// release drops the dispatcher lock and moves the row to status.
func (d *OutboxDispatcher) release(db *gorm.DB, id int, status string, lastError *string, nextAttempt *time.Time) error {
	return db.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"publish_status":     status,
		"last_publish_error": lastError,
		"next_attempt_at":    nextAttempt,
		"locked_at":          nil,
		"locked_by":          nil,
	}).Error
}

func (d *OutboxDispatcher) settleSent(ctx context.Context, id int, messageId string, now time.Time) {
	err := d.DB.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"publish_status":     models.OutboxPublishStatusSent,
		"published_at":       now,
		"pub_sub_message_id": messageId,
		"locked_at":          nil,
		"locked_by":          nil,
		"next_attempt_at":    nil,
	}).Error
	if err != nil && d.Logger != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "settleSent", messageId, id, err)
	}
}

// backoffFor doubles InitialBackoff per attempt, capped at ten minutes.
func (d *OutboxDispatcher) backoffFor(attempt int) time.Duration {
	backoff := d.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= maxOutboxBackoff {
			return maxOutboxBackoff
		}
	}
	return backoff
}

func (d *OutboxDispatcher) settleFailure(ctx context.Context, event models.OutboxEvent, publishErr error) {
	db := d.DB.WithContext(ctx)
	reason := publishErr.Error()
	fields := logrus.Fields{
		"field":          "OutboxDispatcher",
		"location":       event.Location,
		"reference_type": event.ReferenceType,
		"reference_id":   event.ReferenceId,
		"record_id":      event.ID,
		"attempt":        event.PublishAttempts,
	}

	if d.exhausted(event.PublishAttempts) {
		if err := d.release(db, event.ID, models.OutboxPublishStatusDead, &reason, nil); err != nil && d.Logger != nil {
			config.LogError(d.Logger, "OutboxDispatcher", "settleFailure", "dead", event.ID, err)
		}
		if d.Logger != nil {
			d.Logger.WithFields(fields).Error("sales event is DEAD after max attempts: " + reason)
		}
		return
	}

	next := time.Now().UTC().Add(d.backoffFor(event.PublishAttempts))
	if err := d.release(db, event.ID, models.OutboxPublishStatusFailed, &reason, &next); err != nil && d.Logger != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "settleFailure", "retry", event.ID, err)
	}
	if d.Logger != nil {
		fields["next_attempt_at"] = next.Format(time.RFC3339Nano)
		d.Logger.WithFields(fields).Warn("sales event publish failed: " + reason)
	}
}
