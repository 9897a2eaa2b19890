package models

import (
	"context"
	"time"

	"github.com/huastex/huastex_backend/config"
)

// ReprocessOutbox puts the FAILED or DEAD events of a document back in the
// dispatcher queue with a fresh attempt budget.
func ReprocessOutbox(ctx context.Context, referenceType ReferenceType, referenceId int) (*OutboxStatus, error) {
	now := time.Now().UTC()
	res := config.GetDB().WithContext(ctx).
		Model(&OutboxEvent{}).
		Where("reference_type = ? AND reference_id = ? AND publish_status IN ?", referenceType, referenceId,
			[]string{OutboxPublishStatusFailed, OutboxPublishStatusDead}).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    &now,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrOutboxEventNotFound
	}
	return GetOutboxStatus(ctx, referenceType, referenceId)
}
