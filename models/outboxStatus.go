package models

import (
	"context"
	"errors"
	"time"

	"github.com/huastex/huastex_backend/config"
	"gorm.io/gorm"
)

var ErrOutboxEventNotFound = errors.New("outbox event not found")

// OutboxStatus is the ops view of the latest outbox row of a document.
type OutboxStatus struct {
	RecordId         int           `json:"record_id"`
	ReferenceType    ReferenceType `json:"reference_type"`
	ReferenceId      int           `json:"reference_id"`
	Action           OutboxAction  `json:"action"`
	PublishStatus    string        `json:"publish_status"`
	PublishAttempts  int           `json:"publish_attempts"`
	NextAttemptAt    *time.Time    `json:"next_attempt_at"`
	LastPublishError *string       `json:"last_publish_error"`
	CreatedAt        time.Time     `json:"created_at"`
	PublishedAt      *time.Time    `json:"published_at"`
}

func GetOutboxStatus(ctx context.Context, referenceType ReferenceType, referenceId int) (*OutboxStatus, error) {
	var rec OutboxEvent
	err := config.GetDB().WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", referenceType, referenceId).
		Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOutboxEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &OutboxStatus{
		RecordId:         rec.ID,
		ReferenceType:    rec.ReferenceType,
		ReferenceId:      rec.ReferenceId,
		Action:           rec.Action,
		PublishStatus:    rec.PublishStatus,
		PublishAttempts:  rec.PublishAttempts,
		NextAttemptAt:    rec.NextAttemptAt,
		LastPublishError: rec.LastPublishError,
		CreatedAt:        rec.CreatedAt,
		PublishedAt:      rec.PublishedAt,
	}, nil
}
