package models

import (
	"time"

	"github.com/huastex/huastex_backend/config"
)

// OutboxEvent is written in the same transaction as the change it describes
// and published to Pub/Sub by the outbox dispatcher after commit.
type OutboxEvent struct {
	ID                  int           `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	Location            string        `gorm:"size:50;index" json:"location"`
	TransactionDateTime time.Time     `gorm:"index;not null" json:"transaction_date_time"`
	ReferenceId         int           `gorm:"index" json:"reference_id"`
	ReferenceType       ReferenceType `gorm:"size:30;not null" json:"reference_type"`
	Action              OutboxAction  `gorm:"size:1;not null" json:"action"`
	Payload             []byte        `gorm:"type:blob" json:"payload"`
	PublishStatus       string        `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt         *time.Time    `gorm:"index" json:"published_at"`
	PubSubMessageId     *string       `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts     int           `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt       *time.Time    `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt            *time.Time    `gorm:"index" json:"locked_at"`
	LockedBy            *string       `gorm:"size:100" json:"locked_by"`
	LastPublishError    *string       `gorm:"type:text" json:"last_publish_error"`
	CorrelationId       string        `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt           time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e OutboxEvent) ToSalesEventMessage() config.SalesEventMessage {
	return config.SalesEventMessage{
		ID:                  e.ID,
		Location:            e.Location,
		TransactionDateTime: e.TransactionDateTime,
		ReferenceId:         e.ReferenceId,
		ReferenceType:       string(e.ReferenceType),
		Action:              string(e.Action),
		Payload:             e.Payload,
		CorrelationId:       e.CorrelationId,
	}
}
