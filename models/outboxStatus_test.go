package models

import (
	"context"
	"errors"
	"testing"

	"github.com/huastex/huastex_backend/config"
)

func setupDeadEvent(ctx context.Context, saleId int, lastErr string) error {
	return config.GetDB().WithContext(ctx).Model(&OutboxEvent{}).
		Where("reference_type = ? AND reference_id = ?", ReferenceTypeSale, saleId).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusDead,
			"publish_attempts":   10,
			"last_publish_error": lastErr,
		}).Error
}

func TestReprocessOutbox(t *testing.T) {
	ctx := setupTestDB(t)
	sale := createCreditSale(t, ctx)

	status, err := GetOutboxStatus(ctx, ReferenceTypeSale, sale.ID)
	if err != nil {
		t.Fatalf("GetOutboxStatus error: %v", err)
	}
	if status.PublishStatus != OutboxPublishStatusPending || status.Action != OutboxActionCreate {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, err := ReprocessOutbox(ctx, ReferenceTypeSale, sale.ID); !errors.Is(err, ErrOutboxEventNotFound) {
		t.Fatalf("pending events are not reprocessed, got %v", err)
	}

	lastErr := "topic not found"
	if err := setupDeadEvent(ctx, sale.ID, lastErr); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	status, err = ReprocessOutbox(ctx, ReferenceTypeSale, sale.ID)
	if err != nil {
		t.Fatalf("ReprocessOutbox error: %v", err)
	}
	if status.PublishStatus != OutboxPublishStatusPending || status.PublishAttempts != 0 || status.LastPublishError != nil || status.NextAttemptAt == nil {
		t.Fatalf("expected a fresh pending event, got %+v", status)
	}

	if _, err := GetOutboxStatus(ctx, ReferenceTypeSale, 999); !errors.Is(err, ErrOutboxEventNotFound) {
		t.Fatalf("expected ErrOutboxEventNotFound, got %v", err)
	}
}
