package workflow

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/models"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func seedOutbox(t *testing.T, ctx context.Context, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := models.CreateTransaction(ctx, &models.NewTransaction{
			TransactionType: "outcome",
			Name:            "Gasto",
			Value:           dec("10"),
			TransactionDate: "2024-05-10",
			Location:        "aquismon",
		}); err != nil {
			t.Fatalf("CreateTransaction error: %v", err)
		}
	}
}

func outboxByStatus(t *testing.T, status string) []models.OutboxEvent {
	t.Helper()
	var events []models.OutboxEvent
	if err := config.GetDB().Where("publish_status = ?", status).Order("id ASC").Find(&events).Error; err != nil {
		t.Fatalf("query outbox: %v", err)
	}
	return events
}

func TestOutboxDispatcher_PublishesPending(t *testing.T) {
	ctx := setupTestDB(t)
	seedOutbox(t, ctx, 3)

	var published []config.SalesEventMessage
	d := NewOutboxDispatcher(config.GetDB(), quietLogger())
	d.Publish = func(ctx context.Context, msg config.SalesEventMessage) (string, error) {
		published = append(published, msg)
		return "msg-" + msg.ReferenceType, nil
	}
	d.dispatchOnce(ctx)

	if len(published) != 3 {
		t.Fatalf("expected 3 published events, got %d", len(published))
	}
	if published[0].Location != "aquismon" || published[0].Action != string(models.OutboxActionCreate) || len(published[0].Payload) == 0 {
		t.Fatalf("unexpected message %+v", published[0])
	}
	sent := outboxByStatus(t, models.OutboxPublishStatusSent)
	if len(sent) != 3 || sent[0].PubSubMessageId == nil || *sent[0].PubSubMessageId != "msg-TRANSACTION" || sent[0].PublishAttempts != 1 {
		t.Fatalf("expected 3 SENT rows with message ids, got %d", len(sent))
	}

	// nothing left to claim
	d.dispatchOnce(ctx)
	if len(published) != 3 {
		t.Fatalf("sent events must not be published twice, got %d", len(published))
	}
}

func TestOutboxDispatcher_FailureBacksOff(t *testing.T) {
	ctx := setupTestDB(t)
	seedOutbox(t, ctx, 1)

	d := NewOutboxDispatcher(config.GetDB(), quietLogger())
	calls := 0
	d.Publish = func(ctx context.Context, msg config.SalesEventMessage) (string, error) {
		calls++
		return "", errors.New("pubsub unavailable")
	}
	d.dispatchOnce(ctx)

	failed := outboxByStatus(t, models.OutboxPublishStatusFailed)
	if len(failed) != 1 || failed[0].NextAttemptAt == nil || failed[0].LastPublishError == nil {
		t.Fatalf("expected 1 FAILED row scheduled for retry, got %d", len(failed))
	}
	if !failed[0].NextAttemptAt.After(time.Now().UTC()) {
		t.Fatalf("expected the retry in the future, got %s", failed[0].NextAttemptAt)
	}

	// not due yet
	d.dispatchOnce(ctx)
	if calls != 1 {
		t.Fatalf("expected no retry before next_attempt_at, got %d calls", calls)
	}
}

func TestOutboxDispatcher_DeadAfterMaxAttempts(t *testing.T) {
	ctx := setupTestDB(t)
	seedOutbox(t, ctx, 1)

	d := NewOutboxDispatcher(config.GetDB(), quietLogger())
	d.MaxAttempts = 1
	d.Publish = func(ctx context.Context, msg config.SalesEventMessage) (string, error) {
		return "", errors.New("pubsub unavailable")
	}
	d.dispatchOnce(ctx)

	dead := outboxByStatus(t, models.OutboxPublishStatusDead)
	if len(dead) != 1 || dead[0].PublishAttempts != 1 {
		t.Fatalf("expected 1 DEAD row after one attempt, got %d", len(dead))
	}
}

func TestOutboxDispatcher_BackoffIsCapped(t *testing.T) {
	d := NewOutboxDispatcher(nil, nil)
	cases := map[int]time.Duration{
		1:  5 * time.Second,
		2:  10 * time.Second,
		4:  40 * time.Second,
		10: 10 * time.Minute,
	}
	for attempt, expected := range cases {
		if got := d.backoffFor(attempt); got != expected {
			t.Fatalf("attempt %d expected %s, got %s", attempt, expected, got)
		}
	}
}
