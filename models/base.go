package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/huastex/huastex_backend/pos"
	"github.com/huastex/huastex_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrFormulaNotFound       = errors.New("formula not found")
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	ErrSaleNotFound          = errors.New("sale not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
)

// PublishSalesEvent implements the transactional outbox:
// it writes the event inside the caller's DB transaction but does NOT publish to Pub/Sub.
// Publishing is performed asynchronously by the outbox dispatcher after commit.
func PublishSalesEvent(ctx context.Context, tx *gorm.DB, location string, transactionDateTime time.Time, refId int, refType ReferenceType, obj interface{}, action OutboxAction) error {
	var payload []byte
	if obj != nil {
		var err error
		payload, err = json.Marshal(obj)
		if err != nil {
			return err
		}
	}

	event := OutboxEvent{
		Location:            location,
		TransactionDateTime: transactionDateTime,
		ReferenceId:         refId,
		ReferenceType:       refType,
		Action:              action,
		Payload:             payload,
		PublishStatus:       OutboxPublishStatusPending,
		CorrelationId:       correlationIdFromContextOrNew(ctx),
	}
	return tx.WithContext(ctx).Create(&event).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

// money rounds a figure to cents right before it is stored.
func money(d decimal.Decimal) decimal.Decimal {
	return pos.Money(d)
}
