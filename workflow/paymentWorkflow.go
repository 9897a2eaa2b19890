package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/utils"
	"gorm.io/gorm"
)

const (
	registerPaymentHandler = "RegisterPayment"
	paymentLockTTL         = 15 * time.Second
	// keys are unique across sales, like payments.idempotency_key
	paymentScope = "payments"
)

// ErrIdempotencyKeyReused is returned when a key already paid another sale.
var ErrIdempotencyKeyReused = errors.New("idempotency key already used for another sale")

// RegisterPayment applies an abono once per idempotency key. A retried request
// with the same key returns the stored payment and replayed=true.
// Without a key it behaves like models.RegisterPayment.
func RegisterPayment(ctx context.Context, input *models.NewPayment) (payment *models.Payment, sale *models.Sale, replayed bool, err error) {
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		payment, sale, err = models.RegisterPayment(ctx, input)
		return payment, sale, false, err
	}
	input.IdempotencyKey = key
	scope := paymentScope

	release, err := utils.ObtainLock(ctx, "sale_payment", strconv.Itoa(input.SaleId), paymentLockTTL, "workflow", registerPaymentHandler)
	if err != nil {
		return nil, nil, false, err
	}
	defer release()

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip, err := BeginIdempotency(tx, scope, registerPaymentHandler, key)
		if err != nil {
			return err
		}
		if skip {
			paymentId, err := GetIdempotencyResult(tx, scope, registerPaymentHandler, key)
			if err != nil {
				return err
			}
			payment, err = models.GetPayment(ctx, tx, paymentId)
			if err != nil {
				return err
			}
			if payment.SaleId != input.SaleId {
				return ErrIdempotencyKeyReused
			}
			replayed = true
			return nil
		}
		payment, sale, err = models.RegisterPaymentTx(ctx, tx, input)
		if isDuplicateKeyErr(err) {
			return ErrIdempotencyInProgress
		}
		if err != nil {
			return err
		}
		return MarkIdempotencySucceeded(tx, scope, registerPaymentHandler, key, payment.ID)
	})
	if err != nil {
		if !errors.Is(err, ErrIdempotencyInProgress) && !errors.Is(err, ErrIdempotencyKeyReused) {
			recordIdempotencyFailure(ctx, scope, registerPaymentHandler, key, err)
		}
		return nil, nil, false, err
	}

	if replayed {
		sale, err = models.GetSale(ctx, payment.SaleId)
		if err != nil {
			return nil, nil, true, err
		}
		return payment, sale, true, nil
	}
	models.InvalidateDailyReport(payment.Location, payment.PaymentDate)
	return payment, sale, false, nil
}

// recordIdempotencyFailure keeps a FAILED key after the work was rolled back,
// so a retry with the same key runs again.
func recordIdempotencyFailure(ctx context.Context, scope, handlerName, key string, cause error) {
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := BeginIdempotency(tx, scope, handlerName, key); err != nil {
			return err
		}
		return MarkIdempotencyFailed(tx, scope, handlerName, key, cause)
	})
	if err != nil {
		config.LogError(config.GetLogger(), "workflow", "recordIdempotencyFailure", key, scope, err)
	}
}
