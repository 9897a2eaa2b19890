package models

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/pos"
	"github.com/huastex/huastex_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const paymentLockTTL = 15 * time.Second

// Payment is an abono against a sale's outstanding balance.
type Payment struct {
	ID             int               `gorm:"primary_key" json:"id"`
	SaleId         int               `gorm:"index;not null" json:"saleId"`
	Amount         decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"cantidad"`
	PaymentDate    time.Time         `gorm:"index;not null" json:"fecha"`
	Method         pos.PaymentMethod `gorm:"size:30;not null" json:"payment_type"`
	CashierName    string            `gorm:"size:100" json:"cajero"`
	Location       string            `gorm:"size:50;not null;index" json:"location"`
	BalancePromo   decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"saldo_precio_promocion"`
	BalanceNormal  decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"saldo_precio_normal"`
	IdempotencyKey *string           `gorm:"size:255;uniqueIndex" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

type NewPayment struct {
	SaleId         int             `json:"saleId" validate:"required,gt=0"`
	Fecha          string          `json:"fecha"`
	Cantidad       decimal.Decimal `json:"cantidad"`
	Cajero         string          `json:"cajero" validate:"required,max=100"`
	PaymentType    string          `json:"payment_type"`
	IdempotencyKey string          `json:"idempotency_key"`
}

func (input *NewPayment) validate() (pos.PaymentInput, error) {
	input.Cajero = strings.TrimSpace(input.Cajero)
	if err := utils.ValidateStruct(input); err != nil {
		return pos.PaymentInput{}, err
	}
	if !input.Cantidad.IsPositive() {
		return pos.PaymentInput{}, errors.New("cantidad must be greater than 0")
	}
	method := pos.PaymentMethod(strings.ToLower(strings.TrimSpace(input.PaymentType)))
	if method == "" {
		method = pos.PaymentMethodDeposit
	}
	if !method.IsValid() {
		return pos.PaymentInput{}, errors.New("invalid payment_type")
	}
	date := utils.DateOnly(time.Now().UTC())
	if input.Fecha != "" {
		d, err := utils.ParseDate(input.Fecha, time.UTC)
		if err != nil {
			return pos.PaymentInput{}, err
		}
		date = d
	}
	return pos.PaymentInput{Amount: input.Cantidad, Date: date, Method: method, Cashier: input.Cajero}, nil
}

// RegisterPayment applies an abono under a best-effort redis lock on the sale.
// The payment, its ledger row, the new sale balances and the outbox event are
// committed together or not at all.
func RegisterPayment(ctx context.Context, input *NewPayment) (*Payment, *Sale, error) {
	if _, err := input.validate(); err != nil {
		return nil, nil, err
	}
	release, err := utils.ObtainLock(ctx, "sale_payment", strconv.Itoa(input.SaleId), paymentLockTTL, "models", "RegisterPayment")
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var payment *Payment
	var sale *Sale
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		payment, sale, txErr = RegisterPaymentTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	InvalidateDailyReport(payment.Location, payment.PaymentDate)
	return payment, sale, nil
}

// RegisterPaymentTx runs inside the caller's transaction. The sale row is read
// with SELECT ... FOR UPDATE where the dialect supports it.
func RegisterPaymentTx(ctx context.Context, tx *gorm.DB, input *NewPayment) (*Payment, *Sale, error) {
	paymentInput, err := input.validate()
	if err != nil {
		return nil, nil, err
	}

	var sale Sale
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, input.SaleId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrSaleNotFound
		}
		return nil, nil, err
	}
	if err := tx.WithContext(ctx).Where("sale_id = ?", sale.ID).Order("id ASC").Find(&sale.Products).Error; err != nil {
		return nil, nil, err
	}

	after, rec := pos.BuildPaymentRecord(sale.Snapshot(), paymentInput)
	after = pos.Balances{Promo: money(after.Promo), Normal: money(after.Normal)}

	payment := Payment{
		SaleId:        sale.ID,
		Amount:        money(paymentInput.Amount),
		PaymentDate:   paymentInput.Date,
		Method:        rec.PaymentType,
		CashierName:   paymentInput.Cashier,
		Location:      sale.Location,
		BalancePromo:  after.Promo,
		BalanceNormal: after.Normal,
	}
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		payment.IdempotencyKey = &key
	}
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, nil, err
	}

	var ledger Transaction
	ledger.applyRecord(rec)
	ledger.PaymentId = &payment.ID
	ledger.CashierName = paymentInput.Cashier
	if err := tx.WithContext(ctx).Create(&ledger).Error; err != nil {
		return nil, nil, err
	}

	if err := tx.WithContext(ctx).Model(&Sale{}).Where("id = ?", sale.ID).Updates(map[string]interface{}{
		"saldo_precio_promocion": after.Promo,
		"saldo_precio_normal":    after.Normal,
	}).Error; err != nil {
		return nil, nil, err
	}
	sale.SaldoPrecioPromocion = after.Promo
	sale.SaldoPrecioNormal = after.Normal

	if err := PublishSalesEvent(ctx, tx, payment.Location, payment.PaymentDate, payment.ID, ReferenceTypePayment, payment, OutboxActionCreate); err != nil {
		return nil, nil, err
	}
	return &payment, &sale, nil
}

// GetPayment reads a payment inside the caller's transaction.
func GetPayment(ctx context.Context, tx *gorm.DB, id int) (*Payment, error) {
	var payment Payment
	if err := tx.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func ListPayments(ctx context.Context, saleId int) ([]*Payment, error) {
	var results []*Payment
	if err := config.GetDB().WithContext(ctx).Where("sale_id = ?", saleId).Order("payment_date ASC, id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
