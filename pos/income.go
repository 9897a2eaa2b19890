package pos

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeOutcome TransactionType = "outcome"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeOutcome
}

// PaymentMethod is the payment_type tag the cash report buckets by.
type PaymentMethod string

const (
	PaymentMethodSale        PaymentMethod = "sale"
	PaymentMethodDownPayment PaymentMethod = "down_payment"
	PaymentMethodCreditCard  PaymentMethod = "credit_card"
	PaymentMethodDeposit     PaymentMethod = "deposit"
	PaymentMethodSettled     PaymentMethod = "settled"
	PaymentMethodTransfer    PaymentMethod = "transfer"
	PaymentMethodOnline      PaymentMethod = "online"
	PaymentMethodCashDeposit PaymentMethod = "cash_deposit"
)

var paymentMethodLabels = map[PaymentMethod]string{
	PaymentMethodDeposit:     "Abono",
	PaymentMethodDownPayment: "Enganche",
	PaymentMethodSale:        "Venta",
	PaymentMethodSettled:     "Liquidó",
	PaymentMethodCreditCard:  "C/Tarjeta",
	PaymentMethodTransfer:    "Transferencia",
	PaymentMethodOnline:      "Online",
	PaymentMethodCashDeposit: "Depósito en efectivo",
}

func (m PaymentMethod) IsValid() bool {
	_, ok := paymentMethodLabels[m]
	return ok
}

func (m PaymentMethod) Label() string {
	if l, ok := paymentMethodLabels[m]; ok {
		return l
	}
	return string(m)
}

// CountsInCashDrawer is false for money that never enters the register.
func (m PaymentMethod) CountsInCashDrawer() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodTransfer, PaymentMethodOnline:
		return false
	}
	return true
}

const noProduct = "(sin producto)"

// IncomeRecord is the ledger payload written for a sale or an abono.
// Field names are shared with the cash report and must not change.
type IncomeRecord struct {
	TransactionType TransactionType `json:"transaction_type"`
	Name            string          `json:"name"`
	Product         string          `json:"product"`
	Value           decimal.Decimal `json:"value"`
	Saldo           decimal.Decimal `json:"saldo"`
	PorPagar        decimal.Decimal `json:"por_pagar"`
	TransactionDate time.Time       `json:"transaction_date"`
	PaymentType     PaymentMethod   `json:"payment_type"`
	Location        string          `json:"location"`
	SaleId          int             `json:"sale_id,omitempty"`
}

// SaleSnapshot is the part of a stored sale the ledger needs.
type SaleSnapshot struct {
	ID            int
	CustomerName  string
	Products      []string
	Modality      Modality
	DownPayment   decimal.Decimal
	PromoPrice    decimal.Decimal
	BalancePromo  decimal.Decimal
	BalanceNormal decimal.Decimal
	Date          time.Time
	Location      string
}

func (s SaleSnapshot) productList() string {
	names := make([]string, 0, len(s.Products))
	for _, p := range s.Products {
		if strings.TrimSpace(p) == "" {
			p = "(sin nombre)"
		}
		names = append(names, p)
	}
	if len(names) == 0 {
		return noProduct
	}
	return strings.Join(names, ", ")
}

// BuildIncomeRecord maps a new or edited sale to its ledger record.
func BuildIncomeRecord(sale SaleSnapshot) IncomeRecord {
	rec := IncomeRecord{
		TransactionType: TransactionTypeIncome,
		Name:            sale.CustomerName,
		Product:         sale.productList(),
		Value:           decimal.Zero,
		Saldo:           decimal.Zero,
		PorPagar:        decimal.Zero,
		TransactionDate: sale.Date,
		Location:        sale.Location,
		SaleId:          sale.ID,
	}

	switch {
	case sale.Modality == ModalityCash:
		rec.PaymentType = PaymentMethodSale
		rec.Value = sale.PromoPrice
	case sale.Modality.Financed():
		rec.PaymentType = PaymentMethodDownPayment
		rec.Value = sale.DownPayment
		rec.Saldo = sale.BalanceNormal
		rec.PorPagar = sale.BalancePromo
	case sale.Modality == ModalityCard:
		rec.PaymentType = PaymentMethodCreditCard
		rec.Value = sale.PromoPrice
	default:
		rec.PaymentType = PaymentMethodDeposit
		rec.Saldo = sale.BalanceNormal
		rec.PorPagar = sale.BalancePromo
	}
	return rec
}

// Balances are the outstanding amounts of a sale under both price schedules.
type Balances struct {
	Promo  decimal.Decimal `json:"saldo_precio_promocion"`
	Normal decimal.Decimal `json:"saldo_precio_normal"`
}

// Settled does not block further payments; balances may go negative.
func (b Balances) Settled() bool {
	return b.Promo.LessThanOrEqual(decimal.Zero)
}

// ApplyPayment subtracts an abono from both balances.
func ApplyPayment(b Balances, amount decimal.Decimal) Balances {
	return Balances{
		Promo:  b.Promo.Sub(amount),
		Normal: b.Normal.Sub(amount),
	}
}

type PaymentInput struct {
	Amount  decimal.Decimal
	Date    time.Time
	Method  PaymentMethod
	Cashier string
}

// BuildPaymentRecord returns the post-payment balances and the ledger record of an abono.
func BuildPaymentRecord(sale SaleSnapshot, payment PaymentInput) (Balances, IncomeRecord) {
	after := ApplyPayment(Balances{Promo: sale.BalancePromo, Normal: sale.BalanceNormal}, payment.Amount)
	method := payment.Method
	if method == "" {
		method = PaymentMethodDeposit
	}
	return after, IncomeRecord{
		TransactionType: TransactionTypeIncome,
		Name:            sale.CustomerName,
		Product:         sale.productList(),
		Value:           payment.Amount,
		Saldo:           after.Normal,
		PorPagar:        after.Promo,
		TransactionDate: payment.Date,
		PaymentType:     method,
		Location:        sale.Location,
		SaleId:          sale.ID,
	}
}
