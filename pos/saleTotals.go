package pos

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Modality is the payment modality ("forma de pago") of a sale.
type Modality string

const (
	ModalityCash    Modality = "Contado"
	ModalityLayaway Modality = "Apartado"
	ModalityCredit  Modality = "Crédito"
	ModalityMSI     Modality = "MSI"
	ModalityCard    Modality = "C/Tarjeta"
)

var ErrUnknownModality = errors.New("unknown payment modality")

// ParseModality is case-insensitive and accepts accent-less and English spellings.
func ParseModality(s string) (Modality, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "é", "e")
	switch v {
	case "contado", "cash":
		return ModalityCash, nil
	case "apartado", "layaway":
		return ModalityLayaway, nil
	case "credito", "credit":
		return ModalityCredit, nil
	case "msi", "installments":
		return ModalityMSI, nil
	case "c/tarjeta", "tarjeta", "card":
		return ModalityCard, nil
	}
	return "", ErrUnknownModality
}

// Financed reports whether the sale leaves a balance to be paid in abonos.
func (m Modality) Financed() bool {
	return m == ModalityLayaway || m == ModalityCredit || m == ModalityMSI
}

type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
}

func (l LineItem) Total() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

type TermUnit string

const (
	TermDays   TermUnit = "days"
	TermWeeks  TermUnit = "weeks"
	TermMonths TermUnit = "months"

	defaultTermUnit = TermWeeks
)

// ParseTermUnit falls back to weeks for unknown units.
func ParseTermUnit(s string) TermUnit {
	switch TermUnit(strings.ToLower(strings.TrimSpace(s))) {
	case TermDays:
		return TermDays
	case TermMonths:
		return TermMonths
	case TermWeeks:
		return TermWeeks
	}
	return defaultTermUnit
}

// Term is the credit term ("plazo") of a financed sale.
type Term struct {
	Value int      `json:"value"`
	Unit  TermUnit `json:"unit"`
}

// DueDate returns nil when the sale date or the term value is missing.
func DueDate(saleDate time.Time, term Term) *time.Time {
	if saleDate.IsZero() || term.Value == 0 {
		return nil
	}
	var due time.Time
	switch term.Unit {
	case TermDays:
		due = saleDate.AddDate(0, 0, term.Value)
	case TermWeeks:
		due = saleDate.AddDate(0, 0, term.Value*7)
	case TermMonths:
		due = AddMonths(saleDate, term.Value)
	default:
		return nil
	}
	return &due
}

// AddMonths adds calendar months, clamping the day to the target month's length.
func AddMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

type TotalsInput struct {
	Lines           []LineItem
	DiscountPercent decimal.Decimal
	Modality        Modality
	DownPayment     decimal.Decimal
	SaleDate        time.Time
	Term            Term
}

type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	PromoPrice    decimal.Decimal `json:"precio_promocion"`
	NormalPrice   decimal.Decimal `json:"precio_normal"`
	BalancePromo  decimal.Decimal `json:"saldo_precio_promocion"`
	BalanceNormal decimal.Decimal `json:"saldo_precio_normal"`
	DueDate       *time.Time      `json:"fecha_vencimiento"`
}

// Rounded returns a copy with every amount rounded to cents.
func (t Totals) Rounded() Totals {
	t.Subtotal = Money(t.Subtotal)
	t.PromoPrice = Money(t.PromoPrice)
	t.NormalPrice = Money(t.NormalPrice)
	t.BalancePromo = Money(t.BalancePromo)
	t.BalanceNormal = Money(t.BalanceNormal)
	return t
}

// NormalPriceMarkup is applied over the discounted price of financed sales.
var NormalPriceMarkup = decimal.RequireFromString("1.12")

// ComputeTotals derives prices and balances of a sale. Nothing is rounded here.
func ComputeTotals(in TotalsInput) Totals {
	subtotal := decimal.Zero
	for _, l := range in.Lines {
		subtotal = subtotal.Add(l.Total())
	}

	promo := subtotal
	if !in.DiscountPercent.IsZero() {
		promo = subtotal.Mul(decimal.NewFromInt(1).Sub(in.DiscountPercent.Div(oneHundred)))
	}

	totals := Totals{
		Subtotal:      subtotal,
		PromoPrice:    promo,
		NormalPrice:   decimal.Zero,
		BalancePromo:  decimal.Zero,
		BalanceNormal: decimal.Zero,
		DueDate:       DueDate(in.SaleDate, in.Term),
	}
	if in.Modality.Financed() {
		totals.NormalPrice = promo.Mul(NormalPriceMarkup)
		totals.BalancePromo = promo.Sub(in.DownPayment)
		totals.BalanceNormal = totals.NormalPrice.Sub(in.DownPayment)
	}
	return totals
}
