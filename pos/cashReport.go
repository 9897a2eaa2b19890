package pos

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one stored income or outcome row.
type LedgerEntry struct {
	ID              int
	TransactionType TransactionType
	Name            string
	Value           decimal.Decimal
	TransactionDate time.Time
	PaymentType     PaymentMethod
	Location        string
}

type PaymentBucket struct {
	PaymentType PaymentMethod   `json:"payment_type"`
	Label       string          `json:"label"`
	Count       int             `json:"count"`
	Total       decimal.Decimal `json:"total"`
	InDrawer    bool            `json:"in_drawer"`
}

type CashDrawerSummary struct {
	Date          time.Time        `json:"date"`
	Location      string           `json:"location"`
	TotalIn       decimal.Decimal  `json:"total_in"`
	TotalOut      decimal.Decimal  `json:"total_out"`
	Net           decimal.Decimal  `json:"net"`
	ByPaymentType []PaymentBucket  `json:"by_payment_type"`
	CountedAmount *decimal.Decimal `json:"counted_amount,omitempty"`
	Difference    *decimal.Decimal `json:"difference,omitempty"`
	Entries       []LedgerEntry    `json:"-"`
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MatchesLocation treats "" and "all" as every branch.
func MatchesLocation(filter, location string) bool {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" || f == "all" {
		return true
	}
	return f == strings.ToLower(strings.TrimSpace(location))
}

// SummarizeCashDrawer totals the day's ledger for one location.
// Card, transfer and online payments are bucketed but kept out of the drawer totals.
func SummarizeCashDrawer(entries []LedgerEntry, date time.Time, location string, counted *decimal.Decimal) CashDrawerSummary {
	summary := CashDrawerSummary{
		Date:     date,
		Location: location,
		TotalIn:  decimal.Zero,
		TotalOut: decimal.Zero,
	}

	buckets := map[PaymentMethod]*PaymentBucket{}
	var order []PaymentMethod
	for _, e := range entries {
		if !sameDay(e.TransactionDate, date) || !MatchesLocation(location, e.Location) {
			continue
		}
		summary.Entries = append(summary.Entries, e)

		if e.TransactionType == TransactionTypeIncome {
			b, ok := buckets[e.PaymentType]
			if !ok {
				b = &PaymentBucket{
					PaymentType: e.PaymentType,
					Label:       e.PaymentType.Label(),
					Total:       decimal.Zero,
					InDrawer:    e.PaymentType.CountsInCashDrawer(),
				}
				buckets[e.PaymentType] = b
				order = append(order, e.PaymentType)
			}
			b.Count++
			b.Total = b.Total.Add(e.Value)
		}

		if !e.PaymentType.CountsInCashDrawer() {
			continue
		}
		switch e.TransactionType {
		case TransactionTypeIncome:
			summary.TotalIn = summary.TotalIn.Add(e.Value)
		case TransactionTypeOutcome:
			summary.TotalOut = summary.TotalOut.Add(e.Value)
		}
	}

	for _, m := range order {
		summary.ByPaymentType = append(summary.ByPaymentType, *buckets[m])
	}
	summary.Net = summary.TotalIn.Sub(summary.TotalOut)
	if counted != nil {
		c := *counted
		diff := c.Sub(summary.Net)
		summary.CountedAmount = &c
		summary.Difference = &diff
	}
	return summary
}
