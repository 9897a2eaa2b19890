package reports

import (
	"context"
	"strings"
	"time"

	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/pos"
	"github.com/huastex/huastex_backend/utils"
	"github.com/shopspring/decimal"
)

const allLocations = "all"

// DailyCashReport is the report screen of one day: the ledger rows, their
// drawer totals and the cashier's count.
type DailyCashReport struct {
	pos.CashDrawerSummary
	Transactions []*models.Transaction  `json:"transactions"`
	Accounting   *models.DailyAccounting `json:"accounting"`
}

func normalizeLocation(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" || strings.EqualFold(location, allLocations) {
		return allLocations, nil
	}
	branch, err := pos.ParseBranch(location)
	if err != nil {
		return "", err
	}
	return string(branch), nil
}

// GetDailyCashReport builds (or reads from cache) the cash report of a day.
// The drawer count only applies to a single branch.
func GetDailyCashReport(ctx context.Context, date time.Time, location string) (*DailyCashReport, error) {
	started := time.Now()
	location, err := normalizeLocation(location)
	if err != nil {
		return nil, err
	}
	day := utils.DateOnly(date.UTC())
	key := models.DailyReportCacheKey(location, day)

	cache := newDailyReportCache()
	if cached, ok := cache.load(key); ok {
		return cached, nil
	}

	rows, err := models.ListTransactions(ctx, location, day)
	if err != nil {
		return nil, err
	}

	var accounting *models.DailyAccounting
	var counted *decimal.Decimal
	if location != allLocations {
		accounting, err = models.GetDailyAccounting(ctx, day, location)
		if err != nil {
			return nil, err
		}
		if accounting != nil {
			counted = accounting.CountedAmount
		}
	}

	entries := make([]pos.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.LedgerEntry())
	}
	report := &DailyCashReport{
		CashDrawerSummary: pos.SummarizeCashDrawer(entries, day, location, counted),
		Transactions:      rows,
		Accounting:        accounting,
	}

	cache.store(key, report)
	logSlowReport(ctx, location, day, len(rows), started)
	return report, nil
}
