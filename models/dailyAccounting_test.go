package models

import (
	"testing"
	"time"
)

func TestUpsertDailyAccounting(t *testing.T) {
	ctx := setupTestDB(t)
	day := time.Date(2024, time.May, 10, 15, 30, 0, 0, time.UTC)

	first, err := UpsertDailyAccounting(ctx, day, &NewDailyAccounting{Location: "Cerro Azul", CountedAmount: "1,234.50", CashierName: "Ana"})
	if err != nil {
		t.Fatalf("UpsertDailyAccounting error: %v", err)
	}
	if first.CountedAmount == nil || !first.CountedAmount.Equal(dec("1234.5")) || first.CashInRegister != nil {
		t.Fatalf("unexpected amounts %v/%v", first.CountedAmount, first.CashInRegister)
	}

	second, err := UpsertDailyAccounting(ctx, day, &NewDailyAccounting{Location: "cerroazul", CountedAmount: "1200", CashInRegister: "$ 1,250", CashierName: "Luis"})
	if err != nil {
		t.Fatalf("UpsertDailyAccounting error: %v", err)
	}
	if second.ID != first.ID || second.CashierName != "Luis" || !second.CashInRegister.Equal(dec("1250")) {
		t.Fatalf("expected the same row updated, got %+v", second)
	}
	if n := countRows(t, &DailyAccounting{}, ""); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	got, err := GetDailyAccounting(ctx, day, "Cerro Azul")
	if err != nil || got == nil || !got.CountedAmount.Equal(dec("1200")) {
		t.Fatalf("unexpected stored row %+v (%v)", got, err)
	}
	missing, err := GetDailyAccounting(ctx, day.AddDate(0, 0, 1), "Cerro Azul")
	if err != nil || missing != nil {
		t.Fatalf("expected no row for an uncounted day, got %+v (%v)", missing, err)
	}

	if _, err := UpsertDailyAccounting(ctx, day, &NewDailyAccounting{Location: "cerroazul", CountedAmount: "mil"}); err == nil {
		t.Fatalf("expected error for invalid amount")
	}
	if _, err := UpsertDailyAccounting(ctx, day, &NewDailyAccounting{Location: "Xalapa"}); err == nil {
		t.Fatalf("expected error for unknown branch")
	}
}
