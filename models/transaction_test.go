package models

import (
	"errors"
	"testing"
	"time"

	"github.com/huastex/huastex_backend/pos"
)

func TestTransactionCRUD(t *testing.T) {
	ctx := setupTestDB(t)

	expense, err := CreateTransaction(ctx, &NewTransaction{
		TransactionType: "outcome",
		Name:            "Gasolina",
		Value:           dec("150"),
		TransactionDate: "2024-05-10",
		Location:        "Cerro Azul",
	})
	if err != nil {
		t.Fatalf("CreateTransaction error: %v", err)
	}
	if expense.TransactionType != pos.TransactionTypeOutcome || expense.Location != string(pos.BranchCerroAzul) || expense.PaymentType != "" {
		t.Fatalf("unexpected expense %+v", expense)
	}

	income, err := CreateTransaction(ctx, &NewTransaction{
		TransactionType: "income",
		Name:            "Abono sin nota",
		Value:           dec("80"),
		TransactionDate: "2024-05-10",
		Location:        "aquismon",
	})
	if err != nil {
		t.Fatalf("CreateTransaction error: %v", err)
	}
	if income.PaymentType != pos.PaymentMethodDeposit {
		t.Fatalf("income should default to deposit, got %q", income.PaymentType)
	}

	updated, err := UpdateTransaction(ctx, expense.ID, &NewTransaction{
		TransactionType: "outcome",
		Name:            "Gasolina camioneta",
		Value:           dec("175.5"),
		TransactionDate: "2024-05-11",
		Location:        "Cerro Azul",
		Notes:           "ticket 44",
	})
	if err != nil {
		t.Fatalf("UpdateTransaction error: %v", err)
	}
	if !updated.Value.Equal(dec("175.5")) || updated.TransactionDate.Day() != 11 || updated.Notes != "ticket 44" {
		t.Fatalf("unexpected updated row %+v", updated)
	}

	day := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	onDay, err := ListTransactions(ctx, "all", day)
	if err != nil || len(onDay) != 1 || onDay[0].ID != income.ID {
		t.Fatalf("expected only the income on May 10, got %d (%v)", len(onDay), err)
	}
	cerro, _ := ListTransactions(ctx, "cerroazul", time.Time{})
	if len(cerro) != 1 || cerro[0].ID != expense.ID {
		t.Fatalf("expected only the expense at cerroazul, got %d", len(cerro))
	}

	if _, err := DeleteTransaction(ctx, expense.ID); err != nil {
		t.Fatalf("DeleteTransaction error: %v", err)
	}
	if _, err := GetTransaction(ctx, expense.ID); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestTransaction_Validation(t *testing.T) {
	ctx := setupTestDB(t)

	valid := func() *NewTransaction {
		return &NewTransaction{TransactionType: "income", Name: "Venta", Value: dec("10"), TransactionDate: "2024-05-10", Location: "aquismon"}
	}
	mutations := map[string]func(*NewTransaction){
		"type":     func(n *NewTransaction) { n.TransactionType = "transfer" },
		"method":   func(n *NewTransaction) { n.PaymentType = "cheque" },
		"value":    func(n *NewTransaction) { n.Value = dec("0") },
		"location": func(n *NewTransaction) { n.Location = "Xalapa" },
		"date":     func(n *NewTransaction) { n.TransactionDate = "" },
		"name":     func(n *NewTransaction) { n.Name = "  " },
	}
	for name, mutate := range mutations {
		input := valid()
		mutate(input)
		if _, err := CreateTransaction(ctx, input); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestTransaction_SaleRowsAreManaged(t *testing.T) {
	ctx := setupTestDB(t)
	sale := createCreditSale(t, ctx)
	ledger, err := GetTransactionBySaleId(ctx, sale.ID)
	if err != nil {
		t.Fatalf("GetTransactionBySaleId error: %v", err)
	}

	input := &NewTransaction{TransactionType: "income", Name: "x", Value: dec("1"), TransactionDate: "2024-05-10", Location: "aquismon"}
	if _, err := UpdateTransaction(ctx, ledger.ID, input); !errors.Is(err, ErrTransactionManagedBySale) {
		t.Fatalf("expected ErrTransactionManagedBySale on update, got %v", err)
	}
	if _, err := DeleteTransaction(ctx, ledger.ID); !errors.Is(err, ErrTransactionManagedBySale) {
		t.Fatalf("expected ErrTransactionManagedBySale on delete, got %v", err)
	}
	if _, err := GetTransactionBySaleId(ctx, 999); !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}
