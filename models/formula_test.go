package models

import (
	"errors"
	"testing"

	"github.com/huastex/huastex_backend/pos"
)

func TestCreateFormula_ComputesFinalNumber(t *testing.T) {
	ctx := setupTestDB(t)

	f, err := CreateFormula(ctx, &NewFormula{Name: " Mayoreo ", Operators: "x1.5", InitialNumber: dec("100")})
	if err != nil {
		t.Fatalf("CreateFormula error: %v", err)
	}
	if f.Name != "Mayoreo" || !f.FinalNumber.Equal(dec("150")) {
		t.Fatalf("expected Mayoreo with final 150, got %q %s", f.Name, f.FinalNumber)
	}
	if n := countRows(t, &OutboxEvent{}, "reference_type = ?", ReferenceTypeFormula); n != 1 {
		t.Fatalf("expected 1 outbox event, got %d", n)
	}
}

func TestCreateFormula_Rejects(t *testing.T) {
	ctx := setupTestDB(t)

	if _, err := CreateFormula(ctx, &NewFormula{Name: "Cero", Operators: "/0", InitialNumber: dec("100")}); !errors.Is(err, pos.ErrInvalidFormulaResult) {
		t.Fatalf("expected ErrInvalidFormulaResult, got %v", err)
	}
	if _, err := CreateFormula(ctx, &NewFormula{Operators: "+10"}); err == nil {
		t.Fatalf("expected error for missing name")
	}
	if _, err := CreateFormula(ctx, &NewFormula{Name: "Texto", Operators: "abc"}); err == nil {
		t.Fatalf("expected error for formula without operators")
	}
	if n := countRows(t, &Formula{}, ""); n != 0 {
		t.Fatalf("expected no stored formulas, got %d", n)
	}
}

func TestCreateFormula_StrictValidation(t *testing.T) {
	ctx := setupTestDB(t)

	f, err := CreateFormula(ctx, &NewFormula{Name: "Lenient", Operators: "+10 abc", InitialNumber: dec("100")})
	if err != nil {
		t.Fatalf("lenient mode should skip unknown text, got %v", err)
	}
	if !f.FinalNumber.Equal(dec("110")) {
		t.Fatalf("expected final 110, got %s", f.FinalNumber)
	}

	t.Setenv("STRICT_FORMULA_VALIDATION", "true")
	if _, err := CreateFormula(ctx, &NewFormula{Name: "Strict", Operators: "+10 abc", InitialNumber: dec("100")}); !errors.Is(err, pos.ErrMalformedFormulaToken) {
		t.Fatalf("expected ErrMalformedFormulaToken, got %v", err)
	}
}

func TestCreateFormula_PercentModeOverride(t *testing.T) {
	ctx := setupTestDB(t)

	literal, err := CreateFormula(ctx, &NewFormula{Name: "Literal", Operators: "+10%", InitialNumber: dec("200")})
	if err != nil {
		t.Fatalf("CreateFormula error: %v", err)
	}
	if !literal.FinalNumber.Equal(dec("200.1")) {
		t.Fatalf("expected literal 200.1, got %s", literal.FinalNumber)
	}

	mode := "relative"
	relative, err := CreateFormula(ctx, &NewFormula{Name: "Relativa", Operators: "+10%", InitialNumber: dec("200"), PercentMode: &mode})
	if err != nil {
		t.Fatalf("CreateFormula error: %v", err)
	}
	if !relative.FinalNumber.Equal(dec("220")) {
		t.Fatalf("expected relative 220, got %s", relative.FinalNumber)
	}

	t.Setenv("FORMULA_PERCENT_MODE", "relative")
	global, err := CreateFormula(ctx, &NewFormula{Name: "Global", Operators: "+10%", InitialNumber: dec("200")})
	if err != nil {
		t.Fatalf("CreateFormula error: %v", err)
	}
	if !global.FinalNumber.Equal(dec("220")) {
		t.Fatalf("expected env relative 220, got %s", global.FinalNumber)
	}
}

func TestUpdateFormula_RepricesAutomaticItems(t *testing.T) {
	ctx := setupTestDB(t)

	f, err := CreateFormula(ctx, &NewFormula{Name: "Mayoreo", Operators: "x1.5", InitialNumber: dec("100")})
	if err != nil {
		t.Fatalf("CreateFormula error: %v", err)
	}
	auto := createTestItem(t, ctx, &NewInventoryItem{Product: "Sala", PriceCost: dec("100"), FormulaId: &f.ID})
	if !auto.CerroAzulPrice.Equal(dec("150")) || !auto.AquismonPrice.Equal(dec("160")) {
		t.Fatalf("expected 150/160 before update, got %s/%s", auto.CerroAzulPrice, auto.AquismonPrice)
	}
	manual := createTestItem(t, ctx, &NewInventoryItem{
		Product:         "Comedor",
		PriceCost:       dec("100"),
		FormulaId:       &f.ID,
		ManualPricing:   true,
		InventoryPrices: InventoryPrices{CerroAzulPrice: dec("999")},
	})

	updated, changed, err := UpdateFormula(ctx, f.ID, &NewFormula{Name: "Mayoreo", Operators: "x2", InitialNumber: dec("100")})
	if err != nil {
		t.Fatalf("UpdateFormula error: %v", err)
	}
	if changed != 1 || !updated.FinalNumber.Equal(dec("200")) {
		t.Fatalf("expected 1 repriced item and final 200, got %d %s", changed, updated.FinalNumber)
	}

	got, _ := GetInventoryItem(ctx, auto.ID)
	if !got.CerroAzulPrice.Equal(dec("200")) || !got.CerroAzulMsiPrice.Equal(dec("220")) || !got.CerroAzulCreditPrice.Equal(dec("310")) {
		t.Fatalf("expected 200/220/310, got %s/%s/%s", got.CerroAzulPrice, got.CerroAzulMsiPrice, got.CerroAzulCreditPrice)
	}
	untouched, _ := GetInventoryItem(ctx, manual.ID)
	if !untouched.CerroAzulPrice.Equal(dec("999")) {
		t.Fatalf("manual item should keep 999, got %s", untouched.CerroAzulPrice)
	}
	if n := countRows(t, &PriceHistory{}, "inventory_item_id = ? AND source = ?", auto.ID, PriceSourceDerived); n != 8 {
		t.Fatalf("expected 8 history rows for the automatic item, got %d", n)
	}
}

func TestDeleteFormula_DetachesItems(t *testing.T) {
	ctx := setupTestDB(t)

	f, err := CreateFormula(ctx, &NewFormula{Name: "Mayoreo", Operators: "x1.5", InitialNumber: dec("100")})
	if err != nil {
		t.Fatalf("CreateFormula error: %v", err)
	}
	item := createTestItem(t, ctx, &NewInventoryItem{Product: "Sala", PriceCost: dec("100"), FormulaId: &f.ID})

	if _, err := DeleteFormula(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFormula error: %v", err)
	}
	if _, err := GetFormula(ctx, f.ID); !errors.Is(err, ErrFormulaNotFound) {
		t.Fatalf("expected ErrFormulaNotFound, got %v", err)
	}
	got, _ := GetInventoryItem(ctx, item.ID)
	if got.FormulaId != nil || !got.CerroAzulPrice.Equal(dec("150")) {
		t.Fatalf("expected detached item with prices kept, got formula=%v price=%s", got.FormulaId, got.CerroAzulPrice)
	}
}
