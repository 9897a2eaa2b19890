package models

import (
	"context"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/pos"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// evaluatorFor resolves the percent convention of a stored formula:
// its own percent_mode first, then FORMULA_PERCENT_MODE.
func evaluatorFor(f *Formula) pos.Evaluator {
	mode, err := pos.ParsePercentMode(config.FormulaPercentMode())
	if err != nil {
		mode = pos.PercentLiteral
	}
	if f != nil && f.PercentMode != nil && *f.PercentMode != "" {
		if m, err := pos.ParsePercentMode(*f.PercentMode); err == nil {
			mode = m
		}
	}
	return pos.Evaluator{PercentMode: mode}
}

func deriverFor(f *Formula) pos.Deriver {
	return pos.NewDeriver(evaluatorFor(f))
}

func expressionOf(f *Formula) string {
	if f == nil {
		return ""
	}
	return f.Operators
}

// PreviewPrices derives the price table an item would get, without storing anything.
// The operators argument, when not empty, is used instead of the stored formula's.
func PreviewPrices(ctx context.Context, cost decimal.Decimal, formulaId *int, operators string) (pos.PriceTable, bool, error) {
	var formula *Formula
	if formulaId != nil && *formulaId > 0 {
		f, err := GetFormula(ctx, *formulaId)
		if err != nil {
			return nil, false, err
		}
		formula = f
	}
	expression := expressionOf(formula)
	if operators != "" {
		expression = operators
	}
	table, ok := deriverFor(formula).Derive(cost, expression)
	return table, ok, nil
}

// repriceItemsTx re-derives every automatic-mode item (optionally of one formula)
// and returns how many items changed.
func repriceItemsTx(ctx context.Context, tx *gorm.DB, formulaId *int, source PriceSource) (int, error) {
	var items []InventoryItem
	q := tx.WithContext(ctx).Where("manual_pricing = ?", false)
	if formulaId != nil {
		q = q.Where("formula_id = ?", *formulaId)
	}
	if err := q.Order("id ASC").Find(&items).Error; err != nil {
		return 0, err
	}

	formulas := map[int]*Formula{}
	changed := 0
	for i := range items {
		item := &items[i]
		var formula *Formula
		if item.FormulaId != nil {
			f, ok := formulas[*item.FormulaId]
			if !ok {
				var loaded Formula
				if err := tx.WithContext(ctx).First(&loaded, *item.FormulaId).Error; err == nil {
					f = &loaded
				}
				formulas[*item.FormulaId] = f
			}
			formula = f
		}

		before := item.PriceTable()
		table, ok := deriverFor(formula).Derive(item.PriceCost, expressionOf(formula))
		if !ok || table.Equal(before) {
			continue
		}
		item.SetPriceTable(table)
		if err := tx.WithContext(ctx).Save(item).Error; err != nil {
			return changed, err
		}
		if err := recordPriceChanges(ctx, tx, item, before, source); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// RepriceInventory re-derives automatic-mode prices in one transaction.
func RepriceInventory(ctx context.Context, formulaId *int) (int, error) {
	var changed int
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = repriceItemsTx(ctx, tx, formulaId, PriceSourceReprice)
		return err
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
