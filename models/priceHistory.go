package models

import (
	"context"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/pos"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceHistory rows are immutable; one is written per branch whose prices changed.
type PriceHistory struct {
	ID              int             `gorm:"primary_key" json:"id"`
	InventoryItemId int             `gorm:"index;not null" json:"inventory_item_id"`
	Branch          pos.Branch      `gorm:"size:30;not null" json:"branch"`
	PriceCost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price_cost"`
	CashPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cash_price"`
	MsiPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"msi_price"`
	CreditPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"credit_price"`
	FormulaId       *int            `json:"formula_id"`
	Source          PriceSource     `gorm:"size:20;not null" json:"source"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func recordPriceChanges(ctx context.Context, tx *gorm.DB, item *InventoryItem, before pos.PriceTable, source PriceSource) error {
	after := item.PriceTable()
	var rows []PriceHistory
	for _, branch := range pos.Branches {
		old, hadOld := before[branch]
		now := after[branch]
		if hadOld && old.Cash.Equal(now.Cash) && old.MSI.Equal(now.MSI) && old.Credit.Equal(now.Credit) {
			continue
		}
		rows = append(rows, PriceHistory{
			InventoryItemId: item.ID,
			Branch:          branch,
			PriceCost:       item.PriceCost,
			CashPrice:       now.Cash,
			MsiPrice:        now.MSI,
			CreditPrice:     now.Credit,
			FormulaId:       item.FormulaId,
			Source:          source,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&rows).Error
}

func ListPriceHistory(ctx context.Context, inventoryItemId int) ([]*PriceHistory, error) {
	var results []*PriceHistory
	err := config.GetDB().WithContext(ctx).
		Where("inventory_item_id = ?", inventoryItemId).
		Order("id ASC").
		Find(&results).Error
	return results, err
}
