package models

import (
	"log"

	"github.com/huastex/huastex_backend/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := AutoMigrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Formula{}, &InventoryItem{}, &PriceHistory{},
		&Sale{}, &SaleProduct{}, &Payment{},
		&Transaction{}, &DailyAccounting{},
		&OutboxEvent{}, &IdempotencyKey{},
	)
}
