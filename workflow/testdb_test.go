package workflow

import (
	"context"
	"testing"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/pos"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) context.Context {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := models.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	previous := config.GetDB()
	config.UseDB(conn)
	t.Cleanup(func() {
		config.UseDB(previous)
		_ = sqlDB.Close()
	})
	return context.Background()
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// createCreditSale stores a credit sale at Aquismon with balances 322 / 384.64.
func createCreditSale(t *testing.T, ctx context.Context) *models.Sale {
	t.Helper()
	item, err := models.CreateInventoryItem(ctx, &models.NewInventoryItem{Product: "Sala Roma", PriceCost: dec("173")})
	if err != nil {
		t.Fatalf("CreateInventoryItem error: %v", err)
	}
	sale, err := models.CreateSale(ctx, &models.NewSale{
		Nombre:      "María López",
		Email:       "maria@correo.com",
		Phone:       "55 1234 5678",
		Fecha:       "2024-03-15",
		FormaDePago: "credito",
		Sucursal:    "aquismon",
		Products:    []models.NewSaleProduct{{InventoryId: &item.ID, Quantity: dec("2")}},
		Discount:    dec("10"),
		Enganche:    dec("200"),
		Plazo:       pos.Term{Value: 3, Unit: pos.TermMonths},
	})
	if err != nil {
		t.Fatalf("CreateSale error: %v", err)
	}
	return sale
}
