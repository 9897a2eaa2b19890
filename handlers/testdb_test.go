package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/middlewares"
	"github.com/huastex/huastex_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupRouter installs an in-memory database and the same middleware chain
// the server uses, minus the readiness gate.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)
	config.InstallPlugins(conn)
	if err := models.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	previous := config.GetDB()
	config.UseDB(conn)
	t.Cleanup(func() {
		config.UseDB(previous)
		_ = sqlDB.Close()
	})

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware(), middlewares.SessionMiddleware(), middlewares.LoaderMiddleware())
	New(nil).Register(r)
	return r
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func do(t *testing.T, r *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

// creditSaleBody is a 2-unit credit sale at Aquismon: balances 322 / 384.64.
func creditSaleBody(itemId int) map[string]any {
	return map[string]any{
		"nombre":      "María López",
		"email":       "maria@correo.com",
		"phone":       "55 1234 5678",
		"fecha":       "2024-03-15",
		"formaDePago": "Crédito",
		"sucursal":    "Aquismon",
		"products": []map[string]any{
			{"inventory_id": itemId, "quantity": 2},
		},
		"discount": 10,
		"enganche": 200,
		"plazo":    map[string]any{"value": 3, "unit": "months"},
	}
}

func createItem(t *testing.T, r *gin.Engine) *models.InventoryItem {
	t.Helper()
	w := do(t, r, http.MethodPost, "/inventory", map[string]any{"product": "Sala Roma", "price_cost": "173"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /inventory expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var item models.InventoryItem
	decode(t, w, &item)
	return &item
}

func createSale(t *testing.T, r *gin.Engine) saleResponse {
	t.Helper()
	item := createItem(t, r)
	w := do(t, r, http.MethodPost, "/sales/add", creditSaleBody(item.ID), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /sales/add expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var sale saleResponse
	decode(t, w, &sale)
	return sale
}
