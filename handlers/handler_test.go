package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/middlewares"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/models/reports"
	"github.com/huastex/huastex_backend/pos"
)

func TestSaleAndPaymentFlow(t *testing.T) {
	r := setupRouter(t)
	sale := createSale(t, r)

	if !sale.SaldoPrecioPromocion.Equal(dec("322")) || !sale.SaldoPrecioNormal.Equal(dec("384.64")) {
		t.Fatalf("expected balances 322/384.64, got %s/%s", sale.SaldoPrecioPromocion, sale.SaldoPrecioNormal)
	}
	if len(sale.Inventory) != 1 || sale.Inventory[0].Product != "Sala Roma" {
		t.Fatalf("expected the sold item attached, got %+v", sale.Inventory)
	}

	body := map[string]any{"saleId": sale.ID, "cantidad": "100", "cajero": "Ana"}
	headers := map[string]string{"Idempotency-Key": "abono-1"}
	w := do(t, r, http.MethodPost, "/payments/add", body, headers)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /payments/add expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var first paymentResponse
	decode(t, w, &first)
	if first.Replayed || !first.Sale.SaldoPrecioPromocion.Equal(dec("222")) || !first.Sale.SaldoPrecioNormal.Equal(dec("284.64")) {
		t.Fatalf("unexpected first payment response %+v", first)
	}

	w = do(t, r, http.MethodPost, "/payments/add", body, headers)
	if w.Code != http.StatusOK {
		t.Fatalf("replayed POST /payments/add expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var again paymentResponse
	decode(t, w, &again)
	if !again.Replayed || again.Payment.ID != first.Payment.ID {
		t.Fatalf("expected replay of payment %d, got %+v", first.Payment.ID, again)
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/payments?sale_id=%d", sale.ID), nil, nil)
	var payments []models.Payment
	decode(t, w, &payments)
	if w.Code != http.StatusOK || len(payments) != 1 {
		t.Fatalf("expected 1 payment, got %d (%d)", len(payments), w.Code)
	}

	w = do(t, r, http.MethodGet, fmt.Sprintf("/sales/%d", sale.ID), nil, nil)
	var stored saleResponse
	decode(t, w, &stored)
	if !stored.SaldoPrecioPromocion.Equal(dec("222")) {
		t.Fatalf("expected stored balance 222, got %s", stored.SaldoPrecioPromocion)
	}

	other := createSale(t, r)
	reused := map[string]any{"saleId": other.ID, "cantidad": "100", "cajero": "Ana"}
	if w := do(t, r, http.MethodPost, "/payments/add", reused, headers); w.Code != http.StatusConflict {
		t.Fatalf("key reused on another sale expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestErrorStatusCodes(t *testing.T) {
	r := setupRouter(t)
	sale := createSale(t, r)

	badSale := creditSaleBody(sale.Inventory[0].ID)
	badSale["email"] = "sin-correo"
	staleEdit := creditSaleBody(sale.Inventory[0].ID)
	staleEdit["enganche"] = 300

	w := do(t, r, http.MethodGet, fmt.Sprintf("/transactions/sale/%d", sale.ID), nil, nil)
	var income models.Transaction
	decode(t, w, &income)

	cases := []struct {
		name     string
		method   string
		path     string
		body     any
		expected int
	}{
		{"missing sale", http.MethodGet, "/sales/999", nil, http.StatusNotFound},
		{"non numeric id", http.MethodGet, "/sales/abc", nil, http.StatusBadRequest},
		{"invalid email", http.MethodPost, "/sales/add", badSale, http.StatusBadRequest},
		{"payment on missing sale", http.MethodPost, "/payments/add", map[string]any{"saleId": 999, "cantidad": "10", "cajero": "Ana"}, http.StatusNotFound},
		{"sale income row is managed", http.MethodDelete, fmt.Sprintf("/transactions/%d", income.ID), nil, http.StatusConflict},
		{"amount edit without recalculate", http.MethodPut, fmt.Sprintf("/sales/%d", sale.ID), staleEdit, http.StatusConflict},
		{"payments need a sale", http.MethodGet, "/payments", nil, http.StatusBadRequest},
		{"bad report date", http.MethodGet, "/reports/daily?date=15/03/2024", nil, http.StatusBadRequest},
		{"day not counted", http.MethodGet, "/daily-accounting?date=2024-03-15&location=aquismon", nil, http.StatusNotFound},
	}
	for _, tc := range cases {
		w := do(t, r, tc.method, tc.path, tc.body, nil)
		if w.Code != tc.expected {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.expected, w.Code, w.Body.String())
		}
	}
}

func TestSessionMiddleware(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/sales", nil, map[string]string{middlewares.HeaderBranch: "Xalapa"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown branch expected 400, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/sales", nil, map[string]string{middlewares.HeaderCorrelationId: "cid-1"})
	if got := w.Header().Get(middlewares.HeaderCorrelationId); got != "cid-1" {
		t.Fatalf("expected correlation id echoed, got %q", got)
	}
	w = do(t, r, http.MethodGet, "/sales", nil, nil)
	if w.Header().Get(middlewares.HeaderCorrelationId) == "" {
		t.Fatalf("expected a generated correlation id")
	}

	createSale(t, r)
	var sales []models.Sale
	w = do(t, r, http.MethodGet, "/sales", nil, map[string]string{middlewares.HeaderBranch: "Cerro Azul"})
	decode(t, w, &sales)
	if len(sales) != 0 {
		t.Fatalf("cerro azul should not see aquismon sales, got %d", len(sales))
	}
	w = do(t, r, http.MethodGet, "/sales", nil, map[string]string{middlewares.HeaderBranch: "aquismon"})
	decode(t, w, &sales)
	if len(sales) != 1 {
		t.Fatalf("aquismon expected 1 sale, got %d", len(sales))
	}
}

func TestDailyReportAndExport(t *testing.T) {
	r := setupRouter(t)
	createSale(t, r)

	outcome := map[string]any{
		"transaction_type": "outcome",
		"name":             "Gasolina",
		"value":            "50",
		"transaction_date": "2024-03-15",
		"location":         "Aquismon",
	}
	if w := do(t, r, http.MethodPost, "/transactions", outcome, map[string]string{middlewares.HeaderCashier: "Ana"}); w.Code != http.StatusCreated {
		t.Fatalf("POST /transactions expected 201, got %d: %s", w.Code, w.Body.String())
	}
	counted := map[string]any{"location": "aquismon", "counted_amount": "100", "cashier_name": "Ana"}
	if w := do(t, r, http.MethodPut, "/daily-accounting/2024-03-15", counted, nil); w.Code != http.StatusOK {
		t.Fatalf("PUT /daily-accounting expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w := do(t, r, http.MethodGet, "/reports/daily?date=2024-03-15&location=aquismon", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /reports/daily expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var report reports.DailyCashReport
	decode(t, w, &report)
	if !report.TotalIn.Equal(dec("200")) || !report.TotalOut.Equal(dec("50")) || !report.Net.Equal(dec("150")) {
		t.Fatalf("expected in/out/net 200/50/150, got %s/%s/%s", report.TotalIn, report.TotalOut, report.Net)
	}
	if report.Difference == nil || !report.Difference.Equal(dec("-50")) {
		t.Fatalf("expected difference -50, got %v", report.Difference)
	}
	if len(report.Transactions) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(report.Transactions))
	}

	w = do(t, r, http.MethodGet, "/reports/daily/export?date=2024-03-15&location=aquismon", nil, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("export expected xlsx, got %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Fatalf("export body is not a zip container")
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "corte-aquismon-2024-03-15.xlsx") {
		t.Fatalf("unexpected disposition %q", w.Header().Get("Content-Disposition"))
	}
}

func TestFormulaAndPricingEndpoints(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/inventory/preview-prices", map[string]any{"price_cost": "173"}, nil)
	var preview previewPricesResponse
	decode(t, w, &preview)
	if w.Code != http.StatusOK || !preview.Derived || !preview.Prices[pos.BranchAquismon].Cash.Equal(dec("190")) {
		t.Fatalf("unexpected preview %d %+v", w.Code, preview)
	}

	w = do(t, r, http.MethodPost, "/formulas", map[string]any{"name": "Doble", "operators": "x2", "initialNumber": "100"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /formulas expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var formula models.Formula
	decode(t, w, &formula)
	if !formula.FinalNumber.Equal(dec("200")) {
		t.Fatalf("expected final number 200, got %s", formula.FinalNumber)
	}

	item := map[string]any{"product": "Comedor", "price_cost": "100", "formula_id": formula.ID}
	if w := do(t, r, http.MethodPost, "/inventory", item, nil); w.Code != http.StatusCreated {
		t.Fatalf("POST /inventory expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w = do(t, r, http.MethodGet, "/inventory?search=Comedor", nil, nil)
	var items []inventoryItemResponse
	decode(t, w, &items)
	if len(items) != 1 || items[0].FormulaName != "Doble" || !items[0].CerroAzulPrice.Equal(dec("200")) {
		t.Fatalf("unexpected inventory listing %+v", items)
	}

	w = do(t, r, http.MethodPost, fmt.Sprintf("/formulas/%d/reprice", formula.ID), nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reprice expected 200, got %d: %s", w.Code, w.Body.String())
	}

	if w := do(t, r, http.MethodPost, "/formulas", map[string]any{"name": "", "operators": "x2"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("nameless formula expected 400, got %d", w.Code)
	}
}

func TestOutboxOps(t *testing.T) {
	r := setupRouter(t)
	sale := createSale(t, r)

	w := do(t, r, http.MethodGet, fmt.Sprintf("/internal/ops/outbox/sale/%d", sale.ID), nil, nil)
	var status models.OutboxStatus
	decode(t, w, &status)
	if w.Code != http.StatusOK || status.PublishStatus != models.OutboxPublishStatusPending || status.ReferenceId != sale.ID {
		t.Fatalf("unexpected outbox status %d %+v", w.Code, status)
	}

	replay := map[string]any{"reference_type": "sale", "reference_id": sale.ID}
	if w := do(t, r, http.MethodPost, "/internal/ops/outbox/replay", replay, nil); w.Code != http.StatusNotFound {
		t.Fatalf("nothing to replay expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodPost, "/internal/ops/outbox/replay", map[string]any{"reference_type": "sale"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing reference_id expected 400, got %d", w.Code)
	}
}

func TestLogLoaderErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/inventory", nil)

	cases := []struct {
		name     string
		errs     []error
		expected int
	}{
		{"no errors", nil, 0},
		{"all loaded", []error{nil, nil}, 0},
		{"one failed", []error{nil, errors.New("connection reset")}, 1},
		{"more errors than ids", []error{errors.New("a"), errors.New("b"), errors.New("c")}, 3},
	}
	for _, tc := range cases {
		if got := logLoaderErrors(c, "withFormulaNames", []int{1, 2}, tc.errs); got != tc.expected {
			t.Fatalf("%s: expected %d failures, got %d", tc.name, tc.expected, got)
		}
	}
}
