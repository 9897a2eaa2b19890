// Package handlers exposes the storefront REST endpoints on a gin router.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/utils"
	"github.com/huastex/huastex_backend/workflow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const tracerName = "huastex-backend"

type Handler struct {
	Tracer trace.Tracer
}

func New(tracer trace.Tracer) *Handler {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Handler{Tracer: tracer}
}

// Register mounts every endpoint the storefront calls.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/formulas", h.listFormulas())
	r.POST("/formulas", h.createFormula())
	r.GET("/formulas/:id", h.getFormula())
	r.PUT("/formulas/:id", h.updateFormula())
	r.DELETE("/formulas/:id", h.deleteFormula())
	r.POST("/formulas/:id/reprice", h.repriceInventory())

	r.GET("/inventory", h.listInventory())
	r.POST("/inventory", h.createInventoryItem())
	r.POST("/inventory/preview-prices", h.previewPrices())
	r.POST("/inventory/reprice", h.repriceInventory())
	r.GET("/inventory/:id", h.getInventoryItem())
	r.PUT("/inventory/:id", h.updateInventoryItem())
	r.DELETE("/inventory/:id", h.deleteInventoryItem())
	r.GET("/inventory/:id/price-history", h.listPriceHistory())

	r.GET("/sales", h.listSales())
	r.POST("/sales", h.createSale())
	r.POST("/sales/add", h.createSale())
	r.GET("/sales/:id", h.getSale())
	r.PUT("/sales/:id", h.updateSale())
	r.DELETE("/sales/:id", h.deleteSale())

	r.GET("/payments", h.listPayments())
	r.POST("/payments/add", h.registerPayment())

	r.GET("/transactions", h.listTransactions())
	r.POST("/transactions", h.createTransaction())
	r.GET("/transactions/sale/:saleId", h.getTransactionBySale())
	r.GET("/transactions/:id", h.getTransaction())
	r.PUT("/transactions/:id", h.updateTransaction())
	r.DELETE("/transactions/:id", h.deleteTransaction())

	r.GET("/daily-accounting", h.getDailyAccounting())
	r.PUT("/daily-accounting/:date", h.upsertDailyAccounting())

	r.GET("/reports/daily", h.dailyReport())
	r.GET("/reports/daily/export", h.exportDailyReport())

	r.GET("/internal/ops/outbox/:type/:id", h.getOutboxStatus())
	r.POST("/internal/ops/outbox/replay", h.replayOutbox())
}

func (h *Handler) span(c *gin.Context, name string) (context.Context, trace.Span) {
	return h.Tracer.Start(c.Request.Context(), "handlers."+name)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, utils.ErrorRecordNotFound) ||
		errors.Is(err, models.ErrFormulaNotFound) ||
		errors.Is(err, models.ErrInventoryItemNotFound) ||
		errors.Is(err, models.ErrSaleNotFound) ||
		errors.Is(err, models.ErrTransactionNotFound) ||
		errors.Is(err, models.ErrOutboxEventNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, utils.ErrorResourceLocked) ||
		errors.Is(err, workflow.ErrIdempotencyInProgress) ||
		errors.Is(err, models.ErrTransactionManagedBySale) ||
		errors.Is(err, models.ErrSaleRecalculateRequired) ||
		errors.Is(err, workflow.ErrIdempotencyKeyReused)
}

// respondError maps a failure to a status code. Writes answer 400 with the
// message (the storefront shows it to the cashier); reads answer 500.
func respondError(c *gin.Context, span trace.Span, funcName string, data any, err error, write bool) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	status := http.StatusInternalServerError
	switch {
	case isNotFound(err):
		status = http.StatusNotFound
	case isConflict(err):
		status = http.StatusConflict
	case write:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "handlers", funcName, c.Request.URL.Path, data, err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// logLoaderErrors logs the failed keys of a batched lookup and returns how many failed.
// The response is still rendered with whatever loaded.
func logLoaderErrors(c *gin.Context, funcName string, ids []int, errs []error) int {
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		var id any
		if i < len(ids) {
			id = ids[i]
		}
		config.LogError(config.GetLogger(), "handlers", funcName, c.Request.URL.Path, id, err)
	}
	return failed
}

func paramId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return false
	}
	return true
}

// queryDate reads ?date=YYYY-MM-DD, defaulting to today.
func queryDate(c *gin.Context, raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return utils.DateOnly(time.Now().UTC()), true
	}
	date, err := utils.ParseDate(raw, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date: " + raw})
		return time.Time{}, false
	}
	return date, true
}
