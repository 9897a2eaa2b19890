package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/workflow"
)

type paymentResponse struct {
	Payment  *models.Payment `json:"payment"`
	Sale     *models.Sale    `json:"sale"`
	Replayed bool            `json:"replayed"`
}

// registerPayment records an abono. A retried request carrying the same
// Idempotency-Key answers the first result with 200.
func (h *Handler) registerPayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "registerPayment")
		defer span.End()

		var input models.NewPayment
		if !bindJSON(c, &input) {
			return
		}
		if input.IdempotencyKey == "" {
			input.IdempotencyKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		}
		payment, sale, replayed, err := workflow.RegisterPayment(ctx, &input)
		if err != nil {
			respondError(c, span, "registerPayment", input, err, true)
			return
		}
		status := http.StatusCreated
		if replayed {
			status = http.StatusOK
		}
		c.JSON(status, paymentResponse{Payment: payment, Sale: sale, Replayed: replayed})
	}
}

func (h *Handler) listPayments() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "listPayments")
		defer span.End()

		saleId, err := strconv.Atoi(c.Query("sale_id"))
		if err != nil || saleId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sale_id is required"})
			return
		}
		payments, err := models.ListPayments(ctx, saleId)
		if err != nil {
			respondError(c, span, "listPayments", saleId, err, false)
			return
		}
		c.JSON(http.StatusOK, payments)
	}
}
