package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/models"
)

func (h *Handler) listTransactions() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "listTransactions")
		defer span.End()

		date, ok := queryDate(c, c.Query("date"))
		if !ok {
			return
		}
		rows, err := models.ListTransactions(ctx, c.Query("location"), date)
		if err != nil {
			respondError(c, span, "listTransactions", c.Request.URL.RawQuery, err, false)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func (h *Handler) getTransaction() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "getTransaction")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		row, err := models.GetTransaction(ctx, id)
		if err != nil {
			respondError(c, span, "getTransaction", id, err, false)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func (h *Handler) getTransactionBySale() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "getTransactionBySale")
		defer span.End()

		saleId, ok := paramId(c, "saleId")
		if !ok {
			return
		}
		row, err := models.GetTransactionBySaleId(ctx, saleId)
		if err != nil {
			respondError(c, span, "getTransactionBySale", saleId, err, false)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func (h *Handler) createTransaction() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "createTransaction")
		defer span.End()

		var input models.NewTransaction
		if !bindJSON(c, &input) {
			return
		}
		row, err := models.CreateTransaction(ctx, &input)
		if err != nil {
			respondError(c, span, "createTransaction", input, err, true)
			return
		}
		c.JSON(http.StatusCreated, row)
	}
}

func (h *Handler) updateTransaction() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "updateTransaction")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.NewTransaction
		if !bindJSON(c, &input) {
			return
		}
		row, err := models.UpdateTransaction(ctx, id, &input)
		if err != nil {
			respondError(c, span, "updateTransaction", input, err, true)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func (h *Handler) deleteTransaction() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "deleteTransaction")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		row, err := models.DeleteTransaction(ctx, id)
		if err != nil {
			respondError(c, span, "deleteTransaction", id, err, true)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}
