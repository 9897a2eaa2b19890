package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/middlewares"
	"github.com/huastex/huastex_backend/models"
)

type saleResponse struct {
	*models.Sale
	Inventory []*models.InventoryItem `json:"inventory"`
}

// withInventory attaches the inventory items referenced by the sale lines.
func withInventory(c *gin.Context, sale *models.Sale) saleResponse {
	resp := saleResponse{Sale: sale, Inventory: []*models.InventoryItem{}}
	ids := make([]int, 0, len(sale.Products))
	seen := make(map[int]bool)
	for _, line := range sale.Products {
		if line.InventoryItemId != nil && !seen[*line.InventoryItemId] {
			seen[*line.InventoryItemId] = true
			ids = append(ids, *line.InventoryItemId)
		}
	}
	if len(ids) == 0 {
		return resp
	}
	items, errs := middlewares.GetInventoryItems(c.Request.Context(), ids)
	logLoaderErrors(c, "withInventory", ids, errs)
	for i, item := range items {
		if item == nil || (len(errs) > i && errs[i] != nil) {
			continue
		}
		resp.Inventory = append(resp.Inventory, item)
	}
	return resp
}

func (h *Handler) listSales() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "listSales")
		defer span.End()

		sales, err := models.ListSales(ctx, c.Query("location"), c.Query("search"))
		if err != nil {
			respondError(c, span, "listSales", c.Request.URL.RawQuery, err, false)
			return
		}
		c.JSON(http.StatusOK, sales)
	}
}

func (h *Handler) getSale() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "getSale")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		sale, err := models.GetSale(ctx, id)
		if err != nil {
			respondError(c, span, "getSale", id, err, false)
			return
		}
		c.JSON(http.StatusOK, withInventory(c, sale))
	}
}

func (h *Handler) createSale() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "createSale")
		defer span.End()

		var input models.NewSale
		if !bindJSON(c, &input) {
			return
		}
		sale, err := models.CreateSale(ctx, &input)
		if err != nil {
			respondError(c, span, "createSale", input, err, true)
			return
		}
		c.JSON(http.StatusCreated, withInventory(c, sale))
	}
}

func (h *Handler) updateSale() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "updateSale")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.NewSale
		if !bindJSON(c, &input) {
			return
		}
		sale, err := models.UpdateSale(ctx, id, &input)
		if err != nil {
			respondError(c, span, "updateSale", input, err, true)
			return
		}
		c.JSON(http.StatusOK, withInventory(c, sale))
	}
}

func (h *Handler) deleteSale() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "deleteSale")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		sale, err := models.DeleteSale(ctx, id)
		if err != nil {
			respondError(c, span, "deleteSale", id, err, true)
			return
		}
		c.JSON(http.StatusOK, sale)
	}
}
