package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/middlewares"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/pos"
	"github.com/huastex/huastex_backend/utils"
	"github.com/shopspring/decimal"
)

type inventoryItemResponse struct {
	*models.InventoryItem
	FormulaName string `json:"formula_name,omitempty"`
}

type previewPricesRequest struct {
	PriceCost decimal.Decimal `json:"price_cost"`
	FormulaId *int            `json:"formula_id"`
	Operators string          `json:"operators"`
}

type previewPricesResponse struct {
	Derived bool           `json:"derived"`
	Prices  pos.PriceTable `json:"prices"`
}

// withFormulaNames batches the formula lookups of a page of items.
func withFormulaNames(c *gin.Context, items []*models.InventoryItem) []inventoryItemResponse {
	ids := make([]int, 0, len(items))
	for _, item := range items {
		if item.FormulaId != nil {
			ids = append(ids, *item.FormulaId)
		}
	}
	names := make(map[int]string)
	if len(ids) > 0 {
		ids = utils.UniqueSlice(ids)
		formulas, errs := middlewares.GetFormulas(c.Request.Context(), ids)
		logLoaderErrors(c, "withFormulaNames", ids, errs)
		for _, f := range formulas {
			if f != nil {
				names[f.ID] = f.Name
			}
		}
	}
	out := make([]inventoryItemResponse, 0, len(items))
	for _, item := range items {
		resp := inventoryItemResponse{InventoryItem: item}
		if item.FormulaId != nil {
			resp.FormulaName = names[*item.FormulaId]
		}
		out = append(out, resp)
	}
	return out
}

func (h *Handler) listInventory() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "listInventory")
		defer span.End()

		items, err := models.ListInventoryItems(ctx, c.Query("search"))
		if err != nil {
			respondError(c, span, "listInventory", c.Query("search"), err, false)
			return
		}
		c.JSON(http.StatusOK, withFormulaNames(c, items))
	}
}

func (h *Handler) getInventoryItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "getInventoryItem")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		item, err := models.GetInventoryItem(ctx, id)
		if err != nil {
			respondError(c, span, "getInventoryItem", id, err, false)
			return
		}
		c.JSON(http.StatusOK, withFormulaNames(c, []*models.InventoryItem{item})[0])
	}
}

func (h *Handler) createInventoryItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "createInventoryItem")
		defer span.End()

		var input models.NewInventoryItem
		if !bindJSON(c, &input) {
			return
		}
		item, err := models.CreateInventoryItem(ctx, &input)
		if err != nil {
			respondError(c, span, "createInventoryItem", input, err, true)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func (h *Handler) updateInventoryItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "updateInventoryItem")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.NewInventoryItem
		if !bindJSON(c, &input) {
			return
		}
		item, err := models.UpdateInventoryItem(ctx, id, &input)
		if err != nil {
			respondError(c, span, "updateInventoryItem", input, err, true)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func (h *Handler) deleteInventoryItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "deleteInventoryItem")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		item, err := models.DeleteInventoryItem(ctx, id)
		if err != nil {
			respondError(c, span, "deleteInventoryItem", id, err, true)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func (h *Handler) listPriceHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "listPriceHistory")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		rows, err := models.ListPriceHistory(ctx, id)
		if err != nil {
			respondError(c, span, "listPriceHistory", id, err, false)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

// previewPrices lets the inventory form show derived prices while typing.
func (h *Handler) previewPrices() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "previewPrices")
		defer span.End()

		var req previewPricesRequest
		if !bindJSON(c, &req) {
			return
		}
		table, derived, err := models.PreviewPrices(ctx, req.PriceCost, req.FormulaId, req.Operators)
		if err != nil {
			respondError(c, span, "previewPrices", req, err, true)
			return
		}
		c.JSON(http.StatusOK, previewPricesResponse{Derived: derived, Prices: table})
	}
}
