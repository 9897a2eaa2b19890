package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/workflow"
)

func (h *Handler) listFormulas() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "listFormulas")
		defer span.End()

		formulas, err := models.ListFormulas(ctx)
		if err != nil {
			respondError(c, span, "listFormulas", nil, err, false)
			return
		}
		c.JSON(http.StatusOK, formulas)
	}
}

func (h *Handler) getFormula() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "getFormula")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		formula, err := models.GetFormula(ctx, id)
		if err != nil {
			respondError(c, span, "getFormula", id, err, false)
			return
		}
		c.JSON(http.StatusOK, formula)
	}
}

func (h *Handler) createFormula() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "createFormula")
		defer span.End()

		var input models.NewFormula
		if !bindJSON(c, &input) {
			return
		}
		formula, err := models.CreateFormula(ctx, &input)
		if err != nil {
			respondError(c, span, "createFormula", input, err, true)
			return
		}
		c.JSON(http.StatusCreated, formula)
	}
}

// updateFormula answers the formula plus how many automatic-mode items were re-priced.
func (h *Handler) updateFormula() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "updateFormula")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		var input models.NewFormula
		if !bindJSON(c, &input) {
			return
		}
		formula, repriced, err := models.UpdateFormula(ctx, id, &input)
		if err != nil {
			respondError(c, span, "updateFormula", input, err, true)
			return
		}
		c.JSON(http.StatusOK, gin.H{"formula": formula, "repriced": repriced})
	}
}

func (h *Handler) deleteFormula() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "deleteFormula")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		formula, err := models.DeleteFormula(ctx, id)
		if err != nil {
			respondError(c, span, "deleteFormula", id, err, true)
			return
		}
		c.JSON(http.StatusOK, formula)
	}
}

// repriceInventory serves both /formulas/:id/reprice and /inventory/reprice
// (optionally ?formula_id=).
func (h *Handler) repriceInventory() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "repriceInventory")
		defer span.End()

		var formulaId *int
		raw := c.Param("id")
		if raw == "" {
			raw = c.Query("formula_id")
		}
		if raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil || id <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid formula id"})
				return
			}
			formulaId = &id
		}
		count, err := workflow.RepriceInventory(ctx, formulaId)
		if err != nil {
			respondError(c, span, "repriceInventory", formulaId, err, true)
			return
		}
		c.JSON(http.StatusOK, gin.H{"repriced": count})
	}
}
