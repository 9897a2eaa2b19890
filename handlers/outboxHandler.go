package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/models"
)

type outboxReplayRequest struct {
	ReferenceType string `json:"reference_type" binding:"required"`
	ReferenceId   int    `json:"reference_id" binding:"required,gt=0"`
}

func (h *Handler) getOutboxStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "getOutboxStatus")
		defer span.End()

		id, ok := paramId(c, "id")
		if !ok {
			return
		}
		refType := models.ReferenceType(strings.ToUpper(c.Param("type")))
		status, err := models.GetOutboxStatus(ctx, refType, id)
		if err != nil {
			respondError(c, span, "getOutboxStatus", id, err, false)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// replayOutbox re-queues the FAILED or DEAD sales events of one document.
func (h *Handler) replayOutbox() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "replayOutbox")
		defer span.End()

		var req outboxReplayRequest
		if !bindJSON(c, &req) {
			return
		}
		refType := models.ReferenceType(strings.ToUpper(strings.TrimSpace(req.ReferenceType)))
		status, err := models.ReprocessOutbox(ctx, refType, req.ReferenceId)
		if err != nil {
			respondError(c, span, "replayOutbox", req, err, true)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
