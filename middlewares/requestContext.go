package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/huastex/huastex_backend/pos"
	"github.com/huastex/huastex_backend/utils"
)

const (
	HeaderCorrelationId = "x-correlation-id"
	HeaderBranch        = "x-branch"
	HeaderCashier       = "x-cashier"
)

// CorrelationMiddleware generates a correlation id once per request and echoes it back.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(HeaderCorrelationId)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(HeaderCorrelationId, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

// SessionMiddleware scopes the request to the branch and cashier the
// storefront sends. Without a branch header every store is visible.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if raw := strings.TrimSpace(c.GetHeader(HeaderBranch)); raw != "" && !strings.EqualFold(raw, "all") {
			branch, err := pos.ParseBranch(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid branch header: " + raw})
				c.Abort()
				return
			}
			ctx = utils.SetBranchInContext(ctx, string(branch))
		}
		if cashier := strings.TrimSpace(c.GetHeader(HeaderCashier)); cashier != "" {
			ctx = utils.SetCashierNameInContext(ctx, cashier)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
