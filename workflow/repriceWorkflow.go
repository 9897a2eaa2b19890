package workflow

import (
	"context"
	"strconv"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/utils"
)

const repriceLockTTL = 2 * time.Minute

// RepriceInventory re-derives automatic-mode prices, all items or those of one formula.
// Concurrent reprices of the same scope are rejected with utils.ErrorResourceLocked.
func RepriceInventory(ctx context.Context, formulaId *int) (int, error) {
	lockKey := "all"
	if formulaId != nil {
		lockKey = "formula:" + strconv.Itoa(*formulaId)
		if _, err := models.GetFormula(ctx, *formulaId); err != nil {
			return 0, err
		}
	}
	release, err := utils.ObtainLock(ctx, "reprice_inventory", lockKey, repriceLockTTL, "workflow", "RepriceInventory")
	if err != nil {
		return 0, err
	}
	defer release()

	changed, err := models.RepriceInventory(ctx, formulaId)
	if err != nil {
		config.LogError(config.GetLogger(), "workflow", "RepriceInventory", lockKey, nil, err)
		return 0, err
	}
	return changed, nil
}
