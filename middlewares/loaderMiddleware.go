package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/models"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	inventoryItemLoader *dataloader.Loader[int, *models.InventoryItem]
	formulaLoader       *dataloader.Loader[int, *models.Formula]
}

func NewLoaders(conn *gorm.DB) *Loaders {
	inventoryItemReader := &inventoryItemReader{db: conn}
	formulaReader := &formulaReader{db: conn}

	return &Loaders{
		inventoryItemLoader: dataloader.NewBatchedLoader(inventoryItemReader.getInventoryItems, dataloader.WithWait[int, *models.InventoryItem](time.Millisecond)),
		formulaLoader:       dataloader.NewBatchedLoader(formulaReader.getFormulas, dataloader.WithWait[int, *models.Formula](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns the request's loaders. Callers outside the gin stack (cmd tools,
// tests) get a fresh set bound to the current database.
func For(ctx context.Context) *Loaders {
	if loaders, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return loaders
	}
	return NewLoaders(config.GetDB())
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults orders rows by the requested ids.
// Missing ids resolve to nil.
func generateLoaderResults[T any](results []*T, ids []int, idOf func(*T) int) []*dataloader.Result[*T] {
	resultMap := make(map[int]*T, len(results))
	for _, result := range results {
		resultMap[idOf(result)] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: resultMap[id]})
	}
	return loaderResults
}
