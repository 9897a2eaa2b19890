package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/utils"
	"github.com/huastex/huastex_backend/workflow"
)

func main() {
	formulaID := flag.Int("formula-id", 0, "Optional: only items priced with this formula")
	withLock := flag.Bool("lock", false, "Connect to redis and hold the reprice lock while running")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	if *withLock {
		config.ConnectRedisWithRetry()
	}

	var formula *int
	if *formulaID > 0 {
		formula = formulaID
	}

	ctx := utils.SetSkipBranchScopeInContext(context.Background(), true)
	count, err := workflow.RepriceInventory(ctx, formula)
	if err != nil {
		config.LogError(config.GetLogger(), "cmd", "reprice-inventory", "RepriceInventory", formula, err)
		fmt.Fprintf(os.Stderr, "reprice failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("repriced %d inventory items\n", count)
}
