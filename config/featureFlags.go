package config

import (
	"os"
	"strings"
)

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// FormulaPercentMode is the global convention for `N%` operands in pricing formulas.
// Formulas may override it with their own percent_mode column.
//
// Set via env:
// - FORMULA_PERCENT_MODE=literal   (100 +10 +5% = 110.05, default)
// - FORMULA_PERCENT_MODE=relative  (100 +10 +5% = 115.5)
func FormulaPercentMode() string {
	return strings.ToLower(strings.TrimSpace(os.Getenv("FORMULA_PERCENT_MODE")))
}

// StrictFormulaValidation rejects formulas with text outside the operator grammar
// instead of silently skipping it.
//
// Set via env:
// - STRICT_FORMULA_VALIDATION=true
func StrictFormulaValidation() bool {
	return envBool("STRICT_FORMULA_VALIDATION")
}

// OutboxDispatcherEnabled starts the sales event dispatcher with the API server.
func OutboxDispatcherEnabled() bool {
	return envBool("OUTBOX_DISPATCHER_ENABLED")
}

// ReportCacheEnabled caches daily cash reports in redis.
func ReportCacheEnabled() bool {
	return envBool("ENABLE_REPORT_CACHE")
}
