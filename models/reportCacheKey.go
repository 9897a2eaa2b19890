package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/huastex/huastex_backend/config"
)

// DailyReportCacheKey is shared with the reports package.
func DailyReportCacheKey(location string, date time.Time) string {
	location = strings.ToLower(strings.TrimSpace(location))
	if location == "" {
		location = "all"
	}
	return fmt.Sprintf("report:daily:%s:%s", location, date.UTC().Format("2006-01-02"))
}

// InvalidateDailyReport drops the cached report of the branch and the "all" view.
// Runs after commit; a redis failure only costs a stale report until the TTL.
func InvalidateDailyReport(location string, date time.Time) {
	if config.GetRedisDB() == nil || date.IsZero() {
		return
	}
	keys := []string{DailyReportCacheKey(location, date), DailyReportCacheKey("all", date)}
	if err := config.RemoveRedisKey(keys...); err != nil {
		config.LogError(config.GetLogger(), "models", "InvalidateDailyReport", location, keys, err)
	}
}
