package reports

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultCacheTTL = 2 * time.Minute
	defaultSlowMs   = 500
)

// dailyReportCache keeps finished cash reports in redis.
// Ledger writes drop the entries (models.InvalidateDailyReport).
type dailyReportCache struct {
	enabled bool
	ttl     time.Duration
}

// newDailyReportCache reads ENABLE_REPORT_CACHE and REPORT_CACHE_TTL_SECONDS.
func newDailyReportCache() dailyReportCache {
	ttl := defaultCacheTTL
	if seconds := positiveEnv("REPORT_CACHE_TTL_SECONDS"); seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}
	return dailyReportCache{enabled: config.ReportCacheEnabled(), ttl: ttl}
}

func (c dailyReportCache) load(key string) (*DailyCashReport, bool) {
	if !c.enabled {
		return nil, false
	}
	var report DailyCashReport
	hit, err := config.GetRedisObject(key, &report)
	if err != nil {
		config.LogError(config.GetLogger(), "reports", "dailyReportCache.load", key, nil, err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return &report, true
}

func (c dailyReportCache) store(key string, report *DailyCashReport) {
	if !c.enabled {
		return
	}
	if err := config.SetRedisObject(key, report, c.ttl); err != nil {
		config.LogError(config.GetLogger(), "reports", "dailyReportCache.store", key, nil, err)
	}
}

// logSlowReport warns when building a report took longer than REPORT_SLOW_MS.
func logSlowReport(ctx context.Context, location string, day time.Time, rows int, started time.Time) {
	threshold := positiveEnv("REPORT_SLOW_MS")
	if threshold == 0 {
		threshold = defaultSlowMs
	}
	elapsed := time.Since(started)
	if elapsed.Milliseconds() < threshold {
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	branch, _ := utils.GetBranchFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"field":          "reports",
		"report":         "daily_cash",
		"location":       location,
		"branch_scope":   branch,
		"date":           day.Format("2006-01-02"),
		"rows":           rows,
		"ms":             elapsed.Milliseconds(),
		"correlation_id": cid,
	}).Warn("slow report")
}

func positiveEnv(key string) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
