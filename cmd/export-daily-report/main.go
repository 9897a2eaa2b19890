package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/models/reports"
	"github.com/huastex/huastex_backend/utils"
)

func main() {
	dateStr := flag.String("date", "", "Day to export (YYYY-MM-DD). Defaults to today.")
	location := flag.String("location", "all", "Branch to export, or all")
	out := flag.String("out", "", "Output file. Defaults to corte-<location>-<date>.xlsx")
	flag.Parse()

	date := utils.DateOnly(time.Now().UTC())
	if strings.TrimSpace(*dateStr) != "" {
		d, err := utils.ParseDate(*dateStr, time.UTC)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid date: %v\n", err)
			os.Exit(1)
		}
		date = d
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	report, err := reports.GetDailyCashReport(context.Background(), date, *location)
	if err != nil {
		config.LogError(config.GetLogger(), "cmd", "export-daily-report", "GetDailyCashReport", *location, err)
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("corte-%s-%s.xlsx", report.Location, date.Format("2006-01-02"))
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %s: %v\n", path, err)
		os.Exit(1)
	}
	defer f.Close()
	if err := reports.ExportDailyCashReport(report, f); err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d rows)\n", path, len(report.Transactions))
}
