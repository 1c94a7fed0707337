package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"fxwatch/config"
	"fxwatch/internal/adapters/logger"
	"fxwatch/internal/adapters/ratesapi"
	"fxwatch/internal/chart"
	"fxwatch/internal/domain"
	"fxwatch/internal/utils"
)

func main() {
	from := flag.String("from", "", "base currency code (defaults to DEFAULT_FROM)")
	to := flag.String("to", "", "target currency code (defaults to DEFAULT_TO)")
	periodStr := flag.String("period", "1m", "period: 1d, 1w, 1m, 3m, 1y, ytd, custom")
	startDate := flag.String("start", "", "custom range start day (YYYY-MM-DD)")
	endDate := flag.String("end", "", "custom range end day (YYYY-MM-DD)")
	csvPath := flag.String("csv", "", "optional CSV output path")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)

	// 3. Initialize Rates API Client
	apiClient, err := ratesapi.New(ratesapi.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
		Logger:  appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize rates API client: %v", err)
	}

	if *from == "" {
		*from = cfg.DefaultFrom
	}
	if *to == "" {
		*to = cfg.DefaultTo
	}
	pair := domain.NewPair(*from, *to)
	if !pair.IsValid() {
		log.Fatalf("FATAL: invalid currency pair %s", pair)
	}
	period, err := domain.ParsePeriod(*periodStr)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	svc := chart.NewService(apiClient, chart.NewAggregator(time.Local), appLogger)

	ctx := context.Background()
	if err := svc.Load(ctx, pair, period); err != nil {
		log.Fatalf("FATAL: history fetch failed: %v", err)
	}
	if period == domain.PeriodCustom || *startDate != "" || *endDate != "" {
		if err := svc.SetCustomRange(ctx, domain.CustomRange{Start: *startDate, End: *endDate}); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	}

	points := svc.Points()
	stats := svc.Statistics()
	snapshot := svc.Snapshot()

	fmt.Printf("%s  period=%s  points=%d\n", pair, period, len(points))
	if snapshot != nil {
		fmt.Printf("current=%.4f  change=%+.4f (%+.2f%%)\n",
			snapshot.CurrentRate, snapshot.Change, snapshot.ChangePercent)
	}
	if stats == nil {
		fmt.Println("no data in the selected window")
		return
	}
	fmt.Printf("high=%.4f (%s)  low=%.4f (%s)  avg=%.2f\n",
		stats.High, stats.HighPoint.Date, stats.Low, stats.LowPoint.Date, stats.Average)

	if *csvPath != "" {
		if err := utils.WriteChartPointsToCSV(points, *csvPath); err != nil {
			log.Fatalf("FATAL: failed to write CSV: %v", err)
		}
		fmt.Printf("series written to %s\n", *csvPath)
	}
}
