package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"fxwatch/config"
	"fxwatch/internal/adapters/logger"
	"fxwatch/internal/adapters/ratesapi"
	"fxwatch/internal/convert"
	"fxwatch/internal/domain"
)

func main() {
	from := flag.String("from", "", "source currency code (defaults to DEFAULT_FROM)")
	to := flag.String("to", "", "target currency code (defaults to DEFAULT_TO)")
	amount := flag.Float64("amount", 0, "amount to convert")
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

	engine := convert.NewEngine(apiClient, convert.NewFallbackTable(), appLogger)
	result, err := engine.Convert(context.Background(), pair, *amount)
	if err != nil {
		log.Fatalf("FATAL: conversion failed: %v", err)
	}
	if result == nil {
		log.Fatalf("FATAL: amount must be a positive number, got %v", *amount)
	}

	marker := ""
	if result.Offline {
		marker = "  (offline rates)"
	}
	fmt.Printf("%.2f %s = %.2f %s  @ %.6f%s\n",
		result.Amount, result.FromCurrency,
		result.ConvertedAmount, result.ToCurrency,
		result.Rate, marker)
}
