package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/vitos/currency_rates/internal/config"
	"github.com/vitos/currency_rates/internal/domain"
	"github.com/vitos/currency_rates/internal/infrastructure/exchange"
	"github.com/vitos/currency_rates/internal/infrastructure/lookup"
	"github.com/vitos/currency_rates/internal/usecase"
)

func main() {
	configPath := flag.String("c", "config/config.yaml", "Path to configuration file")
	from := flag.String("from", "AU", "Source country")
	to := flag.String("to", "US", "Destination country")
	amount := flag.String("amount", "100", "Amount to convert")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath, "")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	table, err := lookup.Load(cfg.Lookup.Path)
	if err != nil {
		fmt.Printf("Failed to load lookup table: %v\n", err)
		os.Exit(1)
	}
	source, ok := table.CurrencyFor(domain.CountryCode(*from))
	if !ok {
		fmt.Printf("Unknown country %s\n", *from)
		os.Exit(1)
	}
	destination, ok := table.CurrencyFor(domain.CountryCode(*to))
	if !ok {
		fmt.Printf("Unknown country %s\n", *to)
		os.Exit(1)
	}
	value, err := usecase.ParseAmount(*amount)
	if err != nil {
		fmt.Printf("Bad amount %q: %v\n", *amount, err)
		os.Exit(1)
	}

	fmt.Printf("Endpoint: %s\n", cfg.RateAPI.BaseURL)
	adapter := exchange.NewRatesAPIAdapter(cfg.RateAPI.BaseURL, cfg.RateAPI.HTTPTimeout)

	// 2. Single fetch, no retry
	rate, err := adapter.FetchRate(context.Background(), source, destination)
	if err != nil {
		fmt.Printf("❌ Failed to get rate: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Rate %s->%s: %v\n", source, destination, rate)

	markedUp := usecase.MarkedUpRate(decimal.NewFromFloat(rate), decimal.NewFromFloat(cfg.Widget.Markup))
	conv := usecase.Convert(value, rate, cfg.Widget.Markup)
	fmt.Printf("   Marked-up rate: %s\n", markedUp)
	fmt.Printf("   True amount: %s %s\n", conv.TrueAmountText, destination)
	fmt.Printf("   Marked-up amount: %s %s\n", conv.MarkedUpAmountText, destination)
}
