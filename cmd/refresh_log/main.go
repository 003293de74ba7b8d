package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/currency_rates/internal/infrastructure/storage"
)

func main() {
	dbPath := flag.String("db", "rates.db", "Path of the sqlite refresh log")
	limit := flag.Int("n", 20, "Number of records")
	flag.Parse()

	store, err := storage.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Printf("Failed to init sqlite: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	records, err := store.ListRefreshes(context.Background(), *limit)
	if err != nil {
		fmt.Printf("Failed to list refreshes: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d refreshes:\n", len(records))
	for _, r := range records {
		if r.Succeeded() {
			fmt.Printf("✅ %s %s->%s rate=%v (%s)\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.Source, r.Destination, r.Rate, r.Duration)
		} else {
			fmt.Printf("❌ %s %s->%s error=%s (%s)\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.Source, r.Destination, r.Error, r.Duration)
		}
	}
}
