package domain

import "context"

// RateFetcher performs a single request for the current rate between two currencies.
type RateFetcher interface {
	FetchRate(ctx context.Context, source, destination CurrencyCode) (float64, error)
}

// CurrencyLookup is the static country/currency table.
type CurrencyLookup interface {
	CurrencyFor(country CountryCode) (CurrencyCode, bool)
	Countries() []Country
}

// RefreshLogRepository defines storage operations for the refresh audit log.
type RefreshLogRepository interface {
	SaveRefresh(ctx context.Context, rec *RefreshRecord) error
	ListRefreshes(ctx context.Context, limit int) ([]*RefreshRecord, error)
}

// RefreshObserver is notified about every settled refresh.
type RefreshObserver interface {
	ObserveRefresh(rec *RefreshRecord)
}
