package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAmount is returned for amount input that does not parse as a
// non-negative number. Such input is discarded, never stored.
var ErrInvalidAmount = errors.New("invalid amount input")

// RateFetchError reports a failed rate request: transport failure,
// non-success status or an unusable body.
type RateFetchError struct {
	Source      CurrencyCode
	Destination CurrencyCode
	StatusCode  int // 0 when no response was received
	Err         error
}

func (e *RateFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch rate %s->%s: status %d: %v", e.Source, e.Destination, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch rate %s->%s: %v", e.Source, e.Destination, e.Err)
}

func (e *RateFetchError) Unwrap() error {
	return e.Err
}

// IsRateFetchError reports whether err is or wraps a *RateFetchError.
func IsRateFetchError(err error) bool {
	var fe *RateFetchError
	return errors.As(err, &fe)
}

// RefreshRecord is the outcome of one settled refresh.
type RefreshRecord struct {
	ID          string        `json:"id"`
	Source      CurrencyCode  `json:"source"`
	Destination CurrencyCode  `json:"destination"`
	Rate        float64       `json:"rate,omitempty"` // zero when the refresh failed
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Succeeded reports whether the refresh produced a rate.
func (r *RefreshRecord) Succeeded() bool {
	return r.Error == ""
}
