package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vitos/currency_rates/internal/domain"
)

const (
	DefaultBaseURL = "https://rates.staging.api.paytron.com"
	publicRatePath = "/rate/public"
)

// RatesAPIAdapter fetches public retail rates over HTTP.
type RatesAPIAdapter struct {
	baseURL string
	client  *http.Client
}

func NewRatesAPIAdapter(baseURL string, timeout time.Duration) *RatesAPIAdapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RatesAPIAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type publicRateResponse struct {
	RetailRate *float64 `json:"retailRate"`
}

// FetchRate returns how many destination units one source unit buys.
// The API names the pair from the customer's side: we sell the source
// currency and buy the destination one.
func (a *RatesAPIAdapter) FetchRate(ctx context.Context, source, destination domain.CurrencyCode) (float64, error) {
	fail := func(status int, err error) (float64, error) {
		return 0, &domain.RateFetchError{Source: source, Destination: destination, StatusCode: status, Err: err}
	}

	q := url.Values{}
	q.Set("buyCurrency", string(destination))
	q.Set("sellCurrency", string(source))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+publicRatePath+"?"+q.Encode(), nil)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fail(resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(resp.StatusCode, fmt.Errorf("API error: %s", string(body)))
	}

	var result publicRateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("decode body: %w", err))
	}
	if result.RetailRate == nil {
		return fail(resp.StatusCode, errors.New("retailRate missing"))
	}
	if *result.RetailRate <= 0 {
		return fail(resp.StatusCode, fmt.Errorf("non-positive retailRate %v", *result.RetailRate))
	}

	return *result.RetailRate, nil
}
