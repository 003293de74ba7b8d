package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateFetchError(t *testing.T) {
	cause := errors.New("API error: upstream down")
	err := &RateFetchError{Source: "AUD", Destination: "USD", StatusCode: 503, Err: cause}

	assert.Equal(t, "fetch rate AUD->USD: status 503: API error: upstream down", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("refresh: %w", err)
	assert.True(t, IsRateFetchError(wrapped))
	assert.False(t, IsRateFetchError(cause))

	noStatus := &RateFetchError{Source: "NZD", Destination: "GBP", Err: errors.New("connection refused")}
	assert.Equal(t, "fetch rate NZD->GBP: connection refused", noStatus.Error())
}

func TestRefreshRecord_Succeeded(t *testing.T) {
	assert.True(t, (&RefreshRecord{Rate: 0.7}).Succeeded())
	assert.False(t, (&RefreshRecord{Error: "timeout"}).Succeeded())
}
