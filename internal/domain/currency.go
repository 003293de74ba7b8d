package domain

import "errors"

// CountryCode identifies a selectable country, e.g. "AU".
type CountryCode string

// CurrencyCode identifies a currency, e.g. "AUD".
type CurrencyCode string

// Country is one selectable entry of the lookup table.
type Country struct {
	Code    CountryCode  `json:"code" yaml:"code"`
	Display CurrencyCode `json:"display" yaml:"display"`
}

// CurrencySelection holds the chosen source and destination countries.
// Source may equal Destination.
type CurrencySelection struct {
	Source      CountryCode
	Destination CountryCode
}

var ErrUnknownCountry = errors.New("unknown country")
