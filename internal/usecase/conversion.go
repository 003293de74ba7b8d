package usecase

import (
	"math"
	"strconv"
	"strings"

	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
	"github.com/vitos/currency_rates/internal/domain"
)

// DefaultMarkup is the sell-side markup (0.5%).
const DefaultMarkup = 0.005

var amountFormat = accounting.Accounting{Symbol: "", Precision: 2, Thousand: ",", Decimal: "."}

// Conversion holds the amounts derived from the current amount and rate.
type Conversion struct {
	TrueAmount         decimal.Decimal `json:"true_amount"`
	MarkedUpAmount     decimal.Decimal `json:"marked_up_amount"`
	TrueAmountText     string          `json:"true_amount_text"`
	MarkedUpAmountText string          `json:"marked_up_amount_text"`
}

func TrueAmount(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}

func MarkedUpRate(rate, markup decimal.Decimal) decimal.Decimal {
	return rate.Add(markup.Mul(rate))
}

func MarkedUpAmount(amount, markedUpRate decimal.Decimal) decimal.Decimal {
	return amount.Mul(markedUpRate)
}

// Convert derives both amounts for a raw rate and markup fraction.
func Convert(amount decimal.Decimal, rate, markup float64) Conversion {
	r := decimal.NewFromFloat(rate)
	trueAmount := TrueAmount(amount, r)
	markedUp := MarkedUpAmount(amount, MarkedUpRate(r, decimal.NewFromFloat(markup)))
	return Conversion{
		TrueAmount:         trueAmount,
		MarkedUpAmount:     markedUp,
		TrueAmountText:     FormatAmount(trueAmount),
		MarkedUpAmountText: FormatAmount(markedUp),
	}
}

// ParseAmount validates a raw amount as typed by the user. Empty input is
// zero. Anything that is not a finite, non-negative number is rejected
// with domain.ErrInvalidAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, nil
	}

	if isHex(s) {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	// Keep the exact decimal where possible; "5." falls back.
	if d, err := decimal.NewFromString(s); err == nil {
		return d, nil
	}
	return decimal.NewFromFloat(f), nil
}

// isHex reports a 0x prefix after an optional sign. Amounts are decimal only.
func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// FormatAmount renders an amount with thousands separators and two
// fraction digits, e.g. "1,234.50".
func FormatAmount(d decimal.Decimal) string {
	return amountFormat.FormatMoney(d.Round(2))
}
