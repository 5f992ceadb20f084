package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CurrencyUSD = "USD"
	CurrencyCAD = "CAD"

	// RateValidity is how long a fetched rate stays fresh.
	RateValidity = 24 * time.Hour
)

// ExchangeRate is an immutable USD→CAD snapshot. Refreshing replaces the whole
// value.
type ExchangeRate struct {
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal // rounded to 4 decimal places
	Timestamp    time.Time
	ExpiresAt    time.Time
}

// NewExchangeRate rounds rate to 4 decimal places and stamps it with a 24 hour
// validity window starting at ts.
func NewExchangeRate(rate decimal.Decimal, ts time.Time) ExchangeRate {
	return ExchangeRate{
		FromCurrency: CurrencyUSD,
		ToCurrency:   CurrencyCAD,
		Rate:         rate.Round(4),
		Timestamp:    ts,
		ExpiresAt:    ts.Add(RateValidity),
	}
}

// IsExpired reports whether now is past the validity window.
func (r ExchangeRate) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Convert turns a USD amount into CAD, rounded to cents.
func (r ExchangeRate) Convert(amountUSD decimal.Decimal) (decimal.Decimal, error) {
	if amountUSD.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: cannot convert negative amount %s", ErrInvalidAmount, amountUSD)
	}
	return amountUSD.Mul(r.Rate).Round(2), nil
}

// ConvertToUSD is the inverse of Convert.
func (r ExchangeRate) ConvertToUSD(amountCAD decimal.Decimal) (decimal.Decimal, error) {
	if amountCAD.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: cannot convert negative amount %s", ErrInvalidAmount, amountCAD)
	}
	if !r.Rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: rate %s is not usable", ErrExchangeRateFetch, r.Rate)
	}
	return amountCAD.Div(r.Rate).Round(2), nil
}
