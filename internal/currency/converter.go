package currency

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// RateProvider is satisfied by *RateCache.
type RateProvider interface {
	GetRate(ctx context.Context, mode Mode) (core.ExchangeRate, error)
}

// Converter converts amounts with the rate obtained under a fixed Mode.
type Converter struct {
	rates RateProvider
	mode  Mode
}

func NewConverter(rates RateProvider, mode Mode) *Converter {
	return &Converter{rates: rates, mode: mode}
}

// Convert returns round(usd × rate, 2). Zero converts to zero without a rate
// lookup.
func (c *Converter) Convert(ctx context.Context, amountUSD decimal.Decimal) (decimal.Decimal, error) {
	if amountUSD.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: cannot convert negative amount %s", core.ErrInvalidAmount, amountUSD)
	}
	if amountUSD.IsZero() {
		return decimal.Zero, nil
	}
	rate, err := c.rates.GetRate(ctx, c.mode)
	if err != nil {
		return decimal.Zero, err
	}
	return rate.Convert(amountUSD)
}

// ConvertCADToUSD returns round(cad / rate, 2).
func (c *Converter) ConvertCADToUSD(ctx context.Context, amountCAD decimal.Decimal) (decimal.Decimal, error) {
	if amountCAD.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: cannot convert negative amount %s", core.ErrInvalidAmount, amountCAD)
	}
	if amountCAD.IsZero() {
		return decimal.Zero, nil
	}
	rate, err := c.rates.GetRate(ctx, c.mode)
	if err != nil {
		return decimal.Zero, err
	}
	return rate.ConvertToUSD(amountCAD)
}
