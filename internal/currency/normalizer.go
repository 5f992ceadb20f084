package currency

import (
	"context"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// Normalizer resolves a partial CAD/USD pair. CAD is authoritative: a CAD-only
// pair keeps USD absent unless back-fill is enabled, in which case USD is
// derived through the inverse rate. The policy is fixed per instance.
type Normalizer struct {
	conv        *Converter
	backfillUSD bool
}

func NewNormalizer(conv *Converter, backfillUSD bool) *Normalizer {
	return &Normalizer{conv: conv, backfillUSD: backfillUSD}
}

// BackfillsUSD reports the active policy.
func (n *Normalizer) BackfillsUSD() bool {
	return n.backfillUSD
}

// Normalize returns a pair with CAD always present.
func (n *Normalizer) Normalize(ctx context.Context, cad, usd decimal.NullDecimal) (core.AmountPair, error) {
	pair := core.AmountPair{CAD: cad, USD: usd}
	if err := pair.Validate(); err != nil {
		return core.AmountPair{}, err
	}

	switch {
	case cad.Valid && usd.Valid:
		return pair, nil

	case usd.Valid:
		converted, err := n.conv.Convert(ctx, usd.Decimal)
		if err != nil {
			return core.AmountPair{}, err
		}
		pair.CAD = decimal.NewNullDecimal(converted)
		return pair, nil

	default:
		if !n.backfillUSD {
			return pair, nil
		}
		converted, err := n.conv.ConvertCADToUSD(ctx, cad.Decimal)
		if err != nil {
			return core.AmountPair{}, err
		}
		pair.USD = decimal.NewNullDecimal(converted)
		return pair, nil
	}
}
