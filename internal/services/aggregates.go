package services

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/core"
	"budget/internal/log"
)

const maxRecomputeAttempts = 5

// recomputeAggregates rewrites a month's income, expense and recurring totals
// from its transactions. The write is conditional on the version read, and a
// concurrent writer causes a bounded retry.
func recomputeAggregates(ctx context.Context, months MonthGateway, txs TransactionGateway, logger *log.Logger, monthID int64) (core.Month, error) {
	for attempt := 1; ; attempt++ {
		current, err := months.FindByID(ctx, monthID)
		if err != nil {
			return core.Month{}, err
		}
		totals, err := txs.GroupTotalsByType(ctx, monthID)
		if err != nil {
			return core.Month{}, fmt.Errorf("group totals: %w", err)
		}

		updated, err := months.Update(ctx, monthID, core.MonthUpdate{
			Totals:          &totals,
			ExpectedVersion: current.Version,
		})
		if errors.Is(err, core.ErrConcurrentUpdate) && attempt < maxRecomputeAttempts {
			logger.Debug("Month changed during recompute, retrying",
				log.FieldMonthID, monthID, "attempt", attempt)
			continue
		}
		if err != nil {
			return core.Month{}, fmt.Errorf("update month aggregates: %w", err)
		}
		return updated, nil
	}
}
