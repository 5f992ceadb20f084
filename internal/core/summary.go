package core

import "github.com/shopspring/decimal"

// CategorySpending is the expense total of one category within a month.
type CategorySpending struct {
	CategoryID int64
	Name       string
	Amount     decimal.Decimal
}

// USDSpending summarizes expenses of a month that carry a USD side.
type USDSpending struct {
	MonthID   int64
	Count     int64
	AmountUSD decimal.Decimal
	AmountCAD decimal.Decimal
}

// TypeTotals is the sum of a month's transactions grouped by type.
type TypeTotals struct {
	Income            decimal.Decimal
	Expenses          decimal.Decimal
	RecurringExpenses decimal.Decimal
}

// MonthSummary is a month together with its derived metrics.
type MonthSummary struct {
	Month   Month
	Metrics MonthMetrics
}
