package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Month is the financial summary of one calendar month. The three totals are
// a denormalized cache of the month's transactions.
type Month struct {
	ID                int64
	Month             int // 1-12
	Year              int
	Notes             string
	TotalIncome       decimal.Decimal
	TotalExpenses     decimal.Decimal
	RecurringExpenses decimal.Decimal
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MonthUpdate is a partial update of a month. Nil fields are left untouched.
// A non-zero ExpectedVersion makes the write conditional on the stored version.
type MonthUpdate struct {
	Notes           *string
	Totals          *TypeTotals
	ExpectedVersion int64
}

// MonthMetrics is a presentation snapshot of a month's derived figures.
// Monetary values are rounded to two decimal places.
type MonthMetrics struct {
	Cashflow             decimal.Decimal
	NonRecurringExpenses decimal.Decimal
	TotalDaysInMonth     int
	DaysPassedInMonth    int
	DaysLeftInMonth      int
	IsCurrentMonth       bool
	IsInPast             bool
	IsInFuture           bool
	ProjectedDailyBudget decimal.Decimal
	RemainingDailyBudget decimal.Decimal
	ActualDailySpend     decimal.Decimal
}

// ValidateMonthYear checks month ∈ [1,12] and year ∈ [MinYear,MaxYear].
func ValidateMonthYear(month, year int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidYear, year, MinYear, MaxYear)
	}
	return nil
}

// DaysIn returns the number of days in the month, leap-year aware.
func DaysIn(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Month) Validate() error {
	if err := ValidateMonthYear(m.Month, m.Year); err != nil {
		return err
	}
	for name, v := range map[string]decimal.Decimal{
		"total income":       m.TotalIncome,
		"total expenses":     m.TotalExpenses,
		"recurring expenses": m.RecurringExpenses,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s cannot be negative", ErrInvalidAmount, name)
		}
	}
	return nil
}

// String returns the month formatted as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

func (m Month) Cashflow() decimal.Decimal {
	return m.TotalIncome.Sub(m.TotalExpenses)
}

// NonRecurringExpenses may be negative when recurring expenses exceed the
// total; that state is reported as is.
func (m Month) NonRecurringExpenses() decimal.Decimal {
	return m.TotalExpenses.Sub(m.RecurringExpenses)
}

func (m Month) TotalDaysInMonth() int {
	return DaysIn(m.Month, m.Year)
}

// compare returns -1, 0 or 1 when m is before, equal to or after the month of now.
func (m Month) compare(now time.Time) int {
	ny, nm := now.Year(), int(now.Month())
	switch {
	case m.Year < ny || (m.Year == ny && m.Month < nm):
		return -1
	case m.Year == ny && m.Month == nm:
		return 0
	default:
		return 1
	}
}

func (m Month) IsCurrentMonth(now time.Time) bool { return m.compare(now) == 0 }

func (m Month) IsInPast(now time.Time) bool { return m.compare(now) < 0 }

func (m Month) IsInFuture(now time.Time) bool { return m.compare(now) > 0 }

func (m Month) DaysPassedInMonth(now time.Time) int {
	switch m.compare(now) {
	case 0:
		return now.Day()
	case -1:
		return m.TotalDaysInMonth()
	default:
		return 0
	}
}

func (m Month) DaysLeftInMonth(now time.Time) int {
	return m.TotalDaysInMonth() - m.DaysPassedInMonth(now)
}

func (m Month) ProjectedDailyBudget() decimal.Decimal {
	return m.TotalIncome.Sub(m.RecurringExpenses).Div(decimal.NewFromInt(int64(m.TotalDaysInMonth())))
}

func (m Month) RemainingDailyBudget(now time.Time) decimal.Decimal {
	left := m.DaysLeftInMonth(now)
	if left <= 0 {
		return decimal.Zero
	}
	return m.Cashflow().Div(decimal.NewFromInt(int64(left)))
}

func (m Month) ActualDailySpend(now time.Time) decimal.Decimal {
	passed := m.DaysPassedInMonth(now)
	if passed <= 0 {
		return decimal.Zero
	}
	return m.NonRecurringExpenses().Div(decimal.NewFromInt(int64(passed)))
}

// Metrics computes every derived figure relative to now.
func (m Month) Metrics(now time.Time) MonthMetrics {
	return MonthMetrics{
		Cashflow:             m.Cashflow().Round(2),
		NonRecurringExpenses: m.NonRecurringExpenses().Round(2),
		TotalDaysInMonth:     m.TotalDaysInMonth(),
		DaysPassedInMonth:    m.DaysPassedInMonth(now),
		DaysLeftInMonth:      m.DaysLeftInMonth(now),
		IsCurrentMonth:       m.IsCurrentMonth(now),
		IsInPast:             m.IsInPast(now),
		IsInFuture:           m.IsInFuture(now),
		ProjectedDailyBudget: m.ProjectedDailyBudget().Round(2),
		RemainingDailyBudget: m.RemainingDailyBudget(now).Round(2),
		ActualDailySpend:     m.ActualDailySpend(now).Round(2),
	}
}
