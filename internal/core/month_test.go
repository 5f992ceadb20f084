package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2, 2024))
	assert.Equal(t, 28, DaysIn(2, 2023))
	assert.Equal(t, 31, DaysIn(8, 2023))
	assert.Equal(t, 30, DaysIn(4, 2023))
	assert.Equal(t, 28, DaysIn(2, 1900))
	assert.Equal(t, 29, DaysIn(2, 2000))
}

func TestValidateMonthYear(t *testing.T) {
	assert.NoError(t, ValidateMonthYear(1, 1900))
	assert.NoError(t, ValidateMonthYear(12, 2100))
	assert.ErrorIs(t, ValidateMonthYear(0, 2025), ErrInvalidMonth)
	assert.ErrorIs(t, ValidateMonthYear(13, 2025), ErrInvalidMonth)
	assert.ErrorIs(t, ValidateMonthYear(1, 1899), ErrInvalidYear)
	assert.ErrorIs(t, ValidateMonthYear(1, 2101), ErrInvalidYear)
}

func TestMonthValidate(t *testing.T) {
	assert.NoError(t, Month{Month: 5, Year: 2025}.Validate())
	assert.ErrorIs(t, Month{Month: 5, Year: 2025, TotalIncome: dec("-1")}.Validate(), ErrInvalidAmount)
}

func TestMonthCashflow(t *testing.T) {
	cases := []struct{ income, expenses, want string }{
		{"0", "0", "0"},
		{"4000", "1500", "2500"},
		{"100.10", "200.25", "-100.15"},
	}
	for _, tc := range cases {
		m := Month{TotalIncome: dec(tc.income), TotalExpenses: dec(tc.expenses)}
		assert.True(t, m.Cashflow().Equal(dec(tc.want)), "%s - %s", tc.income, tc.expenses)
	}
}

func TestMonthNonRecurringExpenses(t *testing.T) {
	m := Month{TotalExpenses: dec("1000"), RecurringExpenses: dec("600")}
	assert.True(t, m.NonRecurringExpenses().Equal(dec("400")))

	// recurring above total is reported, not corrected
	m = Month{TotalExpenses: dec("100"), RecurringExpenses: dec("250")}
	assert.True(t, m.NonRecurringExpenses().Equal(dec("-150")))
}

func TestMonthPosition(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	current := Month{Month: 6, Year: 2025}
	assert.True(t, current.IsCurrentMonth(now))
	assert.False(t, current.IsInPast(now))
	assert.False(t, current.IsInFuture(now))

	past := Month{Month: 12, Year: 2024}
	assert.True(t, past.IsInPast(now))

	future := Month{Month: 1, Year: 2026}
	assert.True(t, future.IsInFuture(now))

	sameMonthOtherYear := Month{Month: 6, Year: 2026}
	assert.True(t, sameMonthOtherYear.IsInFuture(now))
}

func TestMonthDays(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	current := Month{Month: 6, Year: 2025}
	assert.Equal(t, 10, current.DaysPassedInMonth(now))
	assert.Equal(t, 20, current.DaysLeftInMonth(now))

	past := Month{Month: 2, Year: 2024}
	assert.Equal(t, 29, past.DaysPassedInMonth(now))
	assert.Equal(t, 0, past.DaysLeftInMonth(now))

	future := Month{Month: 7, Year: 2025}
	assert.Equal(t, 0, future.DaysPassedInMonth(now))
	assert.Equal(t, 31, future.DaysLeftInMonth(now))
}

func TestMonthMetricsCurrent(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	m := Month{
		Month:             6,
		Year:              2025,
		TotalIncome:       dec("3000"),
		TotalExpenses:     dec("1200"),
		RecurringExpenses: dec("900"),
	}

	got := m.Metrics(now)
	assert.Equal(t, "1800.00", got.Cashflow.StringFixed(2))
	assert.Equal(t, "300.00", got.NonRecurringExpenses.StringFixed(2))
	assert.Equal(t, 30, got.TotalDaysInMonth)
	assert.Equal(t, "70.00", got.ProjectedDailyBudget.StringFixed(2))
	assert.Equal(t, "90.00", got.RemainingDailyBudget.StringFixed(2))
	assert.Equal(t, "30.00", got.ActualDailySpend.StringFixed(2))
	assert.True(t, got.IsCurrentMonth)
}

func TestMonthMetricsGuards(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	past := Month{Month: 5, Year: 2025, TotalIncome: dec("100"), TotalExpenses: dec("31")}
	got := past.Metrics(now)
	assert.True(t, got.RemainingDailyBudget.IsZero(), "no days left")
	assert.Equal(t, "1.00", got.ActualDailySpend.StringFixed(2))

	future := Month{Month: 7, Year: 2025, TotalExpenses: dec("50")}
	got = future.Metrics(now)
	assert.True(t, got.ActualDailySpend.IsZero(), "no days passed")
	assert.Equal(t, "-1.61", got.RemainingDailyBudget.StringFixed(2))
}

func TestMonthMetricsRoundOnlyAtBoundary(t *testing.T) {
	m := Month{Month: 2, Year: 2023, TotalIncome: dec("100")}

	// 100 / 28 carries full precision internally
	assert.False(t, m.ProjectedDailyBudget().Equal(dec("3.57")))
	assert.Equal(t, "3.57", m.Metrics(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).ProjectedDailyBudget.StringFixed(2))
}

func TestMonthString(t *testing.T) {
	assert.Equal(t, "2025-03", Month{Month: 3, Year: 2025}.String())
}
