package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"budget/internal/core"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

// amountFlag parses an optional amount flag into a NullDecimal.
func amountFlag(c *cli.Context, name string) (decimal.NullDecimal, error) {
	v, err := core.ParseOptionalAmount(c.String(name))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("--%s: %w", name, err)
	}
	if v == nil {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(*v), nil
}

func optionalDay(c *cli.Context) *int {
	if !c.IsSet("day") {
		return nil
	}
	day := c.Int("day")
	return &day
}

func printMonths(w io.Writer, months []core.Month) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tMONTH\tINCOME\tEXPENSES\tRECURRING\tCASHFLOW\tNOTES")
	for _, m := range months {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m, money(m.TotalIncome), money(m.TotalExpenses),
			money(m.RecurringExpenses), money(m.Cashflow()), m.Notes)
	}
	return tw.Flush()
}

func printSummary(w io.Writer, s core.MonthSummary) error {
	m, mt := s.Month, s.Metrics
	tw := newTable(w)
	fmt.Fprintf(tw, "Month\t%s (id %d, version %d)\n", m, m.ID, m.Version)
	fmt.Fprintf(tw, "Income\t%s\n", money(m.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\n", money(m.TotalExpenses))
	fmt.Fprintf(tw, "Recurring expenses\t%s\n", money(m.RecurringExpenses))
	fmt.Fprintf(tw, "Non-recurring expenses\t%s\n", money(mt.NonRecurringExpenses))
	fmt.Fprintf(tw, "Cashflow\t%s\n", money(mt.Cashflow))
	fmt.Fprintf(tw, "Days\t%d passed, %d left of %d\n", mt.DaysPassedInMonth, mt.DaysLeftInMonth, mt.TotalDaysInMonth)
	fmt.Fprintf(tw, "Projected daily budget\t%s\n", money(mt.ProjectedDailyBudget))
	fmt.Fprintf(tw, "Remaining daily budget\t%s\n", money(mt.RemainingDailyBudget))
	fmt.Fprintf(tw, "Actual daily spend\t%s\n", money(mt.ActualDailySpend))
	if m.Notes != "" {
		fmt.Fprintf(tw, "Notes\t%s\n", m.Notes)
	}
	return tw.Flush()
}

func printTemplates(w io.Writer, templates []core.RecurringTemplate) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCAD\tUSD\tDAY\tCATEGORY")
	for _, t := range templates {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%d\n",
			t.ID, t.Name, t.Type, optionalMoney(t.Amounts.CAD), optionalMoney(t.Amounts.USD), t.Day(), t.CategoryID)
	}
	return tw.Flush()
}

func printTransactions(w io.Writer, txs []core.Transaction) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tDATE\tNAME\tTYPE\tCAD\tUSD\tRECURRING")
	for _, t := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%t\n",
			t.ID, t.Date.Format(time.DateOnly), t.Name, t.Type, money(t.AmountCAD), optionalMoney(t.AmountUSD), t.Recurring)
	}
	return tw.Flush()
}
