package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"budget/internal/core"
)

func monthCommand() *cli.Command {
	idFlag := &cli.Int64Flag{Name: "id", Usage: "month id", Required: true}

	return &cli.Command{
		Name:    "month",
		Aliases: []string{"m"},
		Usage:   "create and inspect months",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "create a month and materialize recurring templates into it",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "month", Required: true},
					&cli.IntFlag{Name: "year", Required: true},
					&cli.StringFlag{Name: "notes"},
				},
				Action: func(c *cli.Context) error {
					a := appFrom(c)
					result, err := a.Months.CreateMonth(c.Context, c.Int("month"), c.Int("year"), c.String("notes"))
					if err != nil {
						return err
					}
					r := result.Materialization
					fmt.Fprintf(c.App.Writer, "created month %s (id %d): %d transaction(s) created, %d skipped, %d failed\n",
						result.Month, result.Month.ID, r.Created, r.Skipped, len(r.Failed))
					for _, f := range r.Failed {
						fmt.Fprintf(c.App.Writer, "  template %q: %v\n", f.Name, f.Err)
					}
					if result.Err != nil {
						fmt.Fprintf(c.App.Writer, "warning: materialization failed: %v\n", result.Err)
					}
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list months, newest first",
				Action: func(c *cli.Context) error {
					months, err := appFrom(c).Months.ListMonths(c.Context)
					if err != nil {
						return err
					}
					return printMonths(c.App.Writer, months)
				},
			},
			{
				Name:  "show",
				Usage: "show a month with its derived metrics",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "month id"},
					&cli.IntFlag{Name: "month"},
					&cli.IntFlag{Name: "year"},
				},
				Action: func(c *cli.Context) error {
					a := appFrom(c)
					id := c.Int64("id")
					switch {
					case id != 0:
					case c.IsSet("month") && c.IsSet("year"):
						m, err := a.Months.FindMonth(c.Context, c.Int("month"), c.Int("year"))
						if err != nil {
							return err
						}
						id = m.ID
					default:
						m, err := a.Months.LatestMonth(c.Context)
						if err != nil {
							return err
						}
						id = m.ID
					}
					summary, err := a.Months.Summary(c.Context, id)
					if err != nil {
						return err
					}
					return printSummary(c.App.Writer, summary)
				},
			},
			{
				Name:  "notes",
				Usage: "replace a month's notes",
				Flags: []cli.Flag{idFlag, &cli.StringFlag{Name: "notes", Required: true}},
				Action: func(c *cli.Context) error {
					m, err := appFrom(c).Months.UpdateNotes(c.Context, c.Int64("id"), c.String("notes"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "updated month %s (version %d)\n", m, m.Version)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "delete a month without transactions",
				Flags: []cli.Flag{idFlag},
				Action: func(c *cli.Context) error {
					if err := appFrom(c).Months.DeleteMonth(c.Context, c.Int64("id")); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "deleted month %d\n", c.Int64("id"))
					return nil
				},
			},
			{
				Name:  "rollover",
				Usage: "ensure the current month exists",
				Action: func(c *cli.Context) error {
					m, created, err := appFrom(c).Rollover.Run(c.Context, time.Now())
					if err != nil {
						return err
					}
					if created {
						fmt.Fprintf(c.App.Writer, "created month %s (id %d)\n", m, m.ID)
					} else {
						fmt.Fprintf(c.App.Writer, "month %s already exists (id %d)\n", m, m.ID)
					}
					return nil
				},
			},
			{
				Name:  "recompute",
				Usage: "recompute a month's totals from its transactions",
				Flags: []cli.Flag{idFlag},
				Action: func(c *cli.Context) error {
					m, err := appFrom(c).Months.Recompute(c.Context, c.Int64("id"))
					if err != nil {
						return err
					}
					return printMonths(c.App.Writer, []core.Month{m})
				},
			},
			{
				Name:  "recalc-recurring",
				Usage: "recalculate recurring expenses of one month, or all months without --id",
				Flags: []cli.Flag{&cli.Int64Flag{Name: "id", Usage: "month id"}},
				Action: func(c *cli.Context) error {
					var id *int64
					if c.IsSet("id") {
						v := c.Int64("id")
						id = &v
					}
					if err := appFrom(c).Months.RecalculateRecurringExpenses(c.Context, id); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "recurring expenses recalculated")
					return nil
				},
			},
		},
	}
}
