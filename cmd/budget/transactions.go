package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"budget/internal/core"
	"budget/internal/services"
)

func transactionCommand() *cli.Command {
	monthFlag := &cli.Int64Flag{Name: "month-id", Usage: "month id", Required: true}

	return &cli.Command{
		Name:    "transaction",
		Aliases: []string{"tx"},
		Usage:   "record and inspect transactions",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "record a transaction; its month is created when missing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "cad", Usage: "amount in CAD"},
					&cli.StringFlag{Name: "usd", Usage: "amount in USD"},
					&cli.Int64Flag{Name: "category", Usage: "category id", Required: true},
					&cli.StringFlag{Name: "type", Value: "Expense"},
					&cli.TimestampFlag{Name: "date", Layout: time.DateOnly, Usage: "YYYY-MM-DD (default today)"},
					&cli.StringFlag{Name: "notes"},
				},
				Action: func(c *cli.Context) error {
					cad, err := amountFlag(c, "cad")
					if err != nil {
						return err
					}
					usd, err := amountFlag(c, "usd")
					if err != nil {
						return err
					}
					date := time.Now().UTC().Truncate(24 * time.Hour)
					if ts := c.Timestamp("date"); ts != nil {
						date = *ts
					}

					tx, err := appFrom(c).Transactions.CreateTransaction(c.Context, services.TransactionInput{
						OwnerID:    ownerID(c),
						Name:       c.String("name"),
						AmountCAD:  cad,
						AmountUSD:  usd,
						CategoryID: c.Int64("category"),
						Type:       c.String("type"),
						Date:       date,
						Notes:      c.String("notes"),
					})
					if err != nil && tx.ID == 0 {
						return err
					}
					fmt.Fprintf(c.App.Writer, "recorded transaction %d (%s CAD) in month %d\n", tx.ID, money(tx.AmountCAD), tx.MonthID)
					return err
				},
			},
			{
				Name:  "list",
				Usage: "list transactions of a month, or of a category with --category",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "month-id", Usage: "month id"},
					&cli.Int64Flag{Name: "category", Usage: "category id"},
				},
				Action: func(c *cli.Context) error {
					a := appFrom(c)
					var (
						list []core.Transaction
						err  error
					)
					switch {
					case c.IsSet("month-id"):
						list, err = a.Transactions.ListTransactions(c.Context, c.Int64("month-id"))
					case c.IsSet("category"):
						list, err = a.Transactions.ListByCategory(c.Context, c.Int64("category"))
					default:
						list, err = a.Transactions.ListAll(c.Context)
					}
					if err != nil {
						return err
					}
					return printTransactions(c.App.Writer, list)
				},
			},
			{
				Name:  "spending",
				Usage: "expense totals per category for a month",
				Flags: []cli.Flag{monthFlag},
				Action: func(c *cli.Context) error {
					a := appFrom(c)
					spending, err := a.Transactions.SpendingByCategory(c.Context, c.Int64("month-id"))
					if err != nil {
						return err
					}
					tw := newTable(c.App.Writer)
					fmt.Fprintln(tw, "CATEGORY\tCAD")
					for _, s := range spending {
						fmt.Fprintf(tw, "%s\t%s\n", s.Name, money(s.Amount))
					}
					if err := tw.Flush(); err != nil {
						return err
					}

					usd, err := a.Transactions.USDSpending(c.Context, c.Int64("month-id"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "\n%d USD expense(s): %s USD = %s CAD\n", usd.Count, money(usd.AmountUSD), money(usd.AmountCAD))
					return nil
				},
			},
		},
	}
}
