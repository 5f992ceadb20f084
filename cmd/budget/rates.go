package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"budget/internal/core"
	"budget/internal/currency"
)

func rateCommand() *cli.Command {
	strictFlag := &cli.BoolFlag{Name: "strict", Usage: "fail instead of using the fallback rate"}

	mode := func(c *cli.Context) currency.Mode {
		if c.Bool("strict") {
			return currency.Strict
		}
		return currency.Tolerant
	}

	return &cli.Command{
		Name:  "rate",
		Usage: "USD to CAD exchange rate",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "fetch the current rate",
				Flags: []cli.Flag{strictFlag},
				Action: func(c *cli.Context) error {
					rate, err := appFrom(c).Rates.GetRate(c.Context, mode(c))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "1 %s = %s %s (as of %s, expires %s)\n",
						rate.FromCurrency, rate.Rate.StringFixed(4), rate.ToCurrency,
						rate.Timestamp.Format(time.RFC3339), rate.ExpiresAt.Format(time.RFC3339))
					return nil
				},
			},
			{
				Name:  "convert",
				Usage: "convert a USD amount to CAD",
				Flags: []cli.Flag{strictFlag, &cli.StringFlag{Name: "usd", Required: true}},
				Action: func(c *cli.Context) error {
					amount, err := core.ParseAmount(c.String("usd"))
					if err != nil {
						return err
					}
					cad, err := currency.NewConverter(appFrom(c).Rates, mode(c)).Convert(c.Context, amount)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "%s USD = %s CAD\n", money(amount), money(cad))
					return nil
				},
			},
		},
	}
}
