package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"budget/internal/services"
)

func templateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Required: true},
		&cli.StringFlag{Name: "cad", Usage: "amount in CAD"},
		&cli.StringFlag{Name: "usd", Usage: "amount in USD, converted to CAD when --cad is omitted"},
		&cli.Int64Flag{Name: "category", Usage: "category id", Required: true},
		&cli.IntFlag{Name: "day", Usage: "day of month (1-31, clamped to short months)"},
		&cli.StringFlag{Name: "type", Usage: "Income or Expense", Value: "Expense"},
		&cli.StringFlag{Name: "notes"},
	}
}

func templateInput(c *cli.Context) (services.TemplateInput, error) {
	cad, err := amountFlag(c, "cad")
	if err != nil {
		return services.TemplateInput{}, err
	}
	usd, err := amountFlag(c, "usd")
	if err != nil {
		return services.TemplateInput{}, err
	}
	return services.TemplateInput{
		OwnerID:    ownerID(c),
		Name:       c.String("name"),
		AmountCAD:  cad,
		AmountUSD:  usd,
		CategoryID: c.Int64("category"),
		Notes:      c.String("notes"),
		DayOfMonth: optionalDay(c),
		Type:       c.String("type"),
	}, nil
}

func templateCommand() *cli.Command {
	return &cli.Command{
		Name:    "template",
		Aliases: []string{"t"},
		Usage:   "manage recurring templates",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "define a recurring income or expense",
				Flags: templateFlags(),
				Action: func(c *cli.Context) error {
					in, err := templateInput(c)
					if err != nil {
						return err
					}
					rt, err := appFrom(c).Templates.Create(c.Context, in)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created template %q (id %d)\n", rt.Name, rt.ID)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "replace a recurring template",
				Flags: append(templateFlags(), &cli.Int64Flag{Name: "id", Required: true}),
				Action: func(c *cli.Context) error {
					in, err := templateInput(c)
					if err != nil {
						return err
					}
					rt, err := appFrom(c).Templates.Update(c.Context, c.Int64("id"), in)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "updated template %q (id %d)\n", rt.Name, rt.ID)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "delete a recurring template; past transactions are kept",
				Flags: []cli.Flag{&cli.Int64Flag{Name: "id", Required: true}},
				Action: func(c *cli.Context) error {
					if err := appFrom(c).Templates.Delete(c.Context, c.Int64("id")); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "deleted template %d\n", c.Int64("id"))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list recurring templates",
				Action: func(c *cli.Context) error {
					templates, err := appFrom(c).Templates.List(c.Context)
					if err != nil {
						return err
					}
					return printTemplates(c.App.Writer, templates)
				},
			},
		},
	}
}
