package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func categoryCommand() *cli.Command {
	return &cli.Command{
		Name:    "category",
		Aliases: []string{"c"},
		Usage:   "manage categories",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "create a category",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "type", Value: "Expense"},
				},
				Action: func(c *cli.Context) error {
					cat, err := appFrom(c).Categories.Create(c.Context, c.String("name"), c.String("type"))
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "created category %q (id %d)\n", cat.Name, cat.ID)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list categories",
				Action: func(c *cli.Context) error {
					categories, err := appFrom(c).Categories.List(c.Context)
					if err != nil {
						return err
					}
					tw := newTable(c.App.Writer)
					fmt.Fprintln(tw, "ID\tNAME\tTYPE")
					for _, cat := range categories {
						fmt.Fprintf(tw, "%d\t%s\t%s\n", cat.ID, cat.Name, cat.Type)
					}
					return tw.Flush()
				},
			},
		},
	}
}
