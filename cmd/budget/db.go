package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"budget/internal/storage"
)

func dbCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "database maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "version",
				Usage: "print the applied schema migration version",
				Action: func(c *cli.Context) error {
					a := appFrom(c)
					version, dirty, err := storage.MigrationVersion(a.Config.SQLiteDBPath)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "schema version %d (dirty: %t)\n", version, dirty)
					return nil
				},
			},
		},
	}
}
