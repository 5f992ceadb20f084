package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	bootstrap "budget/internal/cli"
	"budget/internal/log"
)

const appKey = "app"

func main() {
	app := &cli.App{
		Name:  "budget",
		Usage: "manage monthly budgets, recurring templates and transactions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "SQLite database path (overrides SQLITE_DB_PATH)",
				EnvVars: []string{"SQLITE_DB_PATH"},
			},
			&cli.StringFlag{
				Name:    "owner",
				Usage:   "owner id stamped on created templates and transactions",
				EnvVars: []string{"BUDGET_OWNER"},
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			monthCommand(),
			templateCommand(),
			transactionCommand(),
			categoryCommand(),
			rateCommand(),
			dbCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	bootstrap.LoadEnvFile()
	if db := c.String("db"); db != "" {
		os.Setenv("SQLITE_DB_PATH", db)
	}

	cfg, err := bootstrap.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := bootstrap.SetupLogger(cfg, log.ComponentCLI)

	a, err := bootstrap.NewApp(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	c.App.Metadata = map[string]any{appKey: a}
	return nil
}

func teardown(c *cli.Context) error {
	if a, ok := c.App.Metadata[appKey].(*bootstrap.App); ok {
		return a.Close()
	}
	return nil
}

func appFrom(c *cli.Context) *bootstrap.App {
	return c.App.Metadata[appKey].(*bootstrap.App)
}

// ownerID returns --owner, or an id derived from the OS user so repeated
// invocations agree.
func ownerID(c *cli.Context) string {
	if owner := c.String("owner"); owner != "" {
		return owner
	}
	user := os.Getenv("USER")
	if user == "" {
		user = "budget"
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(user)).String()
}
