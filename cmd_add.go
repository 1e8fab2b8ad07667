package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/carson-networks/budget-server/internal/app"
	"github.com/carson-networks/budget-server/internal/service"
)

func addCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "record a transaction",
		ArgsUsage: "AMOUNT CATEGORY",
		Flags: []cli.Flag{
			credentialFlag(),
			&cli.StringFlag{Name: "date", Usage: "transaction date, defaults to today"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.ShowSubcommandHelp(c)
			}

			cfg, err := loadConfig(c, logger)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.NewSession()
			defer sess.Close()
			if err := sess.Establish(c.Context, c.String("credential")); err != nil {
				return err
			}

			draft := sess.Draft()
			draft.Amount = c.Args().Get(0)
			draft.Category = c.Args().Get(1)
			draft.Description = c.String("description")
			if date := c.String("date"); date != "" {
				draft.Date = date
			}
			sess.SetDraft(draft)

			stored, err := sess.Submit(c.Context)
			var validationErr *service.ValidationError
			if errors.As(err, &validationErr) {
				return cli.Exit(validationErr.Error(), 2)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "%s %s %s %s %s\n",
				stored.ID, stored.Date, stored.Amount.StringFixed(2), stored.Category, stored.Description)
			return nil
		},
	}
}

func credentialFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "credential",
		Aliases:  []string{"c"},
		Usage:    "scope id (anonymous auth) or bearer token (jwt auth)",
		EnvVars:  []string{"BUDGET_CREDENTIAL"},
		Required: true,
	}
}
