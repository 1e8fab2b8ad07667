package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/carson-networks/budget-server/internal/app"
	"github.com/carson-networks/budget-server/internal/report"
)

func reportCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "print monthly reports",
		Flags: []cli.Flag{
			credentialFlag(),
			&cli.StringFlag{Name: "month", Usage: "only this month, e.g. 2025-06"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c, logger)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			scope, err := a.Authenticator.Establish(c.Context, c.String("credential"))
			if err != nil {
				return err
			}
			transactions, err := a.Service.Transaction.Snapshot(c.Context, scope)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			for _, r := range report.BuildReports(transactions) {
				if month := c.String("month"); month != "" && month != r.MonthKey {
					continue
				}
				fmt.Fprintf(w, "%s\tincome %s\texpense %s\tnet %s\n",
					r.MonthKey, r.TotalIncome.StringFixed(2), r.TotalExpense.StringFixed(2), r.NetBalance.StringFixed(2))
				for _, share := range r.SortedBreakdown() {
					fmt.Fprintf(w, "\t%s %s\t%s\t%s%%\n",
						a.Service.Categories.Icon(share.Category), share.Category,
						share.Amount.StringFixed(2), share.Percentage.StringFixed(2))
				}
			}
			return w.Flush()
		},
	}
}
