package main

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/carson-networks/budget-server/internal/app"
)

func serveCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and change feed",
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

			logger.WithFields(logrus.Fields{
				"dataBackend":   cfg.DataBackend,
				"feedTransport": cfg.FeedTransport,
				"authMode":      cfg.AuthMode,
			}).Info("budget-server starting")
			return a.Serve(c.Context)
		},
	}
}
