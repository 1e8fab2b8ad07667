package main

import (
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/carson-networks/budget-server/internal/config"
	"github.com/carson-networks/budget-server/internal/storage"
)

func migrateCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending Postgres migrations",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c, logger)
			if err != nil {
				return err
			}
			if cfg.DataBackend != config.BackendPostgres {
				return errors.New("migrate requires the postgres data backend")
			}

			db, err := sql.Open("postgres", cfg.PostgresDSN())
			if err != nil {
				return err
			}
			defer db.Close()

			_, err = storage.RunMigrations(db, logger)
			return err
		},
	}
}
