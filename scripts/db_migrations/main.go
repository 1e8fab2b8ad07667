package main

import (
	"database/sql"

	_ "github.com/lib/pq"

	server_config "github.com/carson-networks/budget-server/internal/config"
	"github.com/carson-networks/budget-server/internal/logging"
	"github.com/carson-networks/budget-server/internal/storage"
)

func main() {
	logger := logging.SetupLogging()

	env, err := server_config.ProcessEnvironmentVariables()
	if err != nil {
		logger.WithError(err).Fatal("ProcessEnvironmentVariables")
		return
	}

	db, err := sql.Open("postgres", env.PostgresDSN())
	if err != nil {
		logger.WithError(err).Fatal("sql.Open")
		return
	}
	defer db.Close()

	if _, err := storage.RunMigrations(db, logger); err != nil {
		logger.WithError(err).Fatal("storage.RunMigrations")
	}
}
