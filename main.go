package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/carson-networks/budget-server/internal/config"
	"github.com/carson-networks/budget-server/internal/logging"
)

func main() {
	// Local development only; absent in containers.
	_ = godotenv.Load()

	logger := logging.SetupLogging()

	cliApp := &cli.App{
		Name:  "budget-server",
		Usage: "live personal finance tracker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML configuration file, overridden by the environment",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(logger),
			migrateCommand(logger),
			addCommand(logger),
			reportCommand(logger),
			tokenCommand(logger),
		},
		DefaultCommand: "serve",
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.WithError(err).Fatal("budget-server failed")
	}
}

// loadConfig reads the configuration named by --config and applies its log
// level to logger.
func loadConfig(c *cli.Context, logger *logrus.Logger) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := logging.ApplyLevel(logger, cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}
