package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/carson-networks/budget-server/internal/auth"
	"github.com/carson-networks/budget-server/internal/config"
)

func tokenCommand(logger *logrus.Logger) *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "issue a bearer token for a scope",
		ArgsUsage: "SCOPE",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "ttl", Value: 30 * 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.ShowSubcommandHelp(c)
			}
			cfg, err := loadConfig(c, logger)
			if err != nil {
				return err
			}
			if cfg.AuthMode != config.AuthJWT {
				return errors.New("tokens are only used with AUTH_MODE=jwt")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			token, err := auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer).IssueToken(c.Args().First(), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}
