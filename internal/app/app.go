// Package app assembles the server components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/carson-networks/budget-server/api"
	"github.com/carson-networks/budget-server/internal/amqp"
	"github.com/carson-networks/budget-server/internal/auth"
	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/config"
	"github.com/carson-networks/budget-server/internal/handlers/v1/status"
	"github.com/carson-networks/budget-server/internal/operator"
	"github.com/carson-networks/budget-server/internal/service"
	"github.com/carson-networks/budget-server/internal/session"
	"github.com/carson-networks/budget-server/internal/storage"
	"github.com/carson-networks/budget-server/internal/storage/feed"
)

type App struct {
	Config        *config.Config
	Logger        *logrus.Logger
	Storage       *storage.Storage
	Hub           *feed.Hub
	Operator      *operator.OperatorDelegator
	Service       *service.Service
	Authenticator auth.Authenticator

	closers []func() error
}

// New validates cfg and builds every component. The operator workers are
// started; Close stops them.
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: log}

	store, err := storage.NewStorage(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	a.Storage = store
	a.closers = append(a.closers, store.Close)

	notifier, err := a.newNotifier()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("feed notifier: %w", err)
	}
	a.Hub = feed.NewHub(notifier, log)

	a.Operator = operator.NewOperatorDelegator(store, cfg.OperatorWorkers, log)
	a.Operator.Start()
	a.closers = append([]func() error{func() error {
		a.Operator.Stop()
		return nil
	}}, a.closers...)

	a.Service = service.NewService(store, a.Operator, a.Hub, category.Default(), log)
	a.Authenticator = newAuthenticator(cfg)

	return a, nil
}

func (a *App) newNotifier() (feed.Notifier, error) {
	switch a.Config.FeedTransport {
	case config.FeedPostgres:
		return feed.NewPostgresNotifier(a.Storage.DB, a.Config.PostgresDSN(), a.Logger), nil
	case config.FeedAMQP:
		n, err := amqp.NewNotifier(a.Config.AMQPURL, a.Config.AMQPExchange, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append([]func() error{n.Close}, a.closers...)
		return n, nil
	default:
		return feed.NewLocalNotifier(), nil
	}
}

func newAuthenticator(cfg *config.Config) auth.Authenticator {
	if cfg.AuthMode == config.AuthJWT {
		return auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	}
	return auth.AnonymousAuthenticator{}
}

// NewSession returns a session bound to this app's ledger.
func (a *App) NewSession() *session.Session {
	return session.New(a.Authenticator, a.Service.Transaction, a.Service.Categories, a.Logger)
}

func (a *App) Rest() *api.Rest {
	rest := &api.Rest{
		Logger:        a.Logger,
		Port:          a.Config.Port,
		Service:       a.Service,
		Authenticator: a.Authenticator,
		NewSession:    a.NewSession,
	}
	if a.Storage.DB != nil {
		rest.StatusChecks = append(rest.StatusChecks, status.Check(a.Storage.DB.PingContext))
	}
	return rest
}

// RunFeed forwards change notifications to subscribers until ctx is done.
func (a *App) RunFeed(ctx context.Context) error {
	return a.Hub.Run(ctx)
}

// Serve runs the change feed and the HTTP server until ctx is cancelled or
// the server fails. The feed retries a failing notifier on its own.
func (a *App) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.RunFeed(ctx); err != nil {
			return fmt.Errorf("change feed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.Rest().Serve(ctx)
	})
	return g.Wait()
}

// Close releases everything New acquired, most recent first.
func (a *App) Close() error {
	var errs []error
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
