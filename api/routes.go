package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/budget-server/internal/auth"
	categoryHandlers "github.com/carson-networks/budget-server/internal/handlers/v1/category"
	reportHandlers "github.com/carson-networks/budget-server/internal/handlers/v1/report"
	"github.com/carson-networks/budget-server/internal/handlers/v1/status"
	streamHandlers "github.com/carson-networks/budget-server/internal/handlers/v1/stream"
	transactionHandlers "github.com/carson-networks/budget-server/internal/handlers/v1/transaction"
	"github.com/carson-networks/budget-server/internal/logging"
	"github.com/carson-networks/budget-server/internal/service"
	"github.com/carson-networks/budget-server/internal/session"
)

type Rest struct {
	Logger        *logrus.Logger
	Port          string
	Service       *service.Service
	Authenticator auth.Authenticator
	NewSession    func() *session.Session
	StatusChecks  []status.Check

	// closed on shutdown so long-lived streams let go of their connections
	streamsDone chan struct{}
	endStreams  sync.Once
}

// Handler builds the mux with every route registered.
func (r *Rest) Handler() http.Handler {
	mux := http.NewServeMux()

	statusHandler := status.NewHandler(r.StatusChecks...)
	mux.HandleFunc("/status", logging.LoggingWrapper("Status", r.Logger, statusHandler.Handler))

	humaConfig := huma.DefaultConfig("Budget Server", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		auth.SecurityScheme: {
			Type:   "http",
			Scheme: "bearer",
		},
	}
	api := humago.New(mux, humaConfig)
	api.UseMiddleware(logging.Middleware(r.Logger))
	api.UseMiddleware(auth.Middleware(api, r.Authenticator))

	registry := r.Service.Categories
	transactionHandlers.NewCreateTransactionHandler(r.Service.Transaction, registry).Register(api)
	transactionHandlers.NewGetTransactionHandler(r.Service.Transaction).Register(api)
	transactionHandlers.NewListTransactionsHandler(r.Service.Transaction).Register(api)
	reportHandlers.NewGetReportsHandler(r.Service.Transaction, registry).Register(api)
	categoryHandlers.NewListCategoriesHandler(registry).Register(api)
	streamHandlers.NewStreamHandler(r.NewSession, registry).EndOn(r.streamsClosing()).Register(api)

	return mux
}

func (r *Rest) streamsClosing() <-chan struct{} {
	if r.streamsDone == nil {
		r.streamsDone = make(chan struct{})
	}
	return r.streamsDone
}

func (r *Rest) closeStreams() {
	r.endStreams.Do(func() {
		r.streamsClosing()
		close(r.streamsDone)
	})
}

// Serve blocks until ctx is cancelled or the listener fails.
func (r *Rest) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+r.Port)
	if err != nil {
		r.Logger.WithError(err).Error("HttpServer.Serve.listen error")
		return err
	}
	return r.serveOn(ctx, listener)
}

func (r *Rest) serveOn(ctx context.Context, listener net.Listener) error {
	server := http.Server{
		Handler:           r.Handler(),
		ReadTimeout:       time.Duration(30) * time.Second,
		IdleTimeout:       time.Duration(10) * time.Second,
		ReadHeaderTimeout: time.Duration(10) * time.Second,
		// No WriteTimeout: /v1/stream holds the response open.
	}
	server.RegisterOnShutdown(r.closeStreams)

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	r.Logger.WithField("addr", listener.Addr().String()).Info("HttpServer.Serve.listening")
	err := server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		r.Logger.WithError(err).Error("HttpServer.Serve.listen error")
		return err
	}

	r.Logger.Info("HttpServer.Serve.shutting down")
	return <-shutdownErr
}
