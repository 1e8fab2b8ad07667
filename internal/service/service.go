package service

import (
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/storage"
	"github.com/carson-networks/budget-server/internal/storage/feed"
)

// Service holds all business logic services.
type Service struct {
	Transaction *TransactionService
	Categories  *category.Registry
}

// NewService creates a new Service with the given storage.
func NewService(store *storage.Storage, operator ActionProcessor, hub *feed.Hub, registry *category.Registry, log *logrus.Logger) *Service {
	return &Service{
		Transaction: NewTransactionService(store, operator, hub, log),
		Categories:  registry,
	}
}
