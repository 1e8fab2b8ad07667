package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/operator/actions"
	"github.com/carson-networks/budget-server/internal/storage"
	"github.com/carson-networks/budget-server/internal/storage/feed"
	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

const defaultLimit = 20

// ActionProcessor runs write actions, normally the operator queue.
type ActionProcessor interface {
	Process(ctx context.Context, action actions.IAction) error
}

// TransactionService handles transaction business logic.
type TransactionService struct {
	storage  *storage.Storage
	operator ActionProcessor
	hub      *feed.Hub
	log      *logrus.Logger
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(store *storage.Storage, operator ActionProcessor, hub *feed.Hub, log *logrus.Logger) *TransactionService {
	return &TransactionService{
		storage:  store,
		operator: operator,
		hub:      hub,
		log:      log,
	}
}

// CreateTransaction appends a validated transaction to scope and announces
// the change to live subscriptions. Store failures come back as *WriteError.
// A failed announcement is only logged: the row is already durable and the
// next successful notification will carry it.
func (s *TransactionService) CreateTransaction(ctx context.Context, scope string, transaction NormalizedTransaction) (Transaction, error) {
	action := &actions.CreateTransaction{
		Scope:           scope,
		Amount:          transaction.Amount,
		Kind:            string(transaction.Kind),
		Category:        transaction.Category,
		Description:     transaction.Description,
		TransactionDate: transaction.Date,
	}
	if err := s.operator.Process(ctx, action); err != nil {
		return Transaction{}, &WriteError{Err: err}
	}
	if action.Stored == nil {
		return Transaction{}, &WriteError{Err: errors.New("store returned no row")}
	}

	if err := s.hub.Publish(ctx, scope); err != nil {
		s.log.WithError(err).WithField("scope", scope).Warn("TransactionService.CreateTransaction.publish failed")
	}

	return rowToTransaction(action.Stored), nil
}

// GetTransaction returns one transaction from scope.
func (s *TransactionService) GetTransaction(ctx context.Context, scope string, id uuid.UUID) (Transaction, error) {
	row, err := s.storage.Transactions.FindByID(ctx, scope, id)
	if errors.Is(err, sqlconfig.ErrTransactionNotFound) {
		return Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return Transaction{}, err
	}
	return rowToTransaction(row), nil
}

// Snapshot returns every transaction in scope, newest first.
func (s *TransactionService) Snapshot(ctx context.Context, scope string) ([]Transaction, error) {
	rows, err := s.storage.Transactions.List(ctx, &sqlconfig.TransactionFilter{UserScope: scope})
	if err != nil {
		return nil, err
	}
	transactions := make([]Transaction, len(rows))
	for i, row := range rows {
		transactions[i] = rowToTransaction(row)
	}
	return transactions, nil
}

// ListTransactions returns a page of transactions using cursor-based
// pagination. A cursor's filter takes precedence over the one given.
func (s *TransactionService) ListTransactions(ctx context.Context, scope string, filter ListFilter, cursor *TransactionCursor) ([]Transaction, *TransactionCursor, error) {
	limit := defaultLimit
	offset := 0
	var maxCreationTime *time.Time
	if cursor != nil {
		limit = cursor.Limit
		offset = cursor.Position
		maxCreationTime = &cursor.MaxCreationTime
		filter = cursor.Filter
	}

	rows, err := s.storage.Transactions.List(ctx, &sqlconfig.TransactionFilter{
		UserScope:       scope,
		Limit:           limit,
		Offset:          offset,
		MaxCreationTime: maxCreationTime,
		Kind:            string(filter.Kind),
		MonthPrefix:     filter.Month,
	})
	if err != nil {
		return nil, nil, err
	}

	if len(rows) == 0 {
		return nil, nil, nil
	}

	var nextCursor *TransactionCursor
	if len(rows) > limit {
		rows = rows[:limit]

		cursorMaxCreationTime := rows[0].CreatedAt
		if maxCreationTime != nil {
			cursorMaxCreationTime = *maxCreationTime
		}

		nextCursor = &TransactionCursor{
			Position:        offset + limit,
			Limit:           limit,
			MaxCreationTime: cursorMaxCreationTime,
			Filter:          filter,
		}
	}

	convertedTransactions := make([]Transaction, len(rows))
	for i, row := range rows {
		convertedTransactions[i] = rowToTransaction(row)
	}

	return convertedTransactions, nextCursor, nil
}

// Subscribe delivers the full list for scope now and after every change.
// onSnapshot and onError are never called concurrently for one
// subscription. Errors are *FeedError. The returned function stops
// delivery and may be called more than once.
func (s *TransactionService) Subscribe(scope string, onSnapshot func([]Transaction), onError func(error)) func() {
	return s.hub.Subscribe(scope,
		func(ctx context.Context) {
			transactions, err := s.Snapshot(ctx, scope)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.WithError(err).WithField("scope", scope).Warn("TransactionService.Subscribe.snapshot failed")
				onError(&FeedError{Err: err})
				return
			}
			onSnapshot(transactions)
		},
		func(err error) {
			onError(&FeedError{Err: err})
		},
	)
}

func rowToTransaction(row *sqlconfig.Transaction) Transaction {
	return Transaction{
		ID:          row.ID,
		Amount:      row.Amount,
		Kind:        category.Kind(row.Kind),
		Category:    row.Category,
		Description: row.Description,
		Date:        row.TransactionDate,
		CreatedAt:   row.CreatedAt,
	}
}
