package actions

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/carson-networks/budget-server/internal/storage"
	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

// CreateTransaction appends one already-validated transaction to a scope.
// Stored holds the persisted row once Perform succeeds.
type CreateTransaction struct {
	Scope           string
	Amount          decimal.Decimal
	Kind            string
	Category        string
	Description     string
	TransactionDate string

	Stored *sqlconfig.Transaction
	IAction
}

func (t *CreateTransaction) Perform(ctx context.Context, writer *storage.Writer) error {
	if t.Scope == "" {
		return errors.New("transaction scope is required")
	}

	storageCreate := &sqlconfig.TransactionCreate{
		UserScope:       t.Scope,
		Amount:          t.Amount,
		Kind:            t.Kind,
		Category:        t.Category,
		Description:     t.Description,
		TransactionDate: t.TransactionDate,
	}
	row, err := writer.Transactions.Insert(ctx, storageCreate)
	if err != nil {
		return err
	}

	t.Stored = row
	return nil
}
