package storage

import (
	"context"

	"github.com/stephenafamo/bob"

	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

type Writer struct {
	tx           *bob.Tx
	Transactions sqlconfig.ITransactionTable
}

func NewWriter(tx bob.Tx) *Writer {
	return &Writer{
		tx:           &tx,
		Transactions: sqlconfig.NewTransactionsTableWithExecutor(tx),
	}
}

func (w *Writer) Commit() error {
	if w.tx == nil {
		return nil
	}
	return w.tx.Commit(context.Background())
}

func (w *Writer) Rollback() error {
	if w.tx == nil {
		return nil
	}
	return w.tx.Rollback(context.Background())
}
