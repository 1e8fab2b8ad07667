package sqlconfig

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/scan"
)

const transactionsTableName = "transactions"

var transactionColumns = []any{
	"id", "user_scope", "amount", "kind", "category",
	"description", "transaction_date", "created_at",
}

var ErrTransactionNotFound = errors.New("transaction not found")

var _ ITransactionTable = (*TransactionsTable)(nil)

type TransactionsTable struct {
	exec bob.Executor
}

func NewTransactionsTable(db *sql.DB) *TransactionsTable {
	return &TransactionsTable{exec: bob.NewDB(db)}
}

// NewTransactionsTableWithExecutor binds the table to an open transaction.
func NewTransactionsTableWithExecutor(exec bob.Executor) *TransactionsTable {
	return &TransactionsTable{exec: exec}
}

// FindByID retrieves a transaction by primary key within a scope.
func (t *TransactionsTable) FindByID(ctx context.Context, scope string, id uuid.UUID) (*Transaction, error) {
	q := psql.Select(
		sm.Columns(transactionColumns...),
		sm.From(transactionsTableName),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
		sm.Where(psql.Quote("user_scope").EQ(psql.Arg(scope))),
	)
	row, err := bob.One(ctx, t.exec, q, scan.StructMapper[*Transaction]())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Insert creates a new transaction and returns the stored row. The id is
// generated here and created_at by the database clock.
func (t *TransactionsTable) Insert(ctx context.Context, create *TransactionCreate) (*Transaction, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	q := psql.Insert(
		im.Into(transactionsTableName,
			"id", "user_scope", "amount", "kind", "category", "description", "transaction_date"),
		im.Values(
			psql.Arg(id),
			psql.Arg(create.UserScope),
			psql.Arg(create.Amount),
			psql.Arg(create.Kind),
			psql.Arg(create.Category),
			psql.Arg(create.Description),
			psql.Arg(create.TransactionDate),
		),
		im.Returning(transactionColumns...),
	)
	return bob.One(ctx, t.exec, q, scan.StructMapper[*Transaction]())
}

// List returns transactions matching the filter, fetching one row past the
// limit so callers can tell whether another page exists.
func (t *TransactionsTable) List(ctx context.Context, filter *TransactionFilter) ([]*Transaction, error) {
	if filter == nil {
		return nil, errors.New("transaction filter is required")
	}
	queryMods := []bob.Mod[*dialect.SelectQuery]{
		sm.Columns(transactionColumns...),
		sm.From(transactionsTableName),
		sm.Where(psql.Quote("user_scope").EQ(psql.Arg(filter.UserScope))),
	}
	if filter.MaxCreationTime != nil {
		queryMods = append(queryMods, sm.Where(psql.Quote("created_at").LTE(psql.Arg(*filter.MaxCreationTime))))
	}
	if filter.Kind != "" {
		queryMods = append(queryMods, sm.Where(psql.Quote("kind").EQ(psql.Arg(filter.Kind))))
	}
	if filter.MonthPrefix != "" {
		queryMods = append(queryMods, sm.Where(psql.Quote("transaction_date").Like(psql.Arg(filter.MonthPrefix+"%"))))
	}
	if filter.Limit > 0 {
		queryMods = append(queryMods, sm.Limit(filter.Limit+1))
	}
	if filter.Offset > 0 {
		queryMods = append(queryMods, sm.Offset(filter.Offset))
	}
	queryMods = append(queryMods,
		sm.OrderBy(psql.Quote("created_at")).Desc(),
		sm.OrderBy(psql.Quote("id")).Desc(),
	)
	return bob.All(ctx, t.exec, psql.Select(queryMods...), scan.StructMapper[*Transaction]())
}
