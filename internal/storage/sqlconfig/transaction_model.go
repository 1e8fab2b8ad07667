package sqlconfig

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// Transaction represents a transaction record.
type Transaction struct {
	ID              uuid.UUID       `db:"id"`
	UserScope       string          `db:"user_scope"`
	Amount          decimal.Decimal `db:"amount"`
	Kind            string          `db:"kind"`
	Category        string          `db:"category"`
	Description     string          `db:"description"`
	TransactionDate string          `db:"transaction_date"`
	CreatedAt       time.Time       `db:"created_at"`
}

// TransactionCreate is the input for creating a new transaction.
type TransactionCreate struct {
	UserScope       string
	Amount          decimal.Decimal
	Kind            string
	Category        string
	Description     string
	TransactionDate string
}

// TransactionFilter specifies filters for listing transactions.
// Limit 0 returns every row for the scope. Empty Kind and MonthPrefix
// match every row.
type TransactionFilter struct {
	UserScope       string
	Limit           int
	Offset          int
	MaxCreationTime *time.Time
	Kind            string
	MonthPrefix     string
}

// ITransactionTable defines the interface for transaction storage operations.
// Rows come back newest first (created_at desc, id desc) and are always
// restricted to a single user scope.
//
//go:generate mockery --name ITransactionTable --output mock_ITransactionTable.go
type ITransactionTable interface {
	FindByID(ctx context.Context, scope string, id uuid.UUID) (*Transaction, error)
	Insert(ctx context.Context, create *TransactionCreate) (*Transaction, error)
	List(ctx context.Context, filter *TransactionFilter) ([]*Transaction, error)
}
