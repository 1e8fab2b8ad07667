package service

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/carson-networks/budget-server/internal/category"
)

// Transaction is a stored transaction in the service layer.
type Transaction struct {
	ID          uuid.UUID
	Amount      decimal.Decimal
	Kind        category.Kind
	Category    string
	Description string
	// Date is the user-supplied calendar date (YYYY-MM-DD), used for
	// monthly grouping. CreatedAt is the server's insertion time.
	Date      string
	CreatedAt time.Time
}

// NormalizedTransaction is a draft that passed validation, ready to store.
type NormalizedTransaction struct {
	Amount      decimal.Decimal
	Kind        category.Kind
	Category    string
	Description string
	Date        string
}

// Draft is the unvalidated user input for a new transaction.
type Draft struct {
	Amount      string
	Kind        category.Kind
	Category    string
	Description string
	Date        string
}

// ListFilter narrows a listing. Zero values match everything.
type ListFilter struct {
	Kind category.Kind
	// Month matches transactions whose date starts with it, e.g. "2025-06".
	Month string
}

// TransactionCursor identifies a position in a paginated result set
// and carries the limit, maxCreationTime and filter so subsequent pages are
// consistent.
type TransactionCursor struct {
	Position        int
	Limit           int
	MaxCreationTime time.Time
	Filter          ListFilter
}
