// Package memory holds an in-process ITransactionTable used by the memory
// data backend and by tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

var _ sqlconfig.ITransactionTable = (*TransactionsTable)(nil)

type TransactionsTable struct {
	mu      sync.RWMutex
	byScope map[string][]*sqlconfig.Transaction
	last    time.Time
	now     func() time.Time
}

func NewTransactionsTable() *TransactionsTable {
	return &TransactionsTable{
		byScope: make(map[string][]*sqlconfig.Transaction),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (t *TransactionsTable) WithClock(now func() time.Time) *TransactionsTable {
	t.now = now
	return t
}

func (t *TransactionsTable) FindByID(_ context.Context, scope string, id uuid.UUID) (*sqlconfig.Transaction, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, row := range t.byScope[scope] {
		if row.ID == id {
			c := *row
			return &c, nil
		}
	}
	return nil, sqlconfig.ErrTransactionNotFound
}

// Insert stores the row with a fresh id. created_at is strictly increasing
// across the table even when the clock stalls or goes backwards.
func (t *TransactionsTable) Insert(ctx context.Context, create *sqlconfig.TransactionCreate) (*sqlconfig.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	createdAt := t.now().UTC()
	if !createdAt.After(t.last) {
		createdAt = t.last.Add(time.Microsecond)
	}
	t.last = createdAt

	row := &sqlconfig.Transaction{
		ID:              id,
		UserScope:       create.UserScope,
		Amount:          create.Amount,
		Kind:            create.Kind,
		Category:        create.Category,
		Description:     create.Description,
		TransactionDate: create.TransactionDate,
		CreatedAt:       createdAt,
	}
	t.byScope[create.UserScope] = append(t.byScope[create.UserScope], row)

	c := *row
	return &c, nil
}

func (t *TransactionsTable) List(ctx context.Context, filter *sqlconfig.TransactionFilter) ([]*sqlconfig.Transaction, error) {
	if filter == nil {
		return nil, errors.New("transaction filter is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	rows := make([]*sqlconfig.Transaction, 0, len(t.byScope[filter.UserScope]))
	for _, row := range t.byScope[filter.UserScope] {
		if filter.MaxCreationTime != nil && row.CreatedAt.After(*filter.MaxCreationTime) {
			continue
		}
		if filter.Kind != "" && row.Kind != filter.Kind {
			continue
		}
		if !strings.HasPrefix(row.TransactionDate, filter.MonthPrefix) {
			continue
		}
		c := *row
		rows = append(rows, &c)
	}
	t.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID.String() > rows[j].ID.String()
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(rows) {
			return []*sqlconfig.Transaction{}, nil
		}
		rows = rows[filter.Offset:]
	}
	if filter.Limit > 0 && len(rows) > filter.Limit+1 {
		rows = rows[:filter.Limit+1]
	}
	return rows, nil
}
