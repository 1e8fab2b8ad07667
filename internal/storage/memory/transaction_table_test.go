package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

func insert(t *testing.T, table *TransactionsTable, scope, category string) *sqlconfig.Transaction {
	t.Helper()
	row, err := table.Insert(context.Background(), &sqlconfig.TransactionCreate{
		UserScope:       scope,
		Amount:          decimal.RequireFromString("12.50"),
		Kind:            "expense",
		Category:        category,
		Description:     "N/A",
		TransactionDate: "2025-03-04",
	})
	require.NoError(t, err)
	return row
}

func TestInsert_AssignsIDAndIncreasingCreatedAt(t *testing.T) {
	frozen := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	table := NewTransactionsTable().WithClock(func() time.Time { return frozen })

	first := insert(t, table, "alice", "Rent")
	second := insert(t, table, "alice", "Dining")

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.CreatedAt.After(first.CreatedAt), "created_at must increase under a frozen clock")
}

func TestList_ScopedAndNewestFirst(t *testing.T) {
	table := NewTransactionsTable()
	older := insert(t, table, "alice", "Rent")
	newer := insert(t, table, "alice", "Dining")
	insert(t, table, "bob", "Health")

	rows, err := table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)

	rows, err = table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestList_LimitOffsetAndMaxCreationTime(t *testing.T) {
	table := NewTransactionsTable()
	var rows []*sqlconfig.Transaction
	for i := 0; i < 5; i++ {
		rows = append(rows, insert(t, table, "alice", "Other"))
	}

	page, err := table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 3, "one extra row signals another page")

	page, err = table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice", Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice", Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)

	cutoff := rows[2].CreatedAt
	page, err = table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice", MaxCreationTime: &cutoff})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, rows[2].ID, page[0].ID)
}

func TestFindByID(t *testing.T) {
	table := NewTransactionsTable()
	row := insert(t, table, "alice", "Rent")

	found, err := table.FindByID(context.Background(), "alice", row.ID)
	require.NoError(t, err)
	assert.Equal(t, row.ID, found.ID)

	_, err = table.FindByID(context.Background(), "bob", row.ID)
	assert.ErrorIs(t, err, sqlconfig.ErrTransactionNotFound)
}

func TestReturnedRowsAreCopies(t *testing.T) {
	table := NewTransactionsTable()
	row := insert(t, table, "alice", "Rent")
	row.Category = "mutated"

	found, err := table.FindByID(context.Background(), "alice", row.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", found.Category)
}

func TestList_KindAndMonthFilters(t *testing.T) {
	table := NewTransactionsTable()
	for _, c := range []sqlconfig.TransactionCreate{
		{UserScope: "alice", Amount: decimal.NewFromInt(1), Kind: "income", Category: "Salary", TransactionDate: "2025-03-01"},
		{UserScope: "alice", Amount: decimal.NewFromInt(2), Kind: "expense", Category: "Rent", TransactionDate: "2025-03-02"},
		{UserScope: "alice", Amount: decimal.NewFromInt(3), Kind: "expense", Category: "Rent", TransactionDate: "2025-04-02"},
	} {
		_, err := table.Insert(context.Background(), &c)
		require.NoError(t, err)
	}

	rows, err := table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice", Kind: "expense"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice", MonthPrefix: "2025-03"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = table.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice", Kind: "expense", MonthPrefix: "2025-04"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-04-02", rows[0].TransactionDate)
}

func TestList_RequiresFilter(t *testing.T) {
	table := NewTransactionsTable()
	insert(t, table, "alice", "Rent")

	rows, err := table.List(context.Background(), nil)
	assert.EqualError(t, err, "transaction filter is required")
	assert.Nil(t, rows)
}
