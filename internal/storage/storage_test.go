package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

func TestMemoryStorage_WriteCommitsImmediately(t *testing.T) {
	s := NewMemoryStorage()

	writer, err := s.Write(context.Background())
	require.NoError(t, err)

	_, err = writer.Transactions.Insert(context.Background(), &sqlconfig.TransactionCreate{
		UserScope:       "alice",
		Amount:          decimal.RequireFromString("3.20"),
		Kind:            "expense",
		Category:        "Dining",
		Description:     "coffee",
		TransactionDate: "2025-01-02",
	})
	require.NoError(t, err)
	require.NoError(t, writer.Commit())
	require.NoError(t, writer.Rollback())

	rows, err := s.Transactions.List(context.Background(), &sqlconfig.TransactionFilter{UserScope: "alice"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NoError(t, s.Close())
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_transactions.up.sql")
	assert.Contains(t, names, "000001_create_transactions.down.sql")
}
