//go:build integration

package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/carson-networks/budget-server/internal/storage/feed"
	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

func startPostgres(t *testing.T) (*sql.DB, string) {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("budget"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, _ := test.NewNullLogger()
	result, err := RunMigrations(db, logger)
	require.NoError(t, err)
	assert.Equal(t, uint(1), result.PostMigrationVersion)

	return db, dsn
}

func TestPostgres_TransactionsTable(t *testing.T) {
	db, _ := startPostgres(t)
	s := &Storage{DB: db, Transactions: sqlconfig.NewTransactionsTable(db)}
	ctx := context.Background()

	writer, err := s.Write(ctx)
	require.NoError(t, err)
	first, err := writer.Transactions.Insert(ctx, &sqlconfig.TransactionCreate{
		UserScope:       "alice",
		Amount:          decimal.RequireFromString("1200.00"),
		Kind:            "expense",
		Category:        "Rent",
		Description:     "N/A",
		TransactionDate: "2025-02-01",
	})
	require.NoError(t, err)
	require.NoError(t, writer.Commit())

	writer, err = s.Write(ctx)
	require.NoError(t, err)
	second, err := writer.Transactions.Insert(ctx, &sqlconfig.TransactionCreate{
		UserScope:       "alice",
		Amount:          decimal.RequireFromString("3000"),
		Kind:            "income",
		Category:        "Salary",
		Description:     "Feb pay",
		TransactionDate: "2025-02-28",
	})
	require.NoError(t, err)
	require.NoError(t, writer.Commit())

	assert.True(t, second.CreatedAt.After(first.CreatedAt))
	assert.True(t, decimal.RequireFromString("3000").Equal(second.Amount))

	rows, err := s.Transactions.List(ctx, &sqlconfig.TransactionFilter{UserScope: "alice"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)

	rows, err = s.Transactions.List(ctx, &sqlconfig.TransactionFilter{UserScope: "alice", Kind: "expense", MonthPrefix: "2025-02"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].ID)

	rows, err = s.Transactions.List(ctx, &sqlconfig.TransactionFilter{UserScope: "alice", MonthPrefix: "2025-03"})
	require.NoError(t, err)
	assert.Empty(t, rows)

	found, err := s.Transactions.FindByID(ctx, "alice", first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", found.Category)

	_, err = s.Transactions.FindByID(ctx, "bob", first.ID)
	assert.ErrorIs(t, err, sqlconfig.ErrTransactionNotFound)
}

func TestPostgres_RollbackDiscardsInsert(t *testing.T) {
	db, _ := startPostgres(t)
	s := &Storage{DB: db, Transactions: sqlconfig.NewTransactionsTable(db)}
	ctx := context.Background()

	writer, err := s.Write(ctx)
	require.NoError(t, err)
	_, err = writer.Transactions.Insert(ctx, &sqlconfig.TransactionCreate{
		UserScope: "alice", Amount: decimal.NewFromInt(5), Kind: "expense",
		Category: "Other", Description: "N/A", TransactionDate: "2025-02-01",
	})
	require.NoError(t, err)
	require.NoError(t, writer.Rollback())

	rows, err := s.Transactions.List(ctx, &sqlconfig.TransactionFilter{UserScope: "alice"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPostgres_NotifierRoundTrip(t *testing.T) {
	db, dsn := startPostgres(t)
	logger, _ := test.NewNullLogger()
	notifier := feed.NewPostgresNotifier(db, dsn, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scopes := make(chan string, 4)
	go func() { _ = notifier.Listen(ctx, func(scope string) { scopes <- scope }) }()

	require.Eventually(t, func() bool {
		require.NoError(t, notifier.Publish(ctx, "alice"))
		select {
		case scope := <-scopes:
			return scope == "alice"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 200*time.Millisecond)
}
