package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stephenafamo/bob"

	"github.com/carson-networks/budget-server/internal/config"
	"github.com/carson-networks/budget-server/internal/storage/memory"
	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

type Storage struct {
	// DB is nil for the memory backend.
	DB           *sql.DB
	Transactions sqlconfig.ITransactionTable
}

func NewStorage(env *config.Config, log *logrus.Logger) (*Storage, error) {
	if env.DataBackend == config.BackendMemory {
		log.Info("NewStorage.using memory backend")
		return NewMemoryStorage(), nil
	}

	db, err := sql.Open("postgres", env.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres at %s:%s: %w", env.PostgresAddress, env.PostgresPort, err)
	}

	return &Storage{
		DB:           db,
		Transactions: sqlconfig.NewTransactionsTable(db),
	}, nil
}

func NewMemoryStorage() *Storage {
	return &Storage{Transactions: memory.NewTransactionsTable()}
}

// Write opens a unit of work. Against Postgres this is a database
// transaction; the memory backend commits each call as it happens.
func (s *Storage) Write(ctx context.Context) (*Writer, error) {
	if s.DB == nil {
		return &Writer{Transactions: s.Transactions}, nil
	}
	tx, err := bob.NewDB(s.DB).BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return NewWriter(tx), nil
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
