package operator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/budget-server/internal/operator/actions"
	"github.com/carson-networks/budget-server/internal/storage"
	"github.com/carson-networks/budget-server/internal/storage/sqlconfig"
)

func startDelegator(t *testing.T, s *storage.Storage, workers int) *OperatorDelegator {
	t.Helper()
	logger, _ := test.NewNullLogger()
	d := NewOperatorDelegator(s, workers, logger)
	d.Start()
	t.Cleanup(d.Stop)
	return d
}

func TestProcess_CreateTransactionStoresResult(t *testing.T) {
	d := startDelegator(t, storage.NewMemoryStorage(), 2)

	action := &actions.CreateTransaction{
		Scope:           "alice",
		Amount:          decimal.RequireFromString("9.99"),
		Kind:            "expense",
		Category:        "Dining",
		Description:     "N/A",
		TransactionDate: "2025-05-05",
	}
	require.NoError(t, d.Process(context.Background(), action))

	require.NotNil(t, action.Stored)
	assert.Equal(t, "alice", action.Stored.UserScope)
	assert.Equal(t, "Dining", action.Stored.Category)
}

func TestProcess_PropagatesActionError(t *testing.T) {
	mockTable := sqlconfig.NewMockITransactionTable(t)
	mockTable.EXPECT().Insert(mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
	d := startDelegator(t, &storage.Storage{Transactions: mockTable}, 1)

	action := &actions.CreateTransaction{Scope: "alice", Amount: decimal.NewFromInt(1)}
	err := d.Process(context.Background(), action)

	assert.EqualError(t, err, "disk full")
	assert.Nil(t, action.Stored)
}

func TestProcess_RejectsMissingScope(t *testing.T) {
	d := startDelegator(t, storage.NewMemoryStorage(), 1)
	err := d.Process(context.Background(), &actions.CreateTransaction{Amount: decimal.NewFromInt(1)})
	assert.EqualError(t, err, "transaction scope is required")
}

func TestProcess_CancelledContext(t *testing.T) {
	d := startDelegator(t, storage.NewMemoryStorage(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Process(ctx, &actions.CreateTransaction{Scope: "alice", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_AfterStop(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := NewOperatorDelegator(storage.NewMemoryStorage(), 1, logger)
	d.Start()
	d.Stop()
	d.Stop()

	err := d.Process(context.Background(), &actions.CreateTransaction{Scope: "alice"})
	assert.ErrorIs(t, err, ErrStopped)
}

type countingAction struct {
	count *atomic.Int32
}

func (c countingAction) Perform(context.Context, *storage.Writer) error {
	c.count.Add(1)
	return nil
}

func TestProcess_ConcurrentCallers(t *testing.T) {
	d := startDelegator(t, storage.NewMemoryStorage(), 4)

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Process(context.Background(), countingAction{count: &count}))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(50), count.Load())
}

type panickingAction struct{}

func (panickingAction) Perform(context.Context, *storage.Writer) error {
	panic("boom")
}

func TestProcess_RecoversPanickingAction(t *testing.T) {
	d := startDelegator(t, storage.NewMemoryStorage(), 1)

	err := d.Process(context.Background(), panickingAction{})
	assert.ErrorIs(t, err, ErrActionPanicked)
	assert.ErrorContains(t, err, "boom")

	// the worker survived
	var count atomic.Int32
	require.NoError(t, d.Process(context.Background(), countingAction{count: &count}))
	assert.Equal(t, int32(1), count.Load())
}
