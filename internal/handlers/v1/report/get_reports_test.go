package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carson-networks/budget-server/internal/auth"
	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/service"
)

type mockSnapshotter struct {
	mock.Mock
}

func (m *mockSnapshotter) Snapshot(ctx context.Context, scope string) ([]service.Transaction, error) {
	args := m.Called(ctx, scope)
	txs, _ := args.Get(0).([]service.Transaction)
	return txs, args.Error(1)
}

func newTestAPI(t *testing.T, svc transactionSnapshotter) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	api.UseMiddleware(auth.Middleware(api, auth.AnonymousAuthenticator{}))
	NewGetReportsHandler(svc, category.Default()).Register(api)
	return api
}

func sampleTransactions() []service.Transaction {
	return []service.Transaction{
		{Amount: decimal.NewFromInt(3000), Kind: category.KindIncome, Category: "Salary", Date: "2025-06-01"},
		{Amount: decimal.NewFromInt(1000), Kind: category.KindExpense, Category: "Rent", Date: "2025-06-02"},
		{Amount: decimal.NewFromInt(250), Kind: category.KindExpense, Category: "Removed", Date: "2025-06-03"},
		{Amount: decimal.NewFromInt(40), Kind: category.KindExpense, Category: "Dining", Date: "2025-05-20"},
	}
}

func TestHTTP_GetReports(t *testing.T) {
	mockSvc := new(mockSnapshotter)
	mockSvc.On("Snapshot", mock.Anything, "device-1").Return(sampleTransactions(), nil)

	resp := newTestAPI(t, mockSvc).Get("/v1/report", "Authorization: Bearer device-1")

	assert.Equal(t, http.StatusOK, resp.Code)
	var body GetReportsResponseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Reports, 2)

	june := body.Reports[0]
	assert.Equal(t, "2025-06", june.Month)
	assert.Equal(t, "3000.00", june.TotalIncome)
	assert.Equal(t, "1250.00", june.TotalExpense)
	assert.Equal(t, "1750.00", june.NetBalance)
	require.Len(t, june.Breakdown, 2)
	assert.Equal(t, "Rent", june.Breakdown[0].Category)
	assert.Equal(t, "80.00", june.Breakdown[0].Percentage)
	assert.Equal(t, category.UnknownIcon, june.Breakdown[1].Icon)

	assert.Equal(t, "2025-05", body.Reports[1].Month)
	mockSvc.AssertExpectations(t)
}

func TestHTTP_GetReports_MonthFilter(t *testing.T) {
	mockSvc := new(mockSnapshotter)
	mockSvc.On("Snapshot", mock.Anything, "device-1").Return(sampleTransactions(), nil)

	resp := newTestAPI(t, mockSvc).Get("/v1/report?month=2025-05", "Authorization: Bearer device-1")

	assert.Equal(t, http.StatusOK, resp.Code)
	var body GetReportsResponseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Reports, 1)
	assert.Equal(t, "2025-05", body.Reports[0].Month)
}

func TestHTTP_GetReports_Empty(t *testing.T) {
	mockSvc := new(mockSnapshotter)
	mockSvc.On("Snapshot", mock.Anything, "device-1").Return([]service.Transaction{}, nil)

	resp := newTestAPI(t, mockSvc).Get("/v1/report", "Authorization: Bearer device-1")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"reports":[]}`, stripSchema(t, resp.Body.Bytes()))
}

func TestHTTP_GetReports_ServiceError(t *testing.T) {
	mockSvc := new(mockSnapshotter)
	mockSvc.On("Snapshot", mock.Anything, mock.Anything).Return(nil, errors.New("database unavailable"))

	resp := newTestAPI(t, mockSvc).Get("/v1/report", "Authorization: Bearer device-1")

	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

// stripSchema drops huma's $schema link so bodies can be compared.
func stripSchema(t *testing.T, body []byte) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	delete(m, "$schema")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}
