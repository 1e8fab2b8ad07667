package transaction

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/logging"
	"github.com/carson-networks/budget-server/internal/service"
)

// ListTransactionsCursor is returned with every non-final page and sent back
// unchanged for the next one. It pins the page size, the creation-time
// ceiling and the filter of the first request.
type ListTransactionsCursor struct {
	Position        int    `json:"position" minimum:"0" doc:"Offset of the next page"`
	Limit           int    `json:"limit" minimum:"1" maximum:"100" doc:"Page size"`
	MaxCreationTime string `json:"maxCreationTime" format:"date-time" doc:"Rows created after this are excluded"`
	Kind            string `json:"kind,omitempty" enum:"income,expense"`
	Month           string `json:"month,omitempty" pattern:"^[0-9]{4}-[0-9]{2}$"`
}

type ListTransactionsBody struct {
	Kind   string                  `json:"kind,omitempty" enum:"income,expense" doc:"Only income or only expenses"`
	Month  string                  `json:"month,omitempty" pattern:"^[0-9]{4}-[0-9]{2}$" doc:"Only transactions dated in this month"`
	Cursor *ListTransactionsCursor `json:"cursor,omitempty" doc:"Cursor from the previous page; its filter replaces kind and month"`
}

type ListTransactionsInput struct {
	Body ListTransactionsBody
}

type ListTransactionsResponseBody struct {
	Transactions []Transaction           `json:"transactions" doc:"Newest first"`
	NextCursor   *ListTransactionsCursor `json:"nextCursor,omitempty" doc:"Absent on the last page"`
}

type ListTransactionsOutput struct {
	Body ListTransactionsResponseBody
}

type transactionLister interface {
	ListTransactions(ctx context.Context, scope string, filter service.ListFilter, cursor *service.TransactionCursor) ([]service.Transaction, *service.TransactionCursor, error)
}

// ListTransactionsHandler handles POST /v1/transaction/list.
type ListTransactionsHandler struct {
	TransactionService transactionLister
}

func NewListTransactionsHandler(svc transactionLister) *ListTransactionsHandler {
	return &ListTransactionsHandler{TransactionService: svc}
}

func (h *ListTransactionsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-transactions",
		Method:      http.MethodPost,
		Path:        "/v1/transaction/list",
		Summary:     "List transactions",
		Description: "Pages through the caller's ledger, newest first, optionally narrowed to one kind or month.",
		Tags:        []string{"Transactions"},
		Security:    bearerSecurity,
	}, h.handle)
}

// parseListTransactionsInput returns the filter for a first page, or the
// cursor (with its own filter) for a later one.
func parseListTransactionsInput(input *ListTransactionsInput) (service.ListFilter, *service.TransactionCursor, error) {
	filter := service.ListFilter{Kind: category.Kind(input.Body.Kind), Month: input.Body.Month}
	c := input.Body.Cursor
	if c == nil {
		return filter, nil, nil
	}

	if c.Position < 0 {
		return filter, nil, huma.NewError(http.StatusBadRequest, "cursor position must be non-negative")
	}

	maxCreationTime, err := time.Parse(time.RFC3339Nano, c.MaxCreationTime)
	if err != nil {
		return filter, nil, huma.NewError(http.StatusBadRequest, "invalid cursor maxCreationTime", err)
	}

	return filter, &service.TransactionCursor{
		Position:        c.Position,
		Limit:           c.Limit,
		MaxCreationTime: maxCreationTime,
		Filter:          service.ListFilter{Kind: category.Kind(c.Kind), Month: c.Month},
	}, nil
}

func (h *ListTransactionsHandler) handle(ctx context.Context, input *ListTransactionsInput) (*ListTransactionsOutput, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return nil, err
	}
	filter, cursor, err := parseListTransactionsInput(input)
	if err != nil {
		return nil, err
	}

	logData := logging.GetLogData(ctx)
	var stopTimer func()
	if logData != nil {
		stopTimer = logData.AddTiming("listTransactionsMs")
	}
	transactions, next, err := h.TransactionService.ListTransactions(ctx, scope, filter, cursor)
	if stopTimer != nil {
		stopTimer()
	}
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to list transactions", err)
	}
	if logData != nil {
		logData.AddData("transactionCount", len(transactions))
	}

	out := &ListTransactionsOutput{}
	out.Body.Transactions = make([]Transaction, len(transactions))
	for i, tx := range transactions {
		out.Body.Transactions[i] = FromService(tx)
	}
	if next != nil {
		out.Body.NextCursor = &ListTransactionsCursor{
			Position:        next.Position,
			Limit:           next.Limit,
			MaxCreationTime: next.MaxCreationTime.Format(time.RFC3339Nano),
			Kind:            string(next.Filter.Kind),
			Month:           next.Filter.Month,
		}
	}
	return out, nil
}
