package transaction

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/logging"
	"github.com/carson-networks/budget-server/internal/service"
)

// CreateTransactionBody is the request body for creating a transaction.
// Every field is optional at the schema level so that the validator, not
// the router, decides what is missing.
type CreateTransactionBody struct {
	Amount      string `json:"amount,omitempty" doc:"Decimal amount, must be positive"`
	Kind        string `json:"kind,omitempty" doc:"Ignored: the kind always follows the category"`
	Category    string `json:"category,omitempty" doc:"Category name"`
	Description string `json:"description,omitempty" doc:"Optional free text"`
	Date        string `json:"date,omitempty" doc:"Transaction date, YYYY-MM-DD"`
}

// CreateTransactionInput is the Huma input for creating a transaction.
type CreateTransactionInput struct {
	Body CreateTransactionBody
}

// CreateTransactionOutput is the Huma output for creating a transaction.
type CreateTransactionOutput struct {
	Body Transaction
}

// transactionCreator is the interface for appending transactions.
type transactionCreator interface {
	CreateTransaction(ctx context.Context, scope string, transaction service.NormalizedTransaction) (service.Transaction, error)
}

// CreateTransactionHandler handles POST /v1/transaction.
type CreateTransactionHandler struct {
	TransactionService transactionCreator
	Categories         *category.Registry
}

// NewCreateTransactionHandler creates a new CreateTransactionHandler.
func NewCreateTransactionHandler(svc transactionCreator, registry *category.Registry) *CreateTransactionHandler {
	return &CreateTransactionHandler{TransactionService: svc, Categories: registry}
}

// Register registers the create transaction endpoint with the Huma API.
func (h *CreateTransactionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-transaction",
		Method:        http.MethodPost,
		Path:          "/v1/transaction",
		Summary:       "Create transaction",
		Description:   "Validates a draft and appends it to the caller's ledger.",
		Tags:          []string{"Transactions"},
		DefaultStatus: http.StatusCreated,
		Security:      bearerSecurity,
	}, h.handle)
}

func parseCreateTransactionInput(input *CreateTransactionInput) service.Draft {
	return service.Draft{
		Amount:      input.Body.Amount,
		Kind:        category.Kind(input.Body.Kind),
		Category:    input.Body.Category,
		Description: input.Body.Description,
		Date:        input.Body.Date,
	}
}

func (h *CreateTransactionHandler) handle(ctx context.Context, input *CreateTransactionInput) (*CreateTransactionOutput, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return nil, err
	}
	logData := logging.GetLogData(ctx)

	normalized, err := service.ValidateDraft(parseCreateTransactionInput(input), h.Categories)
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		if logData != nil {
			logData.AddData("rejectReason", string(validationErr.Reason))
		}
		return nil, huma.Error422UnprocessableEntity(string(validationErr.Reason), &huma.ErrorDetail{
			Location: "body." + validationErr.Field,
			Message:  validationErr.Error(),
		})
	}
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to validate transaction", err)
	}

	var stopTimer func()
	if logData != nil {
		stopTimer = logData.AddTiming("createTransactionMs")
	}
	stored, err := h.TransactionService.CreateTransaction(ctx, scope, normalized)
	if stopTimer != nil {
		stopTimer()
	}
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to create transaction", err)
	}

	return &CreateTransactionOutput{Body: FromService(stored)}, nil
}
