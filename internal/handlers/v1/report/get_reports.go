package report

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/budget-server/internal/auth"
	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/logging"
	engine "github.com/carson-networks/budget-server/internal/report"
	"github.com/carson-networks/budget-server/internal/service"
)

type GetReportsInput struct {
	Month string `query:"month" doc:"Only return this month key, e.g. 2025-06"`
}

type GetReportsResponseBody struct {
	Reports []MonthlyReport `json:"reports" doc:"Monthly reports, newest month first"`
}

type GetReportsOutput struct {
	Body GetReportsResponseBody
}

type transactionSnapshotter interface {
	Snapshot(ctx context.Context, scope string) ([]service.Transaction, error)
}

// GetReportsHandler handles GET /v1/report.
type GetReportsHandler struct {
	TransactionService transactionSnapshotter
	Categories         *category.Registry
}

func NewGetReportsHandler(svc transactionSnapshotter, registry *category.Registry) *GetReportsHandler {
	return &GetReportsHandler{TransactionService: svc, Categories: registry}
}

func (h *GetReportsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-reports",
		Method:      http.MethodGet,
		Path:        "/v1/report",
		Summary:     "Monthly reports",
		Description: "Computes income, expense, net balance and expense breakdown per month from the caller's current transactions.",
		Tags:        []string{"Reports"},
		Security:    []map[string][]string{{auth.SecurityScheme: {}}},
	}, h.handle)
}

func (h *GetReportsHandler) handle(ctx context.Context, input *GetReportsInput) (*GetReportsOutput, error) {
	scope, ok := auth.ScopeFromContext(ctx)
	if !ok {
		return nil, huma.NewError(http.StatusUnauthorized, "no identity established")
	}
	logData := logging.GetLogData(ctx)

	transactions, err := h.TransactionService.Snapshot(ctx, scope)
	if err != nil {
		return nil, huma.NewError(http.StatusInternalServerError, "failed to load transactions", err)
	}

	reports := engine.BuildReports(transactions)
	if input.Month != "" {
		filtered := reports[:0]
		for _, r := range reports {
			if r.MonthKey == input.Month {
				filtered = append(filtered, r)
			}
		}
		reports = filtered
	}

	if logData != nil {
		logData.AddData("transactionCount", len(transactions))
		logData.AddData("reportCount", len(reports))
	}

	return &GetReportsOutput{Body: GetReportsResponseBody{Reports: FromEngine(reports, h.Categories)}}, nil
}
