package report

import (
	"github.com/carson-networks/budget-server/internal/category"
	engine "github.com/carson-networks/budget-server/internal/report"
)

// CategoryShare is one expense category's slice of a month.
type CategoryShare struct {
	Category   string `json:"category"`
	Icon       string `json:"icon"`
	Amount     string `json:"amount" doc:"Decimal amount, two places"`
	Percentage string `json:"percentage" doc:"Share of the month's expenses, 0-100"`
}

// MonthlyReport is the API response model for one month.
type MonthlyReport struct {
	Month        string          `json:"month" doc:"First seven characters of the transaction date, normally YYYY-MM"`
	TotalIncome  string          `json:"totalIncome"`
	TotalExpense string          `json:"totalExpense"`
	NetBalance   string          `json:"netBalance"`
	Breakdown    []CategoryShare `json:"breakdown" doc:"Expense categories, largest first"`
}

// FromEngine converts computed reports to their API form.
func FromEngine(reports []engine.MonthlyReport, registry *category.Registry) []MonthlyReport {
	out := make([]MonthlyReport, len(reports))
	for i, r := range reports {
		shares := r.SortedBreakdown()
		breakdown := make([]CategoryShare, len(shares))
		for j, share := range shares {
			breakdown[j] = CategoryShare{
				Category:   share.Category,
				Icon:       registry.Icon(share.Category),
				Amount:     share.Amount.StringFixed(2),
				Percentage: share.Percentage.StringFixed(2),
			}
		}
		out[i] = MonthlyReport{
			Month:        r.MonthKey,
			TotalIncome:  r.TotalIncome.StringFixed(2),
			TotalExpense: r.TotalExpense.StringFixed(2),
			NetBalance:   r.NetBalance.StringFixed(2),
			Breakdown:    breakdown,
		}
	}
	return out
}
