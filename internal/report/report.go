// Package report turns a transaction list into monthly summaries. It is
// pure: the same input always yields the same output.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/carson-networks/budget-server/internal/category"
	"github.com/carson-networks/budget-server/internal/service"
)

const monthKeyLength = 7

var hundred = decimal.NewFromInt(100)

// MonthlyReport aggregates one calendar month, keyed "YYYY-MM".
type MonthlyReport struct {
	MonthKey     string
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetBalance   decimal.Decimal
	// Expense transactions only.
	CategoryBreakdown map[string]decimal.Decimal
}

// CategoryShare is one row of a month's expense breakdown.
type CategoryShare struct {
	Category   string
	Amount     decimal.Decimal
	Percentage decimal.Decimal
}

// MonthKey is the first seven characters of a date, or the whole string
// when shorter.
func MonthKey(date string) string {
	if len(date) < monthKeyLength {
		return date
	}
	return date[:monthKeyLength]
}

// BuildReports groups transactions by the month of their date and returns
// the reports newest month first.
func BuildReports(transactions []service.Transaction) []MonthlyReport {
	byMonth := make(map[string]*MonthlyReport)
	for _, tx := range transactions {
		key := MonthKey(tx.Date)
		r, ok := byMonth[key]
		if !ok {
			r = &MonthlyReport{
				MonthKey:          key,
				TotalIncome:       decimal.Zero,
				TotalExpense:      decimal.Zero,
				CategoryBreakdown: make(map[string]decimal.Decimal),
			}
			byMonth[key] = r
		}

		if tx.Kind == category.KindIncome {
			r.TotalIncome = r.TotalIncome.Add(tx.Amount)
			continue
		}
		r.TotalExpense = r.TotalExpense.Add(tx.Amount)
		r.CategoryBreakdown[tx.Category] = r.CategoryBreakdown[tx.Category].Add(tx.Amount)
	}

	reports := make([]MonthlyReport, 0, len(byMonth))
	for _, r := range byMonth {
		r.NetBalance = r.TotalIncome.Sub(r.TotalExpense)
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].MonthKey > reports[j].MonthKey
	})
	return reports
}

// SortedBreakdown lists expense categories by amount, largest first, ties
// broken by name. Percentages are of TotalExpense, rounded to 2 places.
func (r MonthlyReport) SortedBreakdown() []CategoryShare {
	shares := make([]CategoryShare, 0, len(r.CategoryBreakdown))
	for name, amount := range r.CategoryBreakdown {
		pct := decimal.Zero
		if !r.TotalExpense.IsZero() {
			pct = amount.Mul(hundred).Div(r.TotalExpense).Round(2)
		}
		shares = append(shares, CategoryShare{Category: name, Amount: amount, Percentage: pct})
	}
	sort.Slice(shares, func(i, j int) bool {
		if c := shares[i].Amount.Cmp(shares[j].Amount); c != 0 {
			return c > 0
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}
