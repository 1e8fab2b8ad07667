package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/carson-networks/budget-server/internal/category"
)

// DefaultDescription replaces a blank description.
const DefaultDescription = "N/A"

// ValidateDraft checks a draft in a fixed order (amount present, amount
// parses, amount positive, category, date) and returns the normalized form.
// The stored kind always comes from the category, never from the draft.
func ValidateDraft(draft Draft, registry *category.Registry) (NormalizedTransaction, error) {
	rawAmount := strings.TrimSpace(draft.Amount)
	if rawAmount == "" {
		return NormalizedTransaction{}, &ValidationError{Reason: ReasonMissingRequiredField, Field: "amount"}
	}

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return NormalizedTransaction{}, &ValidationError{Reason: ReasonInvalidAmount, Field: "amount"}
	}
	// Currency precision; anything that rounds away to nothing is not a
	// positive amount.
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return NormalizedTransaction{}, &ValidationError{Reason: ReasonInvalidAmount, Field: "amount"}
	}

	categoryName := strings.TrimSpace(draft.Category)
	if categoryName == "" {
		return NormalizedTransaction{}, &ValidationError{Reason: ReasonMissingRequiredField, Field: "category"}
	}

	date := strings.TrimSpace(draft.Date)
	if date == "" {
		return NormalizedTransaction{}, &ValidationError{Reason: ReasonMissingRequiredField, Field: "date"}
	}

	description := strings.TrimSpace(draft.Description)
	if description == "" {
		description = DefaultDescription
	}

	return NormalizedTransaction{
		Amount:      amount,
		Kind:        registry.Classify(categoryName),
		Category:    categoryName,
		Description: description,
		Date:        date,
	}, nil
}
