package transaction

import (
	"time"

	"github.com/carson-networks/budget-server/internal/service"
)

// Transaction is the API response model for a transaction.
// It is used only for responses, not for request bodies.
type Transaction struct {
	ID          string `json:"id" doc:"Transaction UUID"`
	Amount      string `json:"amount" doc:"Decimal amount, two places"`
	Kind        string `json:"kind" enum:"income,expense" doc:"Derived from the category"`
	Category    string `json:"category" doc:"Category name"`
	Description string `json:"description" doc:"Free text, N/A when none was given"`
	Date        string `json:"date" doc:"User-supplied transaction date"`
	CreatedAt   string `json:"createdAt" doc:"RFC3339 server insertion time"`
}

// FromService converts a service transaction to its API form.
func FromService(tx service.Transaction) Transaction {
	return Transaction{
		ID:          tx.ID.String(),
		Amount:      tx.Amount.StringFixed(2),
		Kind:        string(tx.Kind),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339Nano),
	}
}
