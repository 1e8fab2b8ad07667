package actions

import (
	"context"

	"github.com/carson-networks/budget-server/internal/storage"
)

// IAction is a unit of work run by an operator inside one storage writer.
// Returning an error rolls the writer back.
type IAction interface {
	Perform(ctx context.Context, writer *storage.Writer) error
}
