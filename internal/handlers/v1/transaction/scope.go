package transaction

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/carson-networks/budget-server/internal/auth"
)

var bearerSecurity = []map[string][]string{{auth.SecurityScheme: {}}}

func requireScope(ctx context.Context) (string, error) {
	scope, ok := auth.ScopeFromContext(ctx)
	if !ok {
		return "", huma.NewError(http.StatusUnauthorized, "no identity established")
	}
	return scope, nil
}
