package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// SecurityScheme is the name operations use to require a bearer credential.
const SecurityScheme = "bearer"

type ctxKey string

const scopeKey ctxKey = "user_scope"

// Middleware establishes the scope for operations that declare bearer
// security and rejects the request with 401 when it cannot.
func Middleware(api huma.API, authenticator Authenticator) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if !requiresBearer(ctx.Operation()) {
			next(ctx)
			return
		}

		credential := BearerCredential(ctx.Header("Authorization"))
		scope, err := authenticator.Establish(ctx.Context(), credential)
		if err != nil {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "unable to establish identity", err)
			return
		}

		next(huma.WithValue(ctx, scopeKey, scope))
	}
}

// BearerCredential extracts the token from an Authorization header value.
func BearerCredential(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func ScopeFromContext(ctx context.Context) (string, bool) {
	scope, ok := ctx.Value(scopeKey).(string)
	return scope, ok && scope != ""
}

// WithScope is used by tests and tools that bypass the middleware.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

func requiresBearer(op *huma.Operation) bool {
	if op == nil {
		return false
	}
	for _, requirement := range op.Security {
		if _, ok := requirement[SecurityScheme]; ok {
			return true
		}
	}
	return false
}
