package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAnonymousAuthenticator(t *testing.T) {
	tests := []struct {
		name       string
		credential string
		wantScope  string
		wantErr    error
	}{
		{"device token", "device_01-abc", "device_01-abc", nil},
		{"empty", "", "", ErrMissingCredential},
		{"bad characters", "alice@example.com", "", ErrInvalidCredential},
		{"too long", strings.Repeat("a", 65), "", ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := AnonymousAuthenticator{}.Establish(context.Background(), tt.credential)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.wantScope, scope)
				return
			}
			var identityErr *IdentityError
			assert.True(t, errors.As(err, &identityErr))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTAuthenticator_RoundTrip(t *testing.T) {
	a := NewJWTAuthenticator(testSecret, "budget-server")
	token, err := a.IssueToken("alice", time.Hour)
	require.NoError(t, err)

	scope, err := a.Establish(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", scope)
}

func TestJWTAuthenticator_Rejects(t *testing.T) {
	a := NewJWTAuthenticator(testSecret, "budget-server")

	expired := NewJWTAuthenticator(testSecret, "budget-server")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.IssueToken("alice", time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewJWTAuthenticator(testSecret, "someone-else").IssueToken("alice", time.Hour)
	require.NoError(t, err)

	wrongSecret, err := NewJWTAuthenticator("ffffffffffffffffffffffffffffffff", "budget-server").IssueToken("alice", time.Hour)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "budget-server",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"expired":      expiredToken,
		"other issuer": otherIssuer,
		"wrong secret": wrongSecret,
		"no subject":   noSubject,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Establish(context.Background(), token)
			var identityErr *IdentityError
			assert.True(t, errors.As(err, &identityErr))
		})
	}
}

func TestBearerCredential(t *testing.T) {
	assert.Equal(t, "abc", BearerCredential("Bearer abc"))
	assert.Equal(t, "abc", BearerCredential("bearer  abc "))
	assert.Equal(t, "", BearerCredential("Basic abc"))
	assert.Equal(t, "", BearerCredential(""))
}

type whoamiOutput struct {
	Body struct {
		Scope string `json:"scope"`
	}
}

func TestMiddleware(t *testing.T) {
	_, api := humatest.New(t)
	api.UseMiddleware(Middleware(api, AnonymousAuthenticator{}))

	handler := func(ctx context.Context, _ *struct{}) (*whoamiOutput, error) {
		out := &whoamiOutput{}
		out.Body.Scope, _ = ScopeFromContext(ctx)
		return out, nil
	}
	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Security:    []map[string][]string{{SecurityScheme: {}}},
	}, handler)
	huma.Register(api, huma.Operation{
		OperationID: "open",
		Method:      http.MethodGet,
		Path:        "/open",
	}, handler)

	resp := api.Get("/whoami", "Authorization: Bearer device-1")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"scope":"device-1"`)

	resp = api.Get("/whoami")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/whoami", "Authorization: Bearer bad token!")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/open")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"scope":""`)
}
