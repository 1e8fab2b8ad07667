// Package auth establishes which user scope a caller may read and write.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// IdentityError means no scope could be established. No store operation
// may run without one.
type IdentityError struct {
	Err error
}

func (e *IdentityError) Error() string {
	return "identity: " + e.Err.Error()
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

// Authenticator turns a client credential into a user scope id.
type Authenticator interface {
	Establish(ctx context.Context, credential string) (string, error)
}

var deviceToken = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// AnonymousAuthenticator trusts a device-generated token and uses it as
// the scope id directly.
type AnonymousAuthenticator struct{}

func (AnonymousAuthenticator) Establish(ctx context.Context, credential string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &IdentityError{Err: err}
	}
	if credential == "" {
		return "", &IdentityError{Err: ErrMissingCredential}
	}
	if !deviceToken.MatchString(credential) {
		return "", &IdentityError{Err: fmt.Errorf("%w: device token must match %s", ErrInvalidCredential, deviceToken)}
	}
	return credential, nil
}

// JWTAuthenticator accepts HS256 tokens from a single issuer; the subject
// claim is the scope id.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (a *JWTAuthenticator) Establish(ctx context.Context, credential string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &IdentityError{Err: err}
	}
	if credential == "" {
		return "", &IdentityError{Err: ErrMissingCredential}
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !token.Valid {
		return "", &IdentityError{Err: fmt.Errorf("%w: %v", ErrInvalidCredential, err)}
	}
	if claims.Subject == "" {
		return "", &IdentityError{Err: fmt.Errorf("%w: subject missing", ErrInvalidCredential)}
	}
	return claims.Subject, nil
}

// IssueToken signs a token for subject valid for ttl.
func (a *JWTAuthenticator) IssueToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
