package http

import (
	"context"
	"errors"

	"postings-ledger/internal/security"
)

type contextKey string

const contextKeyClaims contextKey = "claims"

var errUnauthenticated = errors.New("user is not provided in request context")

func withClaims(ctx context.Context, claims *security.UserClaims) context.Context {
	return context.WithValue(ctx, contextKeyClaims, claims)
}

// GetUserFromContext returns the authenticated user recorded on writes.
func GetUserFromContext(ctx context.Context) (string, error) {
	claims, ok := ctx.Value(contextKeyClaims).(*security.UserClaims)
	if !ok || claims.User == "" {
		return "", errUnauthenticated
	}
	return claims.User, nil
}
