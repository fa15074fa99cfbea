package api

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nibblemarket/go-chatclient/internal/types"
)

const (
	userIdClaim = "user-id"
	roleClaim   = "role"
)

// TokenSource supplies the viewer's bearer token. It is read fresh on every
// call so login and logout take effect without rebuilding the client.
type TokenSource func() string

// StaticToken wraps a fixed token string as a TokenSource.
func StaticToken(token string) TokenSource {
	return func() string { return token }
}

// IdentityFromToken extracts the viewer's id and role from the bearer token's
// claims. The token is parsed without signature verification; the client holds
// no signing key, and the backend re-verifies the token on every request.
func IdentityFromToken(tokenString string) (types.Identity, error) {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return types.Identity{}, fmt.Errorf("parse token: %w", err)
	}

	userId, ok := claims[userIdClaim].(float64)
	if !ok {
		return types.Identity{}, fmt.Errorf("invalid user id claim")
	}

	role, ok := claims[roleClaim].(string)
	if !ok {
		return types.Identity{}, fmt.Errorf("invalid role claim")
	}

	switch types.SenderType(role) {
	case types.SenderCustomer, types.SenderSeller:
	default:
		return types.Identity{}, fmt.Errorf("unknown role %q", role)
	}

	return types.Identity{
		UserId: int(userId),
		Role:   types.SenderType(role),
	}, nil
}
