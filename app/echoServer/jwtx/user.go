// app/echoServer/jwtx/user.go
package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Identity is the resolved principal carried by a verified token.
type Identity struct {
	UserID    int64
	Role      string
	SessionID string
}

// FromContext extracts the identity from the claims stored by the echo-jwt
// middleware. The parse step stores jwt.MapClaims under "user".
func FromContext(c echo.Context) (Identity, error) {
	claims, ok := c.Get("user").(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("no jwt claims in context")
	}

	sub, ok := claims["sub"].(float64)
	if !ok {
		return Identity{}, errors.New("sub missing in claims")
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return Identity{}, errors.New("role missing in claims")
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return Identity{}, errors.New("sid missing in claims")
	}
	return Identity{UserID: int64(sub), Role: role, SessionID: sid}, nil
}
