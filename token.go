package bankxatm

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Session string `json:"sid"`
}

// TokenIssuer signs ledger handles into bearer tokens for the HTTP API.
// Tokens carry no expiry; a session ends when its handle is logged out.
type TokenIssuer struct {
	key []byte
}

func NewTokenIssuer(key []byte) *TokenIssuer {
	return &TokenIssuer{key: key}
}

func (t *TokenIssuer) Issue(h Handle) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		Session: h.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) Parse(tokenString string) (Handle, error) {
	claims := new(sessionClaims)
	_, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return t.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotAuthenticated, err.Error())
	}
	return ParseHandle(claims.Session)
}
