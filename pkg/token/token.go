// Package token validates the bearer tokens that the surrounding auth
// service issues for operators of the hub's control endpoints. Token
// issuance itself lives in that service, not here.
package token

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carries the operator identity embedded in a control token.
type Claims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// Manager verifies HMAC-signed control tokens.
type Manager struct {
	secretKey string
}

// NewManager creates a Manager with the shared signing secret.
func NewManager(secretKey string) *Manager {
	return &Manager{secretKey: secretKey}
}

// Validate parses and verifies a token string and returns its claims.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
