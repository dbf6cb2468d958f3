package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"scholarhub/pkg/token"
)

type contextKey string

// OperatorContextKey carries the authenticated operator claims.
const OperatorContextKey contextKey = "operator"

// ControlGuard authenticates requests on the control endpoints. Two
// credentials are accepted: a bearer token signed by the auth service, or
// an operator API key whose bcrypt hash is configured on the hub. With
// neither configured the guard is open, which is only meant for local
// development.
type ControlGuard struct {
	tokens     *token.Manager
	apiKeyHash []byte
	log        *slog.Logger
}

// NewControlGuard creates the guard. A nil manager disables bearer auth;
// an empty hash disables API key auth.
func NewControlGuard(tokens *token.Manager, apiKeyHash string, logger *slog.Logger) *ControlGuard {
	if logger == nil {
		logger = slog.Default()
	}
	g := &ControlGuard{
		tokens: tokens,
		log:    logger,
	}
	if apiKeyHash != "" {
		g.apiKeyHash = []byte(apiKeyHash)
	}
	if g.tokens == nil && g.apiKeyHash == nil {
		logger.Warn("control endpoints are unauthenticated; set a JWT secret or API key hash for production")
	}
	return g
}

// Authenticate wraps a control endpoint.
func (g *ControlGuard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.tokens == nil && g.apiKeyHash == nil {
			next.ServeHTTP(w, r)
			return
		}

		if g.apiKeyHash != nil {
			if key := r.Header.Get("X-Api-Key"); key != "" {
				if err := bcrypt.CompareHashAndPassword(g.apiKeyHash, []byte(key)); err == nil {
					next.ServeHTTP(w, r)
					return
				}
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid api key"})
				return
			}
		}

		if g.tokens != nil {
			authHeader := r.Header.Get("Authorization")
			scheme, value, found := strings.Cut(authHeader, " ")
			if found && scheme == "Bearer" {
				claims, err := g.tokens.Validate(value)
				if err == nil {
					ctx := context.WithValue(r.Context(), OperatorContextKey, claims)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				g.log.Warn("control token rejected", "err", err)
			}
		}

		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	})
}
