package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-identity-server/auth"
	"github.com/jrsteele09/go-identity-server/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the authenticated user
	ContextKeyUser ContextKey = "user"
)

// RequireAuth is middleware that validates a Bearer access token and, when
// roles are given, requires at least one of them. The authenticated user is
// injected into the request context.
func (s *Server) RequireAuth(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := bearerToken(r)
			if err != nil {
				writeJSONError(w, "invalid_token", err.Error(), http.StatusUnauthorized)
				return
			}

			user, err := s.guard.RequireRoles(rawToken, roles...)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, auth.ErrInsufficientRole) {
					status = http.StatusForbidden
				}
				writeJSONError(w, "invalid_token", err.Error(), status)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}

func userFromContext(ctx context.Context) *users.User {
	user, _ := ctx.Value(ContextKeyUser).(*users.User)
	return user
}
