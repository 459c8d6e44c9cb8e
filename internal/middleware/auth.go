// Package middleware holds the HTTP middleware shared by all module handlers.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/versostore/verso-backend/internal/token"
)

type ctxKey int

const (
	actorIDKey ctxKey = iota
	actorRoleKey
)

// RequireAuth validates the Bearer token and stores the actor's identity id
// and role in the request context.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := token.Validate(secret, raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), actorIDKey, claims.IdentityID)
			ctx = context.WithValue(ctx, actorRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the actor to the context when a valid Bearer token
// is present and lets the request through either way. Endpoints that serve
// both guests and customers (checkout, cart) use this.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if raw != "" {
				if claims, err := token.Validate(secret, raw); err == nil {
					ctx := context.WithValue(r.Context(), actorIDKey, claims.IdentityID)
					ctx = context.WithValue(ctx, actorRoleKey, claims.Role)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ActorID returns the authenticated identity id from the context, or ""
// when the request was unauthenticated.
func ActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorIDKey).(string)
	return id
}

// ActorRole returns the authenticated role from the context.
func ActorRole(ctx context.Context) string {
	role, _ := ctx.Value(actorRoleKey).(string)
	return role
}
