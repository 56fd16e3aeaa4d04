package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/xdido2/finance-tracker-backend/internal/auth"
	"github.com/xdido2/finance-tracker-backend/internal/httpx"
)

type ctxKey string

const userIDCtxKey = ctxKey("userID")

// WithUserID stores the authenticated user id in the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDCtxKey, userID)
}

// UserIDFromContext extracts the authenticated user id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDCtxKey).(uuid.UUID)
	return id, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// Auth attaches the user id to the request context when a valid bearer token
// is present. Requests without a token pass through unauthenticated.
func Auth(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if uid, err := tm.Verify(token); err == nil {
					r = r.WithContext(WithUserID(r.Context(), uid))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that do not carry a valid bearer token.
func RequireAuth(tm *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		uid, err := tm.Verify(token)
		if err != nil {
			httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
	})
}
