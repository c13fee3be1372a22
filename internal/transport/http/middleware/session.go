package middleware

import (
	"context"
	"net/http"

	"feedsync/internal/httputil"
	"feedsync/internal/identity"
	"feedsync/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the signed-in user's ID
	UserIDKey contextKey = "user_id"
)

// RequireSession rejects requests while nobody is signed in, and puts the
// signed-in user's ID on the request context otherwise.
func RequireSession(provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			me, ok := provider.Current()
			if !ok {
				httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Sign in required")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, me.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or 0 and false if not found
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
