package appMiddleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const UserIDKey contextKey = "userID"

// Identity headers forwarded by the gateway after it has validated the caller.
const (
	UserIDHeader = "X-User-ID"
	RoleHeader   = "X-User-Role"
)

// ResolveIdentity extracts the already-authenticated user identity forwarded by
// the auth gateway and adds it to the request context. Token validation happens
// upstream; this service only trusts the resolved identity headers.
func ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userIDStr := r.Header.Get(UserIDHeader)
		if userIDStr == "" {
			http.Error(w, "Missing identity header", http.StatusUnauthorized)
			return
		}

		if _, err := uuid.Parse(userIDStr); err != nil {
			http.Error(w, "Invalid identity header", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userIDStr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group on the role header forwarded by the gateway.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(RoleHeader) != role {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext retrieves the resolved user ID set by ResolveIdentity.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
