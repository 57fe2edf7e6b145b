package auth

import (
	"context"
	"net/http"

	"gatehouse/internal/models"
)

type contextKey string

const sessionContextKey contextKey = "session"

// RequireSession rejects requests without a valid session cookie and stores
// the session claims in the request context for downstream handlers
func RequireSession(sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := GetSessionCookie(r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := sm.Validate(token)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session claims stored by RequireSession
func SessionFromContext(ctx context.Context) (*models.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionContextKey).(*models.SessionClaims)
	return claims, ok
}
