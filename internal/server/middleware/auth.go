package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pvaldes/stockfolio/internal/domain"
)

type accountIDKey struct{}

// AccountResolver maps an API token to its owning account.
type AccountResolver interface {
	GetByToken(ctx context.Context, token string) (domain.Account, error)
}

// Auth returns middleware that resolves the request's bearer token (or
// X-API-Key header) to an account and stores the account ID in the request
// context. Requests without a valid token receive 401.
func Auth(accounts AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			acct, err := accounts.GetByToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					writeUnauthorized(w, "invalid authentication token")
					return
				}
				http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey{}, acct.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountID returns the authenticated account ID stored by Auth, or the
// empty string when the request was not authenticated.
func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey{}).(string)
	return id
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
