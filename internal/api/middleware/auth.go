package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/activmedica/backend/internal/application/services"
)

type contextKey string

const claimsContextKey contextKey = "auth.claims"

// TokenResolver maps a bearer token to session claims.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*services.Claims, error)
}

// ContextWithClaims returns a context carrying the given claims.
func ContextWithClaims(ctx context.Context, claims *services.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the authenticated caller's claims, if any.
func ClaimsFromContext(ctx context.Context) (*services.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*services.Claims)
	return claims, ok
}

// AuthMiddleware rejects requests without a resolvable bearer token and
// stores the resolved claims in the request context.
func AuthMiddleware(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
