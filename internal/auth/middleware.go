package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/glyscope/glyscope/internal/server"
)

// claimsKey is a context key for the authenticated claims.
type claimsKey struct{}

// ClaimsFromContext returns the authenticated claims from the request
// context, or nil when the request is unauthenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey{}).(*Claims); ok {
		return c
	}
	return nil
}

// publicPaths don't require authentication.
var publicPaths = map[string]bool{
	"/api/v1/auth/login": true,
}

// TokenMiddleware validates bearer tokens on API routes. Non-API paths
// (healthz, readyz, metrics) and public paths are skipped. WebSocket
// paths are skipped too: browsers can't set headers on WS connections,
// so the ws handler validates a query-parameter token itself.
func TokenMiddleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if strings.HasPrefix(r.URL.Path, "/api/v1/ws/") {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				server.Unauthorized(w, "missing or invalid authorization header", r.URL.Path)
				return
			}

			claims, err := tokens.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				server.Unauthorized(w, "invalid or expired access token", r.URL.Path)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
