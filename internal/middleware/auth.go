package middleware

import (
	"context"
	"net/http"
	"strings"

	"staffdir/internal/auth"
	"staffdir/internal/requestctx"
)

// Auth attaches the caller identity from a valid bearer token. Missing
// or invalid tokens pass through unauthenticated; handlers decide
// which routes require an identity.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestctx.WithIdentity(r.Context(), requestctx.Identity{
				Email:     claims.Email,
				FirstName: claims.FirstName,
				LastName:  claims.LastName,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetIdentity(ctx context.Context) (requestctx.Identity, bool) {
	return requestctx.GetIdentity(ctx)
}
