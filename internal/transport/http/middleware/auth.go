package middleware

import (
	"context"
	"net/http"
	"strings"

	"hrflow/internal/domain/auth"
	"hrflow/internal/requestctx"
	"hrflow/internal/transport/http/api"
)

// Auth attaches the caller when a valid bearer token is present. It never
// rejects; RequireAuth and RequirePermission do that.
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
			if err != nil || !claims.Role.Valid() {
				next.ServeHTTP(w, r)
				return
			}

			ctx := requestctx.WithUser(r.Context(), auth.UserContext{
				EmployeeCode: claims.EmployeeCode,
				Name:         claims.Name,
				Role:         claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	return requestctx.GetUser(ctx)
}
