package middleware

import (
	"context"
	"net/http"
	"strings"

	"policedir/internal/domain/auth"
	"policedir/internal/transport/http/api"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// UserContext is the authenticated caller attached to the request context.
type UserContext struct {
	Email   string
	KGID    string
	IsAdmin bool
}

// Auth attaches the caller from a Bearer token when present. It never
// rejects; RequireAuth and RequireAdmin enforce.
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

			ctx := context.WithValue(r.Context(), ctxKeyUser, UserContext{
				Email:   claims.Email,
				KGID:    claims.KGID,
				IsAdmin: claims.IsAdmin,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(UserContext)
	return user, ok
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, api.CodeUnauthorized, "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			api.Fail(w, http.StatusUnauthorized, api.CodeUnauthorized, "authentication required", GetRequestID(r.Context()))
			return
		}
		if !user.IsAdmin {
			api.Fail(w, http.StatusForbidden, api.CodeForbidden, "admin access required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
