package auth

import (
	"context"
	"net/http"

	"Storefront/pkg/kit"
)

type ctxKey string

const userKey ctxKey = "user"

type User struct {
	ID    string
	Email string
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey).(User)
	return u, ok
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// RequireSession rejects requests without a valid bearer token and puts the
// caller on the request context.
func RequireSession(tm *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := kit.BearerToken(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}

			claims, err := tm.Parse(tok)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}

			ctx := WithUser(r.Context(), User{ID: claims.UserID(), Email: claims.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionKey buckets rate limits by user, falling back to the client IP.
func SessionKey(r *http.Request) string {
	if u, ok := UserFromContext(r.Context()); ok {
		return "user:" + u.ID
	}
	return "ip:" + kit.ClientIP(r)
}
