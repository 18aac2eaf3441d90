package middleware

import (
	"log"
	"net/http"

	"github.com/moviebase/gateapi/internal/auth"
)

// NewSessionResolver creates middleware that resolves the session cookie into
// a principal on the request context. Requests without a resolvable session
// pass through anonymously; rejecting them is the authorizer's job.
func NewSessionResolver(store auth.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := store.Resolve(r.Context(), cookie.Value)
			if err != nil {
				log.Printf("session lookup failed: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if principal == nil {
				// Expired, revoked, or never issued; all look the same here.
				next.ServeHTTP(w, r)
				return
			}

			ctx := auth.SetPrincipal(r.Context(), *principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
