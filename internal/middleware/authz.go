package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/moviebase/gateapi/internal/auth"
	"github.com/moviebase/gateapi/internal/policy"
)

// AuthzDependencies provides the collaborators needed for route
// authorization decisions.
type AuthzDependencies struct {
	Router *policy.Router

	// LoginPath is where unauthenticated browser navigations are redirected,
	// typically /oauth2/authorization/{defaultProvider}.
	LoginPath string
}

// NewRouteAuthz constructs middleware that enforces the route policy table.
// Public routes pass through for everyone; protected routes require a
// principal on the context. Unauthenticated API clients get a 401 JSON body,
// while browser navigations are redirected into the login flow.
func NewRouteAuthz(deps AuthzDependencies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflights never carry credentials; the CORS layer answers them.
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			_, authenticated := auth.PrincipalFrom(r.Context())

			decision, err := deps.Router.Decide(r.URL.Path, authenticated)
			if err != nil {
				http.Error(w, "authorization error", http.StatusInternalServerError)
				return
			}
			if decision == policy.Permit {
				next.ServeHTTP(w, r)
				return
			}

			if deps.LoginPath != "" && isBrowserNavigation(r) {
				target := deps.LoginPath + "?redirect_uri=" + url.QueryEscape(requestURL(r))
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		})
	}
}

// isBrowserNavigation reports whether the request looks like a top-level
// browser navigation rather than a programmatic API call.
func isBrowserNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
