package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moviebase/gateapi/internal/auth"
	"github.com/moviebase/gateapi/internal/config"
)

// AuthHandlerOptions bundles the collaborators of the login flow handlers.
type AuthHandlerOptions struct {
	Cfg        *config.Config
	Sessions   auth.Store
	States     *auth.StateRegistry
	Clients    map[string]auth.IdentityClient
	CookieName string
}

// AuthHandlers implements the login state machine endpoints.
type AuthHandlers struct {
	cfg        *config.Config
	sessions   auth.Store
	states     *auth.StateRegistry
	clients    map[string]auth.IdentityClient
	cookieName string
}

// NewAuthHandlers constructs the login flow handlers.
func NewAuthHandlers(opts AuthHandlerOptions) *AuthHandlers {
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = auth.DefaultCookieName
	}
	return &AuthHandlers{
		cfg:        opts.Cfg,
		sessions:   opts.Sessions,
		states:     opts.States,
		clients:    opts.Clients,
		cookieName: cookieName,
	}
}

// HandleLoginStart initiates the authorization code flow against the named
// provider. An optional redirect_uri query parameter selects the post-login
// destination; it is honored only when its origin is in the CORS allow list,
// otherwise the configured front-end URL is used.
func (h *AuthHandlers) HandleLoginStart(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	client, ok := h.clients[providerName]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown identity provider")
		return
	}

	redirectURI := h.sanitizeRedirectURI(r.URL.Query().Get("redirect_uri"))

	state, err := h.states.Issue(providerName, redirectURI)
	if err != nil {
		log.Printf("login start: failed to issue state: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to initiate login")
		return
	}

	http.Redirect(w, r, client.AuthCodeURL(state), http.StatusFound)
}

// HandleLoginCallback completes the authorization code flow: it consumes the
// anti-forgery state, exchanges the code, and establishes a session. Every
// failure sends the browser to the configured error page; the state is gone
// either way, so a retry must start a fresh flow.
func (h *AuthHandlers) HandleLoginCallback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")

	if errCode := r.URL.Query().Get("error"); errCode != "" {
		log.Printf("login callback: provider %s returned error %q", providerName, errCode)
		// Consume the state so the aborted flow cannot be resumed.
		if state := r.URL.Query().Get("state"); state != "" {
			_, _ = h.states.Consume(state)
		}
		h.redirectToError(w, r, "provider_error")
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		log.Printf("login callback: missing state or code for provider %s", providerName)
		h.redirectToError(w, r, "invalid_request")
		return
	}

	pending, err := h.states.Consume(state)
	if err != nil {
		log.Printf("login callback: %v", err)
		h.redirectToError(w, r, "invalid_state")
		return
	}
	if pending.Provider != providerName {
		log.Printf("login callback: state issued for provider %s presented to %s", pending.Provider, providerName)
		h.redirectToError(w, r, "invalid_state")
		return
	}

	client, ok := h.clients[providerName]
	if !ok {
		h.redirectToError(w, r, "invalid_request")
		return
	}

	principal, err := completeLogin(r.Context(), client, code)
	if err != nil {
		log.Printf("login callback: %v", err)
		h.redirectToError(w, r, "exchange_failed")
		return
	}

	token, err := h.sessions.Create(r.Context(), *principal)
	if err != nil {
		log.Printf("login callback: failed to create session: %v", err)
		h.redirectToError(w, r, "session_failed")
		return
	}

	h.setSessionCookie(w, r, token)

	target := pending.RedirectURI
	if target == "" {
		target = h.cfg.Web.FrontendURL
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// completeLogin exchanges the authorization code and normalizes the returned
// identity into a principal.
func completeLogin(ctx context.Context, client auth.IdentityClient, code string) (*auth.Principal, error) {
	identity, err := client.Exchange(ctx, code)
	if err != nil {
		if !errors.Is(err, auth.ErrIdentityProvider) {
			err = errors.Join(auth.ErrIdentityProvider, err)
		}
		return nil, err
	}

	return &auth.Principal{
		Subject:  identity.Subject,
		Name:     identity.Name,
		Email:    identity.Email,
		Provider: identity.Provider,
	}, nil
}

// currentUserResponse is the body of GET /auth/user.
type currentUserResponse struct {
	Authenticated bool   `json:"authenticated"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
}

// HandleCurrentUser reports the caller's identity. Anonymous callers get
// {"authenticated": false} with 200; the endpoint never challenges.
func (h *AuthHandlers) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, currentUserResponse{Authenticated: false})
		return
	}

	writeJSON(w, http.StatusOK, currentUserResponse{
		Authenticated: true,
		Name:          principal.Name,
		Email:         principal.Email,
	})
}

// HandleLogout revokes the caller's session and clears the cookie. The
// operation is idempotent; logging out without a session still succeeds.
func (h *AuthHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			log.Printf("logout: failed to revoke session: %v", err)
		}
	}

	h.clearSessionCookie(w, r)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Logged out successfully"))
}

// sanitizeRedirectURI returns the requested post-login destination when its
// origin is allowed, or "" to fall back to the front-end URL.
func (h *AuthHandlers) sanitizeRedirectURI(raw string) string {
	if raw == "" || h.cfg == nil {
		return ""
	}

	// Backslashes survive url.Parse with empty Scheme and Host, but browsers
	// fold "/\" into "//", turning a relative path into a protocol-relative
	// redirect to a foreign host.
	if strings.ContainsRune(raw, '\\') {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	// Relative paths stay on the gateway's own origin. "//host" is not
	// relative; it parses with a Host and falls through to the origin check.
	if parsed.Scheme == "" && parsed.Host == "" &&
		strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return raw
	}

	origin := parsed.Scheme + "://" + parsed.Host
	for _, allowed := range h.allowedOrigins() {
		if strings.EqualFold(origin, allowed) {
			return raw
		}
	}
	return ""
}

func (h *AuthHandlers) allowedOrigins() []string {
	origins := append([]string(nil), h.cfg.CORS.AllowedOrigins...)
	if serverOrigin := originOf(h.cfg.ServerURL); serverOrigin != "" {
		origins = append(origins, serverOrigin)
	}
	if frontendOrigin := originOf(h.cfg.Web.FrontendURL); frontendOrigin != "" {
		origins = append(origins, frontendOrigin)
	}
	return origins
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

func (h *AuthHandlers) redirectToError(w http.ResponseWriter, r *http.Request, reason string) {
	target := h.cfg.Web.LoginErrorURL
	if strings.Contains(target, "?") {
		target += "&reason=" + url.QueryEscape(reason)
	} else {
		target += "?reason=" + url.QueryEscape(reason)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	ttl := auth.DefaultSessionTTL
	if h.cfg != nil && h.cfg.Auth.SessionTTL > 0 {
		ttl = h.cfg.Auth.SessionTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandlers) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
