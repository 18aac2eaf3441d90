package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"

	"github.com/moviebase/gateapi/internal/config"
)

// ErrIdentityProvider wraps every failure talking to the identity provider:
// network errors, non-success responses, and malformed attributes. The flow
// is aborted and never retried automatically.
var ErrIdentityProvider = errors.New("identity provider error")

// DefaultExchangeTimeout bounds the code-for-token exchange network call.
const DefaultExchangeTimeout = 10 * time.Second

// Identity is the provider-returned identity before it becomes a Principal.
type Identity struct {
	Subject  string
	Name     string
	Email    string
	Provider string
}

// IdentityClient executes the authorization-code exchange against one
// identity provider and normalizes the returned attributes.
type IdentityClient interface {
	// Name returns the configured provider name (the {provider} path segment).
	Name() string

	// AuthCodeURL returns the provider authorization endpoint URL carrying the
	// anti-forgery state value.
	AuthCodeURL(state string) string

	// Exchange trades the authorization code for tokens and extracts the
	// normalized identity. All failures wrap ErrIdentityProvider.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// NewIdentityClients builds one client per configured provider. Providers
// with an issuer use OIDC discovery; providers with explicit endpoints use a
// plain OAuth2 code flow.
func NewIdentityClients(ctx context.Context, cfg *config.Config) (map[string]IdentityClient, error) {
	clients := make(map[string]IdentityClient, len(cfg.Auth.Providers))
	for _, pc := range cfg.Auth.Providers {
		redirectURI := cfg.CallbackURL(pc.Name)

		var (
			client IdentityClient
			err    error
		)
		if pc.Issuer != "" {
			client, err = NewOIDCClient(ctx, pc, redirectURI, cfg.Auth.ExchangeTimeout)
		} else {
			client = NewOAuth2Client(pc, redirectURI, cfg.Auth.ExchangeTimeout)
		}
		if err != nil {
			return nil, fmt.Errorf("configure provider %s: %w", pc.Name, err)
		}
		clients[pc.Name] = client
	}
	return clients, nil
}

// OIDCClient authenticates against an OIDC-discoverable provider by wrapping
// the zitadel/oidc relying-party implementation.
type OIDCClient struct {
	name    string
	rp      rp.RelyingParty
	timeout time.Duration
}

// NewOIDCClient creates an identity client from the provider's issuer via
// OIDC discovery.
func NewOIDCClient(ctx context.Context, pc config.ProviderConfig, redirectURI string, timeout time.Duration) (*OIDCClient, error) {
	scopes := pc.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail}
	}

	options := []rp.Option{
		rp.WithVerifierOpts(rp.WithIssuedAtMaxAge(10 * time.Second)),
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx, pc.Issuer, pc.ClientID, pc.ClientSecret, redirectURI, scopes, options...)
	if err != nil {
		return nil, fmt.Errorf("create OIDC relying party: %w", err)
	}

	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &OIDCClient{name: pc.Name, rp: relyingParty, timeout: timeout}, nil
}

// Name returns the configured provider name.
func (c *OIDCClient) Name() string { return c.name }

// AuthCodeURL returns the URL for the provider's authorization endpoint.
func (c *OIDCClient) AuthCodeURL(state string) string {
	return rp.AuthURL(state, c.rp)
}

// Exchange trades the code for verified tokens and normalizes the ID token
// claims into an Identity.
func (c *OIDCClient) Exchange(ctx context.Context, code string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, c.rp)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrIdentityProvider, err)
	}

	claims := tokens.IDTokenClaims
	if claims == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: id token missing subject", ErrIdentityProvider)
	}

	return &Identity{
		Subject:  claims.Subject,
		Name:     claims.Name,
		Email:    claims.Email,
		Provider: c.name,
	}, nil
}

// OAuth2Client authenticates against a provider with explicitly configured
// authorization, token, and (optionally) userinfo endpoints.
type OAuth2Client struct {
	name        string
	conf        *oauth2.Config
	userInfoURL string
	timeout     time.Duration
}

// NewOAuth2Client creates an identity client from explicit endpoints.
func NewOAuth2Client(pc config.ProviderConfig, redirectURI string, timeout time.Duration) *OAuth2Client {
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &OAuth2Client{
		name: pc.Name,
		conf: &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       pc.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  pc.AuthURL,
				TokenURL: pc.TokenURL,
			},
		},
		userInfoURL: pc.UserInfoURL,
		timeout:     timeout,
	}
}

// Name returns the configured provider name.
func (c *OAuth2Client) Name() string { return c.name }

// AuthCodeURL returns the URL for the provider's authorization endpoint.
func (c *OAuth2Client) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades the code for a token, then reads identity attributes from
// the userinfo endpoint when configured, falling back to the id_token claims
// returned alongside the access token.
func (c *OAuth2Client) Exchange(ctx context.Context, code string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", ErrIdentityProvider, err)
	}

	var claims map[string]any
	if c.userInfoURL != "" {
		claims, err = c.fetchUserInfo(ctx, token)
	} else {
		claims, err = idTokenClaims(token)
	}
	if err != nil {
		return nil, err
	}

	identity, err := IdentityFromClaims(c.name, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityProvider, err)
	}
	return identity, nil
}

func (c *OAuth2Client) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build userinfo request: %v", ErrIdentityProvider, err)
	}

	resp, err := c.conf.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch userinfo: %v", ErrIdentityProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %s", ErrIdentityProvider, resp.Status)
	}

	var claims map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode userinfo: %v", ErrIdentityProvider, err)
	}
	return claims, nil
}

func idTokenClaims(token *oauth2.Token) (map[string]any, error) {
	rawIDToken, _ := token.Extra("id_token").(string)
	if strings.TrimSpace(rawIDToken) == "" {
		return nil, fmt.Errorf("%w: token response carries no id_token and no userinfo endpoint is configured", ErrIdentityProvider)
	}

	claims, err := ParseIDTokenClaims(rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdentityProvider, err)
	}
	return claims, nil
}
