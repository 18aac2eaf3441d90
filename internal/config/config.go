package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the gateway configuration.
type Config struct {
	// Server bind address (host:port)
	ServerAddr string

	// Base URL the gateway is reachable at; provider redirect URIs are
	// derived from it.
	ServerURL string

	// Database connection string (DSN); postgres:// or a SQLite path.
	DatabaseURL string

	// Enable debug logging
	Debug bool

	Web  WebConfig
	CORS CORSConfig
	Auth AuthConfig
}

// WebConfig describes the trusted front-end the gateway fronts.
type WebConfig struct {
	// FrontendURL is where the browser is sent after a successful login.
	FrontendURL string

	// LoginErrorURL is where the browser is sent when a login flow aborts.
	// Defaults to FrontendURL + "/login/error".
	LoginErrorURL string
}

// CORSConfig is the cross-origin policy applied before any other processing.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// AuthConfig holds session, login-flow, and route-policy configuration.
type AuthConfig struct {
	// CookieName is the session cookie name.
	CookieName string

	// SessionTTL is the server-side session lifetime.
	SessionTTL time.Duration

	// StateTTL bounds how long a login flow may stay pending.
	StateTTL time.Duration

	// ExchangeTimeout bounds the provider token exchange call.
	ExchangeTimeout time.Duration

	// DefaultProvider is the provider unauthenticated browser navigations are
	// redirected to. Defaults to the first configured provider.
	DefaultProvider string

	// PublicPaths are glob-style patterns reachable without a session.
	PublicPaths []string

	// Providers lists the configured identity providers.
	Providers []ProviderConfig
}

// ProviderConfig describes one external identity provider. Set Issuer for
// OIDC discovery, or AuthURL/TokenURL (and optionally UserInfoURL) for a
// plain OAuth2 provider.
type ProviderConfig struct {
	Name         string
	Issuer       string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// DefaultPublicPaths are the paths the login flow needs reachable with no
// session: home, the login entry points, the provider callback, the identity
// probe, and logout.
func DefaultPublicPaths() []string {
	return []string{
		"/",
		"/healthz",
		"/auth/user",
		"/auth/logout",
		"/oauth2/*",
		"/login/*",
	}
}

// CallbackURL returns the provider redirect URI for a provider name.
func (c *Config) CallbackURL(provider string) string {
	return strings.TrimRight(c.ServerURL, "/") + "/login/oauth2/code/" + provider
}

// Load reads configuration from GATE_-prefixed environment variables with an
// optional YAML config file underneath, then validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("database_url", "file:gateapi.db")
	v.SetDefault("debug", false)
	v.SetDefault("web.frontend_url", "http://localhost:5173")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 300)
	v.SetDefault("auth.cookie_name", "gate.session")
	v.SetDefault("auth.session_ttl", "12h")
	v.SetDefault("auth.state_ttl", "10m")
	v.SetDefault("auth.exchange_timeout", "10s")

	// Optional config file: GATE_CONFIG or ./gateapi.yaml.
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("gateapi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		ServerAddr:  v.GetString("server_addr"),
		ServerURL:   v.GetString("server_url"),
		DatabaseURL: v.GetString("database_url"),
		Debug:       v.GetBool("debug"),
		Web: WebConfig{
			FrontendURL:   v.GetString("web.frontend_url"),
			LoginErrorURL: v.GetString("web.login_error_url"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   v.GetStringSlice("cors.allowed_origins"),
			AllowedMethods:   v.GetStringSlice("cors.allowed_methods"),
			AllowedHeaders:   v.GetStringSlice("cors.allowed_headers"),
			AllowCredentials: v.GetBool("cors.allow_credentials"),
			MaxAge:           v.GetInt("cors.max_age"),
		},
		Auth: AuthConfig{
			CookieName:      v.GetString("auth.cookie_name"),
			SessionTTL:      v.GetDuration("auth.session_ttl"),
			StateTTL:        v.GetDuration("auth.state_ttl"),
			ExchangeTimeout: v.GetDuration("auth.exchange_timeout"),
			DefaultProvider: v.GetString("auth.default_provider"),
			PublicPaths:     v.GetStringSlice("auth.public_paths"),
		},
	}

	cfg.Auth.Providers = loadProviders(v)

	if len(cfg.Auth.PublicPaths) == 0 {
		cfg.Auth.PublicPaths = DefaultPublicPaths()
	}
	if cfg.Web.LoginErrorURL == "" {
		cfg.Web.LoginErrorURL = strings.TrimRight(cfg.Web.FrontendURL, "/") + "/login/error"
	}
	if cfg.Auth.DefaultProvider == "" && len(cfg.Auth.Providers) > 0 {
		cfg.Auth.DefaultProvider = cfg.Auth.Providers[0].Name
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadProviders reads the provider list from the config file, with a single
// env-configured OIDC provider as the common deployment shortcut
// (GATE_OIDC_ISSUER / GATE_OIDC_CLIENT_ID / GATE_OIDC_CLIENT_SECRET).
func loadProviders(v *viper.Viper) []ProviderConfig {
	var providers []ProviderConfig

	var fileProviders []map[string]any
	if err := v.UnmarshalKey("auth.providers", &fileProviders); err == nil {
		for _, raw := range fileProviders {
			providers = append(providers, ProviderConfig{
				Name:         stringKey(raw, "name"),
				Issuer:       stringKey(raw, "issuer"),
				AuthURL:      stringKey(raw, "auth_url"),
				TokenURL:     stringKey(raw, "token_url"),
				UserInfoURL:  stringKey(raw, "userinfo_url"),
				ClientID:     stringKey(raw, "client_id"),
				ClientSecret: stringKey(raw, "client_secret"),
				Scopes:       stringSliceKey(raw, "scopes"),
			})
		}
	}

	if issuer := v.GetString("oidc.issuer"); issuer != "" {
		name := v.GetString("oidc.provider_name")
		if name == "" {
			name = "oidc"
		}
		providers = append(providers, ProviderConfig{
			Name:         name,
			Issuer:       issuer,
			ClientID:     v.GetString("oidc.client_id"),
			ClientSecret: v.GetString("oidc.client_secret"),
			Scopes:       v.GetStringSlice("oidc.scopes"),
		})
	}

	return providers
}

// Validate enforces configuration invariants before the server starts.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if _, err := url.Parse(c.ServerURL); err != nil {
		return fmt.Errorf("server_url is not a valid URL: %w", err)
	}
	if c.Web.FrontendURL == "" {
		return fmt.Errorf("web.frontend_url is required")
	}

	// Credentialed CORS must pin exact origins; browsers reject the
	// combination and allowing it would silently disable the origin check.
	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("cors.allowed_origins must not contain a wildcard when cors.allow_credentials is enabled")
			}
		}
	}

	seen := make(map[string]bool, len(c.Auth.Providers))
	for _, p := range c.Auth.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true

		if p.ClientID == "" {
			return fmt.Errorf("provider %s: client_id is required", p.Name)
		}
		if p.Issuer == "" && (p.AuthURL == "" || p.TokenURL == "") {
			return fmt.Errorf("provider %s: either issuer or auth_url+token_url is required", p.Name)
		}
	}

	if c.Auth.DefaultProvider != "" && !seen[c.Auth.DefaultProvider] {
		return fmt.Errorf("auth.default_provider %q is not a configured provider", c.Auth.DefaultProvider)
	}

	return nil
}

func stringKey(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringSliceKey(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
