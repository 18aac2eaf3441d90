package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviebase/gateapi/internal/config"
)

// fakeProvider is a minimal OAuth2 token + userinfo endpoint pair.
type fakeProvider struct {
	*httptest.Server

	tokenStatus   int
	includeIDTok  bool
	userinfoBody  map[string]any
	lastTokenForm map[string][]string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		tokenStatus:  http.StatusOK,
		includeIDTok: true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		p.lastTokenForm = r.PostForm

		if p.tokenStatus != http.StatusOK {
			http.Error(w, "provider exploded", p.tokenStatus)
			return
		}

		body := map[string]any{
			"access_token": "access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		if p.includeIDTok {
			idToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub":   "user-123",
				"name":  "Ada",
				"email": "ada@example.com",
				"iat":   time.Now().Unix(),
				"exp":   time.Now().Add(time.Hour).Unix(),
			})
			raw, err := idToken.SignedString([]byte("provider-secret"))
			require.NoError(t, err)
			body["id_token"] = raw
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if p.userinfoBody == nil {
			http.Error(w, "userinfo unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.userinfoBody)
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

func (p *fakeProvider) providerConfig(name string, withUserinfo bool) config.ProviderConfig {
	pc := config.ProviderConfig{
		Name:         name,
		AuthURL:      p.URL + "/authorize",
		TokenURL:     p.URL + "/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	}
	if withUserinfo {
		pc.UserInfoURL = p.URL + "/userinfo"
	}
	return pc
}

func TestOAuth2ClientAuthCodeURL(t *testing.T) {
	provider := newFakeProvider(t)
	client := NewOAuth2Client(provider.providerConfig("github", false), "http://localhost:8080/login/oauth2/code/github", time.Second)

	authURL := client.AuthCodeURL("state-token")
	assert.Contains(t, authURL, provider.URL+"/authorize")
	assert.Contains(t, authURL, "state=state-token")
	assert.Contains(t, authURL, "client_id=client-id")
	assert.Contains(t, authURL, "response_type=code")
}

func TestOAuth2ClientExchangeIDToken(t *testing.T) {
	provider := newFakeProvider(t)
	client := NewOAuth2Client(provider.providerConfig("github", false), "http://localhost:8080/login/oauth2/code/github", time.Second)

	identity, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "user-123", identity.Subject)
	assert.Equal(t, "Ada", identity.Name)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "github", identity.Provider)

	assert.Equal(t, []string{"auth-code"}, provider.lastTokenForm["code"])
}

func TestOAuth2ClientExchangeUserinfo(t *testing.T) {
	provider := newFakeProvider(t)
	provider.includeIDTok = false
	provider.userinfoBody = map[string]any{
		"id":    float64(77),
		"name":  "Ada",
		"email": "ada@example.com",
	}
	client := NewOAuth2Client(provider.providerConfig("github", true), "http://localhost:8080/login/oauth2/code/github", time.Second)

	identity, err := client.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "77", identity.Subject)
	assert.Equal(t, "Ada", identity.Name)
}

func TestOAuth2ClientExchangeProviderFailure(t *testing.T) {
	provider := newFakeProvider(t)
	provider.tokenStatus = http.StatusInternalServerError
	client := NewOAuth2Client(provider.providerConfig("github", false), "http://localhost:8080/login/oauth2/code/github", time.Second)

	_, err := client.Exchange(context.Background(), "auth-code")
	assert.ErrorIs(t, err, ErrIdentityProvider)
}

func TestOAuth2ClientExchangeNoIDTokenNoUserinfo(t *testing.T) {
	provider := newFakeProvider(t)
	provider.includeIDTok = false
	client := NewOAuth2Client(provider.providerConfig("github", false), "http://localhost:8080/login/oauth2/code/github", time.Second)

	_, err := client.Exchange(context.Background(), "auth-code")
	assert.ErrorIs(t, err, ErrIdentityProvider)
}

func TestNewIdentityClients(t *testing.T) {
	provider := newFakeProvider(t)

	cfg := &config.Config{
		ServerURL: "http://localhost:8080",
		Auth: config.AuthConfig{
			ExchangeTimeout: time.Second,
			Providers: []config.ProviderConfig{
				provider.providerConfig("github", false),
			},
		},
	}

	clients, err := NewIdentityClients(context.Background(), cfg)
	require.NoError(t, err)
	require.Contains(t, clients, "github")
	assert.Equal(t, "github", clients["github"].Name())
}
