package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDecide(t *testing.T) {
	router, err := NewRouter([]string{
		"/",
		"/healthz",
		"/auth/user",
		"/auth/logout",
		"/oauth2/*",
		"/login/*",
	})
	require.NoError(t, err)

	tests := []struct {
		name          string
		path          string
		authenticated bool
		want          Decision
	}{
		{"root anonymous", "/", false, Permit},
		{"healthz anonymous", "/healthz", false, Permit},
		{"auth user anonymous", "/auth/user", false, Permit},
		{"auth logout anonymous", "/auth/logout", false, Permit},
		{"login start anonymous", "/oauth2/authorization/github", false, Permit},
		{"login callback anonymous", "/login/oauth2/code/github", false, Permit},
		{"catalog anonymous", "/api/movies", false, RequireAuth},
		{"catalog item anonymous", "/api/movies/42", false, RequireAuth},
		{"auth other anonymous", "/auth/other", false, RequireAuth},
		{"admin anonymous", "/admin", false, RequireAuth},
		// Authenticated principals reach protected routes through the
		// catch-all grant and public routes through the inherited role.
		{"catalog authenticated", "/api/movies", true, Permit},
		{"catalog item authenticated", "/api/movies/42", true, Permit},
		{"admin authenticated", "/admin", true, Permit},
		{"healthz authenticated", "/healthz", true, Permit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := router.Decide(tt.path, tt.authenticated)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouterNoPublicPaths(t *testing.T) {
	router, err := NewRouter(nil)
	require.NoError(t, err)

	got, err := router.Decide("/healthz", false)
	require.NoError(t, err)
	assert.Equal(t, RequireAuth, got)

	got, err = router.Decide("/healthz", true)
	require.NoError(t, err)
	assert.Equal(t, Permit, got)
}
