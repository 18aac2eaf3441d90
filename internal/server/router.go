package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/moviebase/gateapi/internal/auth"
	"github.com/moviebase/gateapi/internal/config"
	gatemiddleware "github.com/moviebase/gateapi/internal/middleware"
	"github.com/moviebase/gateapi/internal/policy"
	"github.com/moviebase/gateapi/internal/repository"
)

// RouterOptions controls the construction of the gateway HTTP router.
type RouterOptions struct {
	Cfg         *config.Config
	Sessions    auth.Store
	States      *auth.StateRegistry
	Clients     map[string]auth.IdentityClient
	Policy      *policy.Router
	Movies      repository.MovieRepository
	CORSOptions *cors.Options
	Middleware  []func(http.Handler) http.Handler

	HealthHandler http.HandlerFunc
	ExtraRoutes   func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// CORSOptionsFromConfig maps the configured CORS policy onto go-chi/cors.
func CORSOptionsFromConfig(cfg config.CORSConfig) cors.Options {
	return cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
}

func defaultHealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// NewRouter assembles a chi.Router with the gateway pipeline mounted: CORS
// first, then baseline middleware, session resolution, and route
// authorization, with the auth and catalog handlers behind them.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	r := chi.NewRouter()

	// Cross-origin policy runs before anything else so rejected preflights
	// never reach the rest of the pipeline.
	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	} else if opts.Cfg != nil {
		corsCfg = CORSOptionsFromConfig(opts.Cfg.CORS)
	}
	r.Use(cors.Handler(corsCfg))

	// Baseline middleware shared across entrypoints.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	cookieName := auth.DefaultCookieName
	loginPath := ""
	if opts.Cfg != nil {
		if opts.Cfg.Auth.CookieName != "" {
			cookieName = opts.Cfg.Auth.CookieName
		}
		if opts.Cfg.Auth.DefaultProvider != "" {
			loginPath = "/oauth2/authorization/" + opts.Cfg.Auth.DefaultProvider
		}
	}

	if opts.Sessions != nil {
		r.Use(gatemiddleware.NewSessionResolver(opts.Sessions, cookieName))
	}
	if opts.Policy != nil {
		r.Use(gatemiddleware.NewRouteAuthz(gatemiddleware.AuthzDependencies{
			Router:    opts.Policy,
			LoginPath: loginPath,
		}))
	}

	// Apply custom middleware passed from the caller.
	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = defaultHealthHandler
	}
	r.Get("/healthz", healthHandler)
	r.Get("/", healthHandler)

	if opts.Clients != nil && opts.States != nil && opts.Sessions != nil {
		authHandlers := NewAuthHandlers(AuthHandlerOptions{
			Cfg:        opts.Cfg,
			Sessions:   opts.Sessions,
			States:     opts.States,
			Clients:    opts.Clients,
			CookieName: cookieName,
		})
		r.Get("/oauth2/authorization/{provider}", authHandlers.HandleLoginStart)
		r.Get("/login/oauth2/code/{provider}", authHandlers.HandleLoginCallback)
		r.Get("/auth/user", authHandlers.HandleCurrentUser)
		r.Post("/auth/logout", authHandlers.HandleLogout)
	}

	if opts.Movies != nil {
		movieHandlers := NewMovieHandlers(opts.Movies)
		r.Route("/api/movies", func(r chi.Router) {
			r.Get("/", movieHandlers.HandleList)
			r.Post("/", movieHandlers.HandleCreate)
			r.Get("/{id}", movieHandlers.HandleGet)
			r.Put("/{id}", movieHandlers.HandleUpdate)
			r.Delete("/{id}", movieHandlers.HandleDelete)
		})
	}

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r, nil
}

// NewH2CHandler wraps the router with an h2c server to provide HTTP/2 over
// cleartext for local development behind TLS-terminating proxies.
func NewH2CHandler(opts RouterOptions) (http.Handler, error) {
	router, err := NewRouter(opts)
	if err != nil {
		return nil, err
	}
	return h2c.NewHandler(router, &http2.Server{}), nil
}
