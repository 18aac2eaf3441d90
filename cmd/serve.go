package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/moviebase/gateapi/internal/auth"
	"github.com/moviebase/gateapi/internal/db/bunx"
	"github.com/moviebase/gateapi/internal/policy"
	"github.com/moviebase/gateapi/internal/repository"
	"github.com/moviebase/gateapi/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long:  `Starts the HTTP server with the login flow, session handling, and the catalog API mounted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Connect to database
		db, err := bunx.NewDB(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		log.Printf("Connected to database")

		movieRepo := repository.NewBunMovieRepository(db)

		sessions := auth.NewMemoryStore(cfg.Auth.SessionTTL)
		states := auth.NewStateRegistry(cfg.Auth.StateTTL)

		clients, err := auth.NewIdentityClients(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to configure identity providers: %w", err)
		}
		if len(clients) == 0 {
			log.Printf("WARNING: no identity providers configured; all protected routes will reject")
		}

		routePolicy, err := policy.NewRouter(cfg.Auth.PublicPaths)
		if err != nil {
			return fmt.Errorf("failed to build route policy: %w", err)
		}

		// HTTP/2 cleartext for local development behind TLS-terminating proxies.
		handler, err := server.NewH2CHandler(server.RouterOptions{
			Cfg:      cfg,
			Sessions: sessions,
			States:   states,
			Clients:  clients,
			Policy:   routePolicy,
			Movies:   movieRepo,
		})
		if err != nil {
			return fmt.Errorf("failed to build router: %w", err)
		}

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			log.Printf("Starting server on %s", cfg.ServerAddr)
			log.Printf("Server URL: %s", cfg.ServerURL)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			log.Printf("Received signal %v, shutting down gracefully", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			log.Printf("Server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
