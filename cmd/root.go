package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moviebase/gateapi/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "gateapi",
	Short: "Authentication gateway for the movie catalog",
	Long: `gateapi fronts the movie catalog with OAuth2 login, cookie sessions,
route authorization, and a cross-origin policy for browser clients.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags (environment variables take precedence)
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: GATE_DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: GATE_SERVER_ADDR)")
	rootCmd.PersistentFlags().String("server-url", "", "Server base URL for provider redirect URIs (env: GATE_SERVER_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: GATE_DEBUG)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
