package cmd

import (
	"github.com/spf13/cobra"
)

// serveAddr overrides server.addr from the configuration.
var serveAddr string

// serveCmd defines the serve command structure.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local dashboard server",
	Long: `Starts the dashboard HTTP server.

Routes:
  GET  /login             start the sign-in (302 to the intranet)
  GET  /oauth/callback    finish the sign-in (path follows oauth.redirectUri)
  POST /logout            revoke and clear the credential
  GET  /api/me            the signed-in user
  GET  /api/students      main cursus students (search, year, sort, order, page, pageSize)
  GET  /api/poolers       piscine participants (same filters)
  GET  /api/summary       totals for both listings
  GET  /api/status        sign-in, token and rate limit status
  POST /api/oauth-token   trusted code exchange (only with oauth.clientSecret)
  GET  /healthz, /metrics

The server shares the credential store with the CLI, so signing in with
'scoreboard auth login' also signs in the dashboard.

The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	application, err := newApplication(false)
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := commandContext(cmd)
	if serveAddr != "" {
		return application.ServeOn(ctx, serveAddr)
	}
	return application.Serve(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
