package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"scoreboard/internal/cli"
	"scoreboard/internal/config"
)

// Login-specific flags
var (
	loginNoBrowser bool
	loginForce     bool
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the 42 intranet",
	Long: `Sign in with the OAuth2 authorization code flow and PKCE.

A one-shot callback server listens on the configured redirect URI
(oauth.redirectUri, default http://localhost:3000/oauth/callback) while
you approve access in the browser. The redirect URI must match the one
registered for your intranet application.

Examples:
  scoreboard auth login                # Open the browser
  scoreboard auth login --no-browser   # Print the URL only
  scoreboard auth login --force        # Sign in again even if signed in`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

func init() {
	authLoginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false, "Print the authorization URL instead of opening a browser")
	authLoginCmd.Flags().BoolVar(&loginForce, "force", false, "Sign in again even when a valid credential is stored")
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	application, err := newApplication(authQuiet)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()
	out := cmd.OutOrStdout()

	if !loginForce && s.Flow.IsAuthenticated(ctx) {
		authPrintln(out, "Already signed in. Use --force to sign in again.")
		return nil
	}

	res := s.LoginWithBrowser(ctx, !loginNoBrowser, func(authURL string) {
		if loginNoBrowser {
			fmt.Fprintf(out, "Open this URL in your browser to sign in:\n\n  %s\n\n", authURL)
		} else {
			authPrint(out, "Opening browser for authentication...\nIf it does not open, visit:\n\n  %s\n\n", authURL)
		}
		authPrint(out, "Waiting for authorization (up to %s)...\n", s.Config.OAuth.CallbackTimeout)
	})
	if res.Err != nil {
		var verrs config.ValidationErrors
		if errors.As(res.Err, &verrs) {
			return res.Err
		}
		return &cli.AuthFailedError{Reason: res.Err}
	}

	authPrintln(out, cli.FormatSuccess("Signed in"))
	if me, err := s.API.Me(ctx); err == nil {
		authPrint(out, "Signed in as %s (%s)\n", me.Login, me.DisplayName)
	}
	return nil
}
