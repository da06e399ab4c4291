package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"scoreboard/internal/cli"
)

var authQuiet bool

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your 42 intranet sign-in",
	Long: `Manage the OAuth2 credential scoreboard uses to call the 42 intranet API.

Examples:
  scoreboard auth login                # Sign in through the browser
  scoreboard auth login --no-browser   # Print the URL instead of opening it
  scoreboard auth status               # Show token lifetime and storage
  scoreboard auth whoami               # Show the signed-in user
  scoreboard auth refresh              # Force a token refresh (if enabled)
  scoreboard auth logout               # Revoke and forget the credential`,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke and clear the stored credential",
	Long: `Revoke the access token at the intranet and remove it from storage.

The local credential is removed even when the intranet cannot be reached.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogout,
}

// authRefreshCmd represents the auth refresh command
var authRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force token refresh",
	Long: `Exchange the stored refresh token for a new access token.

Refreshing is off unless oauth.refresh is enabled in the configuration
(SCOREBOARD_OAUTH_REFRESH=true); without it, sign in again when the token
expires.`,
	Args: cobra.NoArgs,
	RunE: runAuthRefresh,
}

// authWhoamiCmd represents the auth whoami command
var authWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long:  `Fetch /v2/me with the stored credential and print who you are signed in as.`,
	Args:  cobra.NoArgs,
	RunE:  runAuthWhoami,
}

// authPrint prints output only if the --quiet flag is not set.
// Use this for progress messages and non-essential output.
func authPrint(w io.Writer, format string, args ...interface{}) {
	if !authQuiet {
		fmt.Fprintf(w, format, args...)
	}
}

// authPrintln prints a line only if the --quiet flag is not set.
func authPrintln(w io.Writer, a ...interface{}) {
	if !authQuiet {
		fmt.Fprintln(w, a...)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authRefreshCmd)
	authCmd.AddCommand(authWhoamiCmd)

	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	application, err := newApplication(authQuiet)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()

	if s.Tokens.TokenInfo(ctx) == nil {
		authPrintln(cmd.OutOrStdout(), "Not signed in.")
		return nil
	}
	if err := s.Flow.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	authPrintln(cmd.OutOrStdout(), cli.FormatSuccess("Signed out"))
	return nil
}

func runAuthRefresh(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	application, err := newApplication(authQuiet)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()

	if !s.Config.OAuth.Refresh {
		return fmt.Errorf("token refresh is disabled; enable oauth.refresh (SCOREBOARD_OAUTH_REFRESH=true) or run: scoreboard auth login")
	}

	err = cli.WithSpinner(cmd.ErrOrStderr(), authQuiet, "Refreshing token...", func() error {
		return s.Tokens.Refresh(ctx)
	})
	if err != nil {
		err = translate(s, err)
		// The refresh itself just failed, so do not suggest it again.
		var expired *cli.AuthExpiredError
		if errors.As(err, &expired) {
			expired.Refreshable = false
		}
		return err
	}

	authPrintln(cmd.OutOrStdout(), cli.FormatSuccess("Token refreshed"))
	if info := s.Tokens.TokenInfo(ctx); info != nil {
		authPrint(cmd.OutOrStdout(), "Expires:   %s\n", info.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runAuthWhoami(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	application, err := newApplication(true)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()

	me, err := s.API.Me(ctx)
	if err != nil {
		return translate(s, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Login:     %s\n", me.Login)
	if me.DisplayName != "" {
		fmt.Fprintf(out, "Name:      %s\n", me.DisplayName)
	}
	if me.Email != "" {
		fmt.Fprintf(out, "Email:     %s\n", me.Email)
	}
	fmt.Fprintf(out, "Campus:    %s\n", me.CampusName())
	return nil
}
