package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"scoreboard/internal/cli"
	"scoreboard/internal/formatting"
	"scoreboard/internal/intra"
)

var (
	statusVerify bool
	statusOutput cli.OutputFlags
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	Long: `Show whether a credential is stored, when it expires and where it is kept.

With --verify the credential is checked against the intranet by fetching
/v2/me; a token the intranet no longer accepts is reported as expired.

Examples:
  scoreboard auth status
  scoreboard auth status --verify
  scoreboard auth status -o json`,
	Args: cobra.NoArgs,
	RunE: runAuthStatus,
}

func init() {
	authStatusCmd.Flags().BoolVar(&statusVerify, "verify", false, "Check the token against the intranet")
	authStatusCmd.Flags().StringVarP(&statusOutput.OutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	application, err := newApplication(true)
	if err != nil {
		return err
	}
	defer application.Close()
	s := application.Services()

	f, err := statusOutput.Formatter(cmd)
	if err != nil {
		return err
	}

	refreshMode := "disabled"
	if s.Config.OAuth.Refresh {
		refreshMode = "enabled"
	}
	st := formatting.TokenStatus{
		Authenticated: s.Tokens.IsAuthenticated(ctx),
		Token:         s.Tokens.TokenInfo(ctx),
		Storage:       s.Config.Storage.Backend,
		RefreshMode:   refreshMode,
	}

	if statusVerify && st.Authenticated {
		me, err := s.API.Me(ctx)
		switch {
		case err == nil:
			st.Me = me
		case errors.Is(err, intra.ErrAuthExpired):
			st.Authenticated = false
		default:
			return translate(s, err)
		}
	}
	return f.TokenStatus(st)
}
