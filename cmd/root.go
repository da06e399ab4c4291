package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"scoreboard/internal/app"
	"scoreboard/internal/cli"
	"scoreboard/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates the user has to sign in (again).
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the sign-in flow failed.
	ExitCodeAuthFailed = 3
)

var (
	rootConfigPath string
	rootDebug      bool
)

// rootCmd represents the base command for the scoreboard application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scoreboard",
	Short: "Browse 42 students and poolers from the intranet API",
	Long: `scoreboard signs you in to the 42 intranet with OAuth2 (authorization
code with PKCE) and lists the students and poolers of your campus, either
in the terminal or through a local dashboard server.

Configuration is read from config.yaml in the configuration directory and
can be overridden with SCOREBOARD_* environment variables.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "scoreboard version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var authRequired *cli.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *cli.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	var authFailed *cli.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// newApplication bootstraps configuration, logging and services for one
// command. silent discards log output.
func newApplication(silent bool) (*app.Application, error) {
	return app.NewApplication(app.NewConfig(rootDebug, silent, rootConfigPath))
}

// translate attaches CLI guidance to errors from the services.
func translate(s *app.Services, err error) error {
	return cli.Translate(err, s.Config.API.BaseURL, s.Config.OAuth.Refresh)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
}
