package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"scoreboard/internal/cli"
	"scoreboard/internal/config"
)

const redacted = "<redacted>"

var (
	initClientID    string
	initRedirectURI string
	initStorage     string
	initForce       bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, config.yaml and SCOREBOARD_*
environment overrides are applied. Secrets are redacted.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml",
	Long: `Write config.yaml to the configuration directory with your intranet
application's client ID and redirect URI.

The client secret is deliberately not asked for: public clients sign in
with PKCE alone. Add oauth.clientSecret by hand only on a trusted host.

Examples:
  scoreboard config init --client-id u-s4t2ud-...
  scoreboard config init --client-id u-s4t2ud-... --storage sqlite`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&initClientID, "client-id", "", "OAuth client ID of your intranet application")
	configInitCmd.Flags().StringVar(&initRedirectURI, "redirect-uri", config.DefaultRedirectURI, "Redirect URI registered for the application")
	configInitCmd.Flags().StringVar(&initStorage, "storage", config.StorageFile, "Credential storage (file, sqlite, memory)")
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config.yaml")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(rootConfigPath)
	if err != nil {
		return err
	}
	if cfg.OAuth.ClientSecret != "" {
		cfg.OAuth.ClientSecret = redacted
	}
	if cfg.Server.CookieHashKey != "" {
		cfg.Server.CookieHashKey = redacted
	}
	if cfg.Server.CookieBlockKey != "" {
		cfg.Server.CookieBlockKey = redacted
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := filepath.Join(rootConfigPath, "config.yaml")
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfg := config.GetDefaultConfig(rootConfigPath)
	cfg.OAuth.ClientID = initClientID
	cfg.OAuth.RedirectURI = initRedirectURI
	cfg.Storage.Backend = initStorage
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.RequireOAuth(); err != nil {
		return err
	}

	if err := config.Save(rootConfigPath, cfg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Wrote "+path))
	return nil
}
