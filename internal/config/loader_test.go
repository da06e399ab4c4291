package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o600))
}

func loadWithEnv(t *testing.T, dir string, environ map[string]string) (Config, error) {
	t.Helper()
	if environ == nil {
		environ = map[string]string{}
	}
	return loadConfig(dir, env.Options{Prefix: EnvPrefix, Environment: environ})
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadWithEnv(t, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(dir), cfg)
	assert.Empty(t, cfg.OAuth.ClientID)
	assert.Empty(t, cfg.OAuth.ClientSecret, "secrets are never defaulted")
	assert.Equal(t, filepath.Join(dir, "credentials.db"), cfg.Storage.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
oauth:
  clientId: file-client
  refresh: true
api:
  requestTimeout: 90s
rateLimit:
  requestsPerHour: 600
storage:
  backend: sqlite
logging:
  level: debug
`)

	cfg, err := loadWithEnv(t, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "file-client", cfg.OAuth.ClientID)
	assert.True(t, cfg.OAuth.Refresh)
	assert.Equal(t, DefaultRedirectURI, cfg.OAuth.RedirectURI, "unset keys keep defaults")
	assert.Equal(t, 90*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 600, cfg.RateLimit.RequestsPerHour)
	assert.Equal(t, 2, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, StorageSQLite, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, `
oauth:
  clientId: file-client
  redirectUri: http://localhost:3000/oauth/callback
`)

	cfg, err := loadWithEnv(t, dir, map[string]string{
		"SCOREBOARD_CLIENT_ID":       "env-client",
		"SCOREBOARD_CLIENT_SECRET":   "s3cret",
		"SCOREBOARD_API_BASE_URL":    "https://intra.example.test",
		"SCOREBOARD_API_TIMEOUT":     "45s",
		"SCOREBOARD_STORAGE_BACKEND": "memory",
		"SCOREBOARD_COOKIE_SECURE":   "true",
		"CLIENT_ID":                  "ignored-without-prefix",
	})
	require.NoError(t, err)
	assert.Equal(t, "env-client", cfg.OAuth.ClientID)
	assert.Equal(t, "s3cret", cfg.OAuth.ClientSecret)
	assert.Equal(t, "http://localhost:3000/oauth/callback", cfg.OAuth.RedirectURI)
	assert.Equal(t, "https://intra.example.test", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.True(t, cfg.Server.CookieSecure)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "oauth: [not, a, map")
		_, err := loadWithEnv(t, dir, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), configFileName)
	})

	t.Run("bad environment value", func(t *testing.T) {
		_, err := loadWithEnv(t, t.TempDir(), map[string]string{"SCOREBOARD_RATE_LIMIT_PER_HOUR": "lots"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "environment")
	})
}

func TestSave_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	cfg := GetDefaultConfig(dir)
	cfg.OAuth.ClientID = "saved-client"
	cfg.API.RequestTimeout = 30 * time.Second

	require.NoError(t, Save(dir, cfg))

	info, err := os.Stat(filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "requestTimeout: 30s"))

	loaded, err := loadWithEnv(t, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
