package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("a", "is required")
	assert.Equal(t, "field 'a': is required", errs.Error())

	errs.Add("b", "must be positive", -1)
	assert.Equal(t, "validation failed: field 'a': is required; field 'b': must be positive", errs.Error())
	assert.Equal(t, []string{"a", "b"}, errs.Fields())
	assert.Equal(t, -1, errs[1].Value)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "bad api url",
			mutate: func(c *Config) { c.API.BaseURL = "ftp://intra" },
			fields: []string{"api.baseUrl"},
		},
		{
			name:   "relative redirect",
			mutate: func(c *Config) { c.OAuth.RedirectURI = "/oauth/callback" },
			fields: []string{"oauth.redirectUri"},
		},
		{
			name:   "fallback without proxy",
			mutate: func(c *Config) { c.OAuth.DirectFallback = true },
			fields: []string{"oauth.directFallback"},
		},
		{
			name: "zero limits",
			mutate: func(c *Config) {
				c.RateLimit.RequestsPerSecond = 0
				c.RateLimit.BurstWindow = 0
			},
			fields: []string{"rateLimit.requestsPerSecond", "rateLimit.burstWindow"},
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Storage.Backend = "redis" },
			fields: []string{"storage.backend"},
		},
		{
			name:   "sqlite without path",
			mutate: func(c *Config) { c.Storage.Backend = StorageSQLite; c.Storage.Path = "" },
			fields: []string{"storage.path"},
		},
		{
			name: "short cookie key",
			mutate: func(c *Config) {
				c.Server.CookieHashKey = "abcd"
				c.Server.CookieBlockKey = "zz"
			},
			fields: []string{"server.cookieHashKey", "server.cookieBlockKey"},
		},
		{
			name: "logging",
			mutate: func(c *Config) {
				c.Logging.Level = "loud"
				c.Logging.Format = "xml"
			},
			fields: []string{"logging.level", "logging.format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig(t.TempDir())
			tt.mutate(&cfg)

			err := cfg.Validate()
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Equal(t, tt.fields, verrs.Fields())
		})
	}
}

func TestConfig_ValidateAcceptsCookieKeys(t *testing.T) {
	cfg := GetDefaultConfig(t.TempDir())
	cfg.Server.CookieHashKey = strings.Repeat("ab", 32)
	cfg.Server.CookieBlockKey = strings.Repeat("cd", 16)
	require.NoError(t, cfg.Validate())

	hash, block, err := cfg.Server.CookieKeys()
	require.NoError(t, err)
	assert.Len(t, hash, 32)
	assert.Len(t, block, 16)

	hash, block, err = ServerConfig{}.CookieKeys()
	require.NoError(t, err)
	assert.Nil(t, hash)
	assert.Nil(t, block)
}

func TestConfig_RequireOAuth(t *testing.T) {
	cfg := GetDefaultConfig(t.TempDir())
	err := cfg.RequireOAuth()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"oauth.clientId"}, verrs.Fields())

	cfg.OAuth.ClientID = "client"
	assert.NoError(t, cfg.RequireOAuth())

	cfg.OAuth.RedirectURI = " "
	require.ErrorAs(t, cfg.RequireOAuth(), &verrs)
	assert.Equal(t, []string{"oauth.redirectUri"}, verrs.Fields())
}
