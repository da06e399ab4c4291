package config

import (
	"path/filepath"
	"time"
)

const (
	// DefaultOAuthCallbackPath is the path the intranet redirects back to.
	DefaultOAuthCallbackPath = "/oauth/callback"

	// DefaultRedirectURI matches the callback server started by `auth login`.
	DefaultRedirectURI = "http://localhost:3000" + DefaultOAuthCallbackPath

	DefaultIntraBaseURL    = "https://api.intra.42.fr"
	DefaultScope           = "public"
	DefaultCallbackTimeout = 10 * time.Minute
	DefaultRequestTimeout  = 2 * time.Minute
	DefaultServerAddr      = "localhost:3000"

	sqliteFileName = "credentials.db"
)

// GetDefaultConfig returns the configuration used when no file or
// environment override is present. configDir roots the storage paths.
func GetDefaultConfig(configDir string) Config {
	return Config{
		OAuth: OAuthConfig{
			RedirectURI:     DefaultRedirectURI,
			Scope:           DefaultScope,
			BaseURL:         DefaultIntraBaseURL,
			CallbackTimeout: DefaultCallbackTimeout,
		},
		API: APIConfig{
			BaseURL:        DefaultIntraBaseURL,
			RequestTimeout: DefaultRequestTimeout,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			RequestsPerHour:   1200,
			BurstLimit:        10,
			BurstWindow:       500 * time.Millisecond,
		},
		Storage: StorageConfig{
			Backend: StorageFile,
			Dir:     configDir,
			Path:    filepath.Join(configDir, sqliteFileName),
		},
		Server: ServerConfig{
			Addr: DefaultServerAddr,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
