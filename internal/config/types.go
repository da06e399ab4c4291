package config

import "time"

// Config is the top-level configuration for scoreboard.
type Config struct {
	OAuth     OAuthConfig     `yaml:"oauth"`
	API       APIConfig       `yaml:"api"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// OAuthConfig describes the application registered on the intranet.
type OAuthConfig struct {
	ClientID    string `yaml:"clientId,omitempty" env:"CLIENT_ID"`
	RedirectURI string `yaml:"redirectUri,omitempty" env:"REDIRECT_URI"`
	Scope       string `yaml:"scope,omitempty" env:"OAUTH_SCOPE"`

	// BaseURL roots the authorize, token and revoke endpoints.
	BaseURL string `yaml:"baseUrl,omitempty" env:"OAUTH_BASE_URL"`

	// ClientSecret is only used by trusted exchanges (serve, direct
	// fallback, refresh). Never set a default.
	ClientSecret string `yaml:"clientSecret,omitempty" env:"CLIENT_SECRET"`

	// Refresh enables the refresh_token grant. Without it an expired
	// credential requires a new login.
	Refresh bool `yaml:"refresh,omitempty" env:"OAUTH_REFRESH"`

	// ProxyURL is a token-exchange endpoint that holds the client secret.
	ProxyURL string `yaml:"proxyUrl,omitempty" env:"OAUTH_PROXY_URL"`

	// DirectFallback retries a failed proxy exchange against the token
	// endpoint directly.
	DirectFallback bool `yaml:"directFallback,omitempty" env:"OAUTH_DIRECT_FALLBACK"`

	// CallbackTimeout bounds how long the CLI waits for the browser.
	CallbackTimeout time.Duration `yaml:"callbackTimeout,omitempty" env:"OAUTH_CALLBACK_TIMEOUT"`
}

// APIConfig configures the intranet API client.
type APIConfig struct {
	BaseURL        string        `yaml:"baseUrl,omitempty" env:"API_BASE_URL"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty" env:"API_TIMEOUT"`
	UserAgent      string        `yaml:"userAgent,omitempty" env:"API_USER_AGENT"`
}

// RateLimitConfig mirrors the intranet's published quotas.
type RateLimitConfig struct {
	RequestsPerSecond int           `yaml:"requestsPerSecond,omitempty" env:"RATE_LIMIT_PER_SECOND"`
	RequestsPerHour   int           `yaml:"requestsPerHour,omitempty" env:"RATE_LIMIT_PER_HOUR"`
	BurstLimit        int           `yaml:"burstLimit,omitempty" env:"RATE_LIMIT_BURST"`
	BurstWindow       time.Duration `yaml:"burstWindow,omitempty" env:"RATE_LIMIT_BURST_WINDOW"`
}

// Storage backends.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// StorageConfig selects where the credential is kept.
type StorageConfig struct {
	Backend string `yaml:"backend,omitempty" env:"STORAGE_BACKEND"`
	// Dir holds the credential file for the file backend.
	Dir string `yaml:"dir,omitempty" env:"STORAGE_DIR"`
	// Path is the database file for the sqlite backend.
	Path string `yaml:"path,omitempty" env:"STORAGE_PATH"`
}

// ServerConfig configures `scoreboard serve`.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty" env:"LISTEN_ADDR"`

	// Hex-encoded securecookie keys for the login-attempt cookie. When
	// unset, random keys are generated at startup and pending logins do
	// not survive a restart.
	CookieHashKey  string `yaml:"cookieHashKey,omitempty" env:"COOKIE_HASH_KEY"`
	CookieBlockKey string `yaml:"cookieBlockKey,omitempty" env:"COOKIE_BLOCK_KEY"`
	CookieSecure   bool   `yaml:"cookieSecure,omitempty" env:"COOKIE_SECURE"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" env:"LOG_LEVEL"`
	Format string `yaml:"format,omitempty" env:"LOG_FORMAT"`
}
