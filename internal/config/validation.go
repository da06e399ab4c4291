package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"scoreboard/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Fields lists the offending field names in order.
func (ve ValidationErrors) Fields() []string {
	fields := make([]string, len(ve))
	for i, e := range ve {
		fields[i] = e.Field
	}
	return fields
}

func (ve ValidationErrors) orNil() error {
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateOneOf(errs *ValidationErrors, field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	errs.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")), value)
}

func validateHTTPURL(errs *ValidationErrors, field, value string, required bool) {
	if value == "" {
		if required {
			errs.Add(field, "is required")
		}
		return
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add(field, "must be an absolute http(s) URL", value)
	}
}

func validateKey(errs *ValidationErrors, field, value string, lengths ...int) {
	if value == "" {
		return
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		errs.Add(field, "must be hex encoded")
		return
	}
	for _, n := range lengths {
		if len(key) == n {
			return
		}
	}
	errs.Add(field, fmt.Sprintf("must decode to one of %v bytes", lengths))
}

// Validate checks every value that has a fixed shape. OAuth client
// settings are optional here; see RequireOAuth.
func (c Config) Validate() error {
	var errs ValidationErrors

	validateHTTPURL(&errs, "oauth.baseUrl", c.OAuth.BaseURL, true)
	validateHTTPURL(&errs, "oauth.redirectUri", c.OAuth.RedirectURI, false)
	validateHTTPURL(&errs, "oauth.proxyUrl", c.OAuth.ProxyURL, false)
	if c.OAuth.DirectFallback && c.OAuth.ProxyURL == "" {
		errs.Add("oauth.directFallback", "requires oauth.proxyUrl")
	}
	if c.OAuth.CallbackTimeout <= 0 {
		errs.Add("oauth.callbackTimeout", "must be positive", c.OAuth.CallbackTimeout)
	}

	validateHTTPURL(&errs, "api.baseUrl", c.API.BaseURL, true)
	if c.API.RequestTimeout <= 0 {
		errs.Add("api.requestTimeout", "must be positive", c.API.RequestTimeout)
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs.Add("rateLimit.requestsPerSecond", "must be positive", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.RequestsPerHour <= 0 {
		errs.Add("rateLimit.requestsPerHour", "must be positive", c.RateLimit.RequestsPerHour)
	}
	if c.RateLimit.BurstLimit <= 0 {
		errs.Add("rateLimit.burstLimit", "must be positive", c.RateLimit.BurstLimit)
	}
	if c.RateLimit.BurstWindow <= 0 {
		errs.Add("rateLimit.burstWindow", "must be positive", c.RateLimit.BurstWindow)
	}

	validateOneOf(&errs, "storage.backend", c.Storage.Backend, StorageFile, StorageSQLite, StorageMemory)
	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.Dir == "" {
			errs.Add("storage.dir", "is required for the file backend")
		}
	case StorageSQLite:
		if c.Storage.Path == "" {
			errs.Add("storage.path", "is required for the sqlite backend")
		}
	}

	if c.Server.Addr == "" {
		errs.Add("server.addr", "is required")
	}
	validateKey(&errs, "server.cookieHashKey", c.Server.CookieHashKey, 32, 64)
	validateKey(&errs, "server.cookieBlockKey", c.Server.CookieBlockKey, 16, 24, 32)
	if c.Server.CookieBlockKey != "" && c.Server.CookieHashKey == "" {
		errs.Add("server.cookieHashKey", "is required when server.cookieBlockKey is set")
	}

	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		errs.Add("logging.level", "must be one of: debug, info, warn, error", c.Logging.Level)
	}
	validateOneOf(&errs, "logging.format", c.Logging.Format, string(logging.FormatText), string(logging.FormatJSON))

	return errs.orNil()
}

// RequireOAuth reports the settings a login needs that are still missing.
func (c Config) RequireOAuth() error {
	var errs ValidationErrors
	if strings.TrimSpace(c.OAuth.ClientID) == "" {
		errs.Add("oauth.clientId", "is required to sign in (set SCOREBOARD_CLIENT_ID)")
	}
	if strings.TrimSpace(c.OAuth.RedirectURI) == "" {
		errs.Add("oauth.redirectUri", "is required to sign in (set SCOREBOARD_REDIRECT_URI)")
	}
	return errs.orNil()
}

// CookieKeys decodes the securecookie keys. Both are nil when unset.
func (s ServerConfig) CookieKeys() (hashKey, blockKey []byte, err error) {
	if s.CookieHashKey != "" {
		if hashKey, err = hex.DecodeString(s.CookieHashKey); err != nil {
			return nil, nil, fmt.Errorf("invalid server.cookieHashKey: %w", err)
		}
	}
	if s.CookieBlockKey != "" {
		if blockKey, err = hex.DecodeString(s.CookieBlockKey); err != nil {
			return nil, nil, fmt.Errorf("invalid server.cookieBlockKey: %w", err)
		}
	}
	return hashKey, blockKey, nil
}
