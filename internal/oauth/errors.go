package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated means no credential is stored.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrReauthRequired means a credential exists but cannot be used or
	// refreshed. The user has to log in again.
	ErrReauthRequired = errors.New("re-authentication required")

	// ErrRefreshUnsupported is returned by DisabledRefresher.
	ErrRefreshUnsupported = errors.New("token refresh is not supported")

	// ErrMalformedCallback means the callback carried neither an error nor
	// both code and state.
	ErrMalformedCallback = errors.New("malformed authorization callback")
)

// ConfigurationError reports a missing or invalid OAuth setting.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("oauth configuration error: %s: %s", e.Field, e.Message)
}

// CSRFReason says why a callback's state was rejected.
type CSRFReason string

const (
	CSRFMissingAttempt CSRFReason = "no login attempt in progress"
	CSRFStateMismatch  CSRFReason = "state mismatch"
	CSRFExpired        CSRFReason = "login attempt expired"
)

// CSRFError is returned when the callback state does not match the stored
// attempt. No token exchange is made after a CSRFError.
type CSRFError struct {
	Reason CSRFReason
}

func (e *CSRFError) Error() string {
	return "invalid OAuth state: " + string(e.Reason)
}

// AuthorizationDeniedError carries the error the provider put on the
// callback URL, typically access_denied.
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s (%s)", e.Description, e.Code)
	}
	return "authorization denied: " + e.Code
}

// TokenExchangeError is a failed authorization-code exchange. Exchanges are
// never retried because codes are single-use.
type TokenExchangeError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange failed (status %d): %s", e.StatusCode, msg)
	}
	return "token exchange failed: " + msg
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// RevocationError is a failed provider-side revocation. The local
// credential has already been cleared when it is returned.
type RevocationError struct {
	Err error
}

func (e *RevocationError) Error() string {
	return "provider revocation failed: " + e.Err.Error()
}

func (e *RevocationError) Unwrap() error {
	return e.Err
}
