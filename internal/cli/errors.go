package cli

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"scoreboard/internal/config"
	"scoreboard/internal/intra"
	"scoreboard/internal/oauth"
)

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates the intranet could not be reached.
type ConnectionError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

// Error returns the failure with a hint matching its type.
func (e *ConnectionError) Error() string {
	var hint string
	switch e.Type {
	case ConnectionErrorTLS:
		hint = "TLS certificate verification failed. Check the system clock and any intercepting proxy."
	case ConnectionErrorDNS:
		hint = "The host name could not be resolved. Check api.baseUrl and your DNS settings."
	case ConnectionErrorTimeout:
		hint = "The request timed out. The intranet may be slow; try again or raise api.requestTimeout."
	case ConnectionErrorNetwork:
		hint = "Connection failed. Check your network connection."
	default:
		hint = "The request could not be completed."
	}
	return fmt.Sprintf("%s: cannot reach %s: %s\n\n%s", e.Type, e.Endpoint, ConnectionErrorReason(e.Reason), hint)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// ClassifyConnectionError analyzes an error and returns a ConnectionError with the appropriate type.
// If the error is nil, returns nil.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	connErr := &ConnectionError{Endpoint: endpoint, Type: ConnectionErrorUnknown, Reason: err}
	var dnsErr *net.DNSError
	switch {
	case isTLSError(err):
		connErr.Type = ConnectionErrorTLS
	case errors.As(err, &dnsErr):
		connErr.Type = ConnectionErrorDNS
	case isTimeoutError(err):
		connErr.Type = ConnectionErrorTimeout
	case isNetworkError(err.Error()):
		connErr.Type = ConnectionErrorNetwork
	}
	return connErr
}

// ConnectionErrorReason trims the verbose prefixes net/http puts in front
// of the actual failure.
func ConnectionErrorReason(err error) string {
	if err == nil {
		return "unknown error"
	}
	errStr := err.Error()

	if idx := strings.Index(errStr, "x509:"); idx != -1 {
		return strings.TrimSpace(errStr[idx:])
	}
	if idx := strings.Index(errStr, "connect:"); idx != -1 {
		return strings.TrimSpace(errStr[idx:])
	}
	if colonIdx := strings.LastIndex(errStr, ":"); strings.Contains(errStr, "dial tcp") && colonIdx != -1 {
		return strings.TrimSpace(errStr[colonIdx+1:])
	}
	return errStr
}

// isTLSError checks if the error is related to TLS/certificate issues.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}

	var certErr *x509.CertificateInvalidError
	var hostErr *x509.HostnameError
	var unknownAuthErr *x509.UnknownAuthorityError
	var systemRootsErr *x509.SystemRootsError

	if errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	errStr := err.Error()
	for _, keyword := range []string{"x509:", "certificate", "tls:", "TLS handshake"} {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if the error is a timeout.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if the error string indicates a network connectivity issue.
func isNetworkError(errStr string) bool {
	networkKeywords := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connect:",
	}

	for _, keyword := range networkKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// AuthRequiredError indicates no credential is stored.
type AuthRequiredError struct{}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return `Not signed in to the 42 intranet

To sign in, run:
  scoreboard auth login

To check current authentication status:
  scoreboard auth status`
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// AuthExpiredError indicates the stored credential can no longer be used.
type AuthExpiredError struct {
	// Refreshable is true when a refresh could still be attempted.
	Refreshable bool
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthExpiredError) Error() string {
	msg := `Authentication expired

To sign in again, run:
  scoreboard auth login`
	if e.Refreshable {
		msg += `

Or try to refresh your token:
  scoreboard auth refresh`
	}
	return msg
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthExpiredError) Is(target error) bool {
	_, ok := target.(*AuthExpiredError)
	return ok
}

// AuthFailedError indicates a sign-in attempt failed.
type AuthFailedError struct {
	// Reason is the underlying error.
	Reason error
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthFailedError) Error() string {
	return fmt.Sprintf(`Sign-in failed: %v

To retry, run:
  scoreboard auth login`, e.Reason)
}

// Unwrap returns the underlying error.
func (e *AuthFailedError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthFailedError) Is(target error) bool {
	_, ok := target.(*AuthFailedError)
	return ok
}

// Translate maps errors from the services onto the CLI error types above,
// which carry guidance and drive the exit code. endpoint is the API base
// URL, used in connection errors; refresh says whether `auth refresh` can
// help. Errors it does not recognise are returned unchanged.
func Translate(err error, endpoint string, refresh bool) error {
	if err == nil {
		return nil
	}

	var (
		verrs    config.ValidationErrors
		cfgErr   *oauth.ConfigurationError
		exchange *oauth.TokenExchangeError
		csrf     *oauth.CSRFError
		denied   *oauth.AuthorizationDeniedError
		apiErr   *intra.APIError
		netErr   *intra.NetworkError
	)
	switch {
	case errors.As(err, &verrs), errors.As(err, &cfgErr):
		return err
	case errors.Is(err, oauth.ErrNotAuthenticated):
		return &AuthRequiredError{}
	case errors.Is(err, oauth.ErrReauthRequired):
		return &AuthExpiredError{Refreshable: refresh}
	case errors.As(err, &apiErr) && errors.Is(apiErr, intra.ErrAuthExpired):
		return &AuthExpiredError{Refreshable: refresh}
	case errors.As(err, &exchange), errors.As(err, &csrf), errors.As(err, &denied):
		return &AuthFailedError{Reason: err}
	case errors.As(err, &netErr):
		return ClassifyConnectionError(err, endpoint)
	}
	return err
}
