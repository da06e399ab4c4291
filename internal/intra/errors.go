package intra

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error classes. An *APIError matches the class of its status with errors.Is.
var (
	// ErrAuthExpired means no usable token exists and refreshing did not
	// help. The user has to log in again.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrRateLimited is a 429 that persisted through the allowed retries.
	ErrRateLimited = errors.New("rate limited by the API")

	// ErrServer is a 5xx that persisted through the allowed retries.
	ErrServer = errors.New("API server error")
)

// Codes carried by APIError.Code.
const (
	CodeHTTPError    = "HTTP_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeAuthExpired  = "AUTH_EXPIRED"
)

// APIError is a non-2xx response, or a request that could not be
// authenticated.
type APIError struct {
	Status int
	// Code is always one of the Code* constants of this package.
	Code string
	// ProviderCode is the "code" field of the response body, if any.
	ProviderCode string
	Message      string
	// RetryAfter is the server-requested delay on 429 responses.
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("API error %d (%s): %s, retry after %s", e.Status, e.Code, msg, e.RetryAfter)
	}
	return fmt.Sprintf("API error %d (%s): %s", e.Status, e.Code, msg)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthExpired:
		return e.Status == http.StatusUnauthorized
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// NetworkError is a request that never produced an HTTP response.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: network error: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
