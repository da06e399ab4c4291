package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"scoreboard/internal/intra"
	"scoreboard/internal/oauth"
	"scoreboard/pkg/logging"
)

// Error codes in JSON error bodies.
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeRateLimited   = "RATE_LIMITED"
	CodeUpstream      = "UPSTREAM_ERROR"
	CodeTimeout       = "TIMEOUT"
	CodeNotConfigured = "NOT_CONFIGURED"
	CodeInternal      = "INTERNAL"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Server", "Failed to encode response: %v", err)
	}
}

// classify maps err to a status, code and client-safe message.
func classify(err error) (int, string, string) {
	var (
		bad     *badRequestError
		apiErr  *intra.APIError
		netErr  *intra.NetworkError
		cfgErr  *oauth.ConfigurationError
		exchErr *oauth.TokenExchangeError
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, CodeBadRequest, bad.msg
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable, CodeNotConfigured, cfgErr.Error()
	case errors.Is(err, oauth.ErrNotAuthenticated):
		return http.StatusUnauthorized, CodeUnauthorized, "not signed in"
	case errors.Is(err, oauth.ErrReauthRequired):
		return http.StatusUnauthorized, intra.CodeAuthExpired, "session expired, please sign in again"
	case errors.As(err, &apiErr):
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return http.StatusUnauthorized, intra.CodeAuthExpired, "session expired, please sign in again"
		case apiErr.Status == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, CodeRateLimited, "rate limited by the intranet API"
		case apiErr.Status >= 500:
			return http.StatusBadGateway, CodeUpstream, "the intranet API is unavailable"
		case apiErr.Status >= 400:
			code := apiErr.Code
			if code == "" {
				code = intra.CodeHTTPError
			}
			return apiErr.Status, code, apiErr.Message
		}
		return http.StatusBadGateway, CodeUpstream, apiErr.Error()
	case errors.As(err, &netErr):
		return http.StatusBadGateway, CodeUpstream, "could not reach the intranet API"
	case errors.As(err, &exchErr):
		status := http.StatusBadGateway
		if exchErr.StatusCode >= 400 && exchErr.StatusCode < 500 {
			status = http.StatusBadRequest
		}
		code := exchErr.Code
		if code == "" {
			code = CodeUpstream
		}
		return status, code, exchErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, CodeInternal, "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status >= 500 {
		logging.Error("Server", err, "%s %s failed", r.Method, r.URL.Path)
	}

	var apiErr *intra.APIError
	if status == http.StatusTooManyRequests && errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int((apiErr.RetryAfter+time.Second-1)/time.Second)))
	}
	writeJSON(w, status, ErrorBody{
		Error:     code,
		Message:   msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
