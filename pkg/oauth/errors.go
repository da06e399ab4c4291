package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// ProviderError is an error response from an OAuth2 endpoint (RFC 6749 5.2).
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	msg := e.Message()
	if e.StatusCode != 0 {
		return fmt.Sprintf("oauth provider error (status %d): %s", e.StatusCode, msg)
	}
	return "oauth provider error: " + msg
}

// Message returns error_description when present, otherwise the error code,
// otherwise the HTTP status text.
func (e *ProviderError) Message() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Code != "":
		return e.Code
	case e.StatusCode != 0:
		return http.StatusText(e.StatusCode)
	default:
		return "unknown error"
	}
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
}

// ParseProviderError builds a ProviderError from a non-2xx response body.
// Bodies that are not JSON are used verbatim as the description.
func ParseProviderError(status int, body []byte) *ProviderError {
	pe := &ProviderError{StatusCode: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		pe.Code = eb.Error
		pe.Description = eb.ErrorDescription
		if pe.Description == "" {
			pe.Description = eb.Message
		}
		return pe
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		pe.Description = text
	}
	return pe
}

// AsProviderError converts a golang.org/x/oauth2 retrieval error into a
// ProviderError. It returns nil when err is not a *oauth2.RetrieveError.
func AsProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return nil
	}
	status := 0
	var body []byte
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	body = re.Body
	parsed := ParseProviderError(status, body)
	if parsed.Code == "" {
		parsed.Code = re.ErrorCode
	}
	if parsed.Description == "" {
		parsed.Description = re.ErrorDescription
	}
	return parsed
}
