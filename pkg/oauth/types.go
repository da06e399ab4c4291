package oauth

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenResponse is the body returned by the provider's token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`

	// CreatedAt is the provider's issue time in Unix seconds, if reported.
	CreatedAt int64 `json:"created_at,omitempty"`
}

// Scopes returns the granted scope as a slice.
func (t TokenResponse) Scopes() []string {
	return strings.Fields(t.Scope)
}

// FromOAuth2Token converts a token returned by golang.org/x/oauth2 into a
// TokenResponse. When expires_in is not reported directly it is derived
// from the token's expiry relative to now.
func FromOAuth2Token(tok *oauth2.Token, now time.Time) TokenResponse {
	resp := TokenResponse{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	}
	if v, ok := extraInt(tok.Extra("expires_in")); ok && resp.ExpiresIn == 0 {
		resp.ExpiresIn = v
	}
	if resp.ExpiresIn == 0 && !tok.Expiry.IsZero() {
		resp.ExpiresIn = int64(tok.Expiry.Sub(now).Round(time.Second) / time.Second)
	}
	if s, ok := tok.Extra("scope").(string); ok {
		resp.Scope = s
	}
	if v, ok := extraInt(tok.Extra("created_at")); ok {
		resp.CreatedAt = v
	}
	return resp
}

func extraInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
