package oauth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	pkgoauth "scoreboard/pkg/oauth"
)

// ExpirySkew is subtracted from a credential's expiry before it is handed
// out, so a token never expires while a request is in flight.
const ExpirySkew = 60 * time.Second

// Credential is the stored result of a successful token exchange or refresh.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewCredential stamps a token response with the local receipt time.
func NewCredential(resp pkgoauth.TokenResponse, now time.Time) *Credential {
	return &Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
}

// Usable reports whether the access token can be sent now, leaving
// ExpirySkew of headroom.
func (c *Credential) Usable(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt.Add(-ExpirySkew))
}

// Live reports whether the access token has not yet expired, without skew.
func (c *Credential) Live(now time.Time) bool {
	return c != nil && c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Obfuscate encodes a credential for durable storage. This keeps tokens out
// of casual view in files and databases; it is not encryption.
func Obfuscate(c *Credential) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credential: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Deobfuscate reverses Obfuscate.
func Deobfuscate(blob string) (*Credential, error) {
	data, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	if c.AccessToken == "" {
		return nil, fmt.Errorf("stored credential has no access token")
	}
	return &c, nil
}
