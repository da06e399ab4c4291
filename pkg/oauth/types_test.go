package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestFromOAuth2Token(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("reads provider fields from the raw response", func(t *testing.T) {
		tok := (&oauth2.Token{
			AccessToken:  "a",
			TokenType:    "bearer",
			RefreshToken: "r",
		}).WithExtra(map[string]interface{}{
			"expires_in": float64(7200),
			"scope":      "public",
			"created_at": float64(1700000000),
		})

		resp := FromOAuth2Token(tok, now)
		assert.Equal(t, "a", resp.AccessToken)
		assert.Equal(t, "r", resp.RefreshToken)
		assert.Equal(t, int64(7200), resp.ExpiresIn)
		assert.Equal(t, "public", resp.Scope)
		assert.Equal(t, int64(1700000000), resp.CreatedAt)
		assert.Equal(t, []string{"public"}, resp.Scopes())
	})

	t.Run("derives expires_in from expiry", func(t *testing.T) {
		tok := &oauth2.Token{AccessToken: "a", Expiry: now.Add(90 * time.Second)}
		resp := FromOAuth2Token(tok, now)
		assert.Equal(t, int64(90), resp.ExpiresIn)
	})
}

func TestIntraProvider(t *testing.T) {
	p := IntraProvider("")
	assert.Equal(t, "https://api.intra.42.fr/oauth/authorize", p.AuthorizeURL)
	assert.Equal(t, "https://api.intra.42.fr/oauth/token", p.TokenURL)
	assert.Equal(t, "https://api.intra.42.fr/oauth/revoke", p.RevokeURL)

	custom := IntraProvider("http://localhost:9999/")
	assert.Equal(t, "http://localhost:9999/oauth/token", custom.TokenURL)
	assert.Equal(t, oauth2.AuthStyleInParams, custom.Endpoint().AuthStyle)
}

func TestParseProviderError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{"description wins", 400, `{"error":"invalid_grant","error_description":"The code expired"}`, "invalid_grant", "The code expired"},
		{"error code only", 401, `{"error":"invalid_client"}`, "invalid_client", "invalid_client"},
		{"message field", 500, `{"message":"boom"}`, "", "boom"},
		{"plain text", 502, "Bad Gateway", "", "Bad Gateway"},
		{"empty body", 503, "", "", http.StatusText(503)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe := ParseProviderError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.code, pe.Code)
			assert.Equal(t, tt.message, pe.Message())
			assert.Contains(t, pe.Error(), tt.message)
		})
	}
}

func TestAsProviderError(t *testing.T) {
	re := &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: 400},
		Body:     []byte(`{"error":"invalid_grant","error_description":"bad code"}`),
	}
	pe := AsProviderError(fmt.Errorf("exchange: %w", re))
	require.NotNil(t, pe)
	assert.Equal(t, 400, pe.StatusCode)
	assert.Equal(t, "invalid_grant", pe.Code)
	assert.Equal(t, "bad code", pe.Message())

	assert.Nil(t, AsProviderError(errors.New("plain")))
}
