package oauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	pkgoauth "scoreboard/pkg/oauth"
)

// Refresher obtains a new token response from a refresh token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (pkgoauth.TokenResponse, error)
}

// GrantRefresher uses the refresh_token grant against the provider's token
// endpoint.
type GrantRefresher struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewGrantRefresher creates a refresher. A nil httpClient uses
// http.DefaultClient.
func NewGrantRefresher(config *oauth2.Config, httpClient *http.Client) *GrantRefresher {
	return &GrantRefresher{config: config, httpClient: httpClient}
}

func (g *GrantRefresher) Refresh(ctx context.Context, refreshToken string) (pkgoauth.TokenResponse, error) {
	if refreshToken == "" {
		return pkgoauth.TokenResponse{}, fmt.Errorf("no refresh token available")
	}
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}

	// An empty access token forces the source to hit the token endpoint.
	src := g.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		if pe := pkgoauth.AsProviderError(err); pe != nil {
			return pkgoauth.TokenResponse{}, pe
		}
		return pkgoauth.TokenResponse{}, fmt.Errorf("refresh request failed: %w", err)
	}
	resp := pkgoauth.FromOAuth2Token(tok, time.Now())
	if resp.RefreshToken == "" {
		resp.RefreshToken = refreshToken
	}
	return resp, nil
}

// DisabledRefresher never refreshes; expired sessions require a new login.
type DisabledRefresher struct{}

func (DisabledRefresher) Refresh(context.Context, string) (pkgoauth.TokenResponse, error) {
	return pkgoauth.TokenResponse{}, ErrRefreshUnsupported
}

// Revoker invalidates a credential at the provider.
type Revoker interface {
	Revoke(ctx context.Context, c *Credential) error
}

// HTTPRevoker posts the access token to an RFC 7009 revocation endpoint.
type HTTPRevoker struct {
	client       *pkgoauth.Client
	endpoint     string
	clientID     string
	clientSecret string
}

func NewHTTPRevoker(client *pkgoauth.Client, endpoint, clientID, clientSecret string) *HTTPRevoker {
	return &HTTPRevoker{
		client:       client,
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (r *HTTPRevoker) Revoke(ctx context.Context, c *Credential) error {
	return r.client.RevokeToken(ctx, pkgoauth.RevokeRequest{
		Endpoint:      r.endpoint,
		Token:         c.AccessToken,
		TokenTypeHint: "access_token",
		ClientID:      r.clientID,
		ClientSecret:  r.clientSecret,
	})
}
