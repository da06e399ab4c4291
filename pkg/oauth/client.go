package oauth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHTTPTimeout is the default timeout for requests to the provider.
const DefaultHTTPTimeout = 30 * time.Second

// Client performs the OAuth2 operations that golang.org/x/oauth2 does not
// cover, currently token revocation (RFC 7009).
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures the OAuth client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new OAuth client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RevokeRequest identifies the token to revoke and the client revoking it.
type RevokeRequest struct {
	Endpoint      string
	Token         string
	TokenTypeHint string
	ClientID      string
	ClientSecret  string
}

// RevokeToken asks the provider to invalidate a token. Per RFC 7009 the
// server answers 200 for unknown tokens too, so any 2xx counts as success.
func (c *Client) RevokeToken(ctx context.Context, r RevokeRequest) error {
	if r.Endpoint == "" {
		return fmt.Errorf("revocation endpoint not configured")
	}

	data := url.Values{"token": {r.Token}}
	if r.TokenTypeHint != "" {
		data.Set("token_type_hint", r.TokenTypeHint)
	}
	if r.ClientID != "" {
		data.Set("client_id", r.ClientID)
	}
	if r.ClientSecret != "" {
		data.Set("client_secret", r.ClientSecret)
	}

	_, err := c.doFormRequest(ctx, r.Endpoint, data)
	return err
}

// doFormRequest posts a form and returns the body of a 2xx response.
func (c *Client) doFormRequest(ctx context.Context, endpoint string, data url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("OAuth request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, ParseProviderError(resp.StatusCode, body)
	}
	return body, nil
}
