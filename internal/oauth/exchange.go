package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"scoreboard/pkg/logging"
	pkgoauth "scoreboard/pkg/oauth"
)

// ExchangeRequest carries what the token endpoint needs to redeem a code.
type ExchangeRequest struct {
	Code         string `json:"code"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

// Exchanger redeems an authorization code for tokens. Failures are
// reported as *TokenExchangeError.
type Exchanger interface {
	Exchange(ctx context.Context, req ExchangeRequest) (pkgoauth.TokenResponse, error)
}

// DirectExchanger calls the provider's token endpoint from this process.
// The client secret is sent only if the config has one, which should be the
// case only on a trusted host.
type DirectExchanger struct {
	config     *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

func NewDirectExchanger(config *oauth2.Config, httpClient *http.Client) *DirectExchanger {
	return &DirectExchanger{config: config, httpClient: httpClient, now: time.Now}
}

func (d *DirectExchanger) Exchange(ctx context.Context, req ExchangeRequest) (pkgoauth.TokenResponse, error) {
	if d.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, d.httpClient)
	}

	opts := []oauth2.AuthCodeOption{}
	if req.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(req.CodeVerifier))
	}
	if req.RedirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", req.RedirectURI))
	}

	tok, err := d.config.Exchange(ctx, req.Code, opts...)
	if err != nil {
		if pe := pkgoauth.AsProviderError(err); pe != nil {
			return pkgoauth.TokenResponse{}, &TokenExchangeError{
				StatusCode: pe.StatusCode,
				Code:       pe.Code,
				Message:    pe.Message(),
				Err:        pe,
			}
		}
		return pkgoauth.TokenResponse{}, &TokenExchangeError{Err: err}
	}

	resp := pkgoauth.FromOAuth2Token(tok, d.now())
	if resp.AccessToken == "" {
		return pkgoauth.TokenResponse{}, &TokenExchangeError{Message: "response has no access_token"}
	}
	return resp, nil
}

// ProxyResponse is the body returned by a trusted token-exchange proxy.
type ProxyResponse struct {
	Success bool                    `json:"success"`
	Tokens  *pkgoauth.TokenResponse `json:"tokens,omitempty"`
	User    json.RawMessage         `json:"user,omitempty"`
	Message string                  `json:"message,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// ProxyExchanger posts the code to a trusted server that holds the client
// secret and performs the exchange on the client's behalf.
type ProxyExchanger struct {
	endpoint   string
	httpClient *http.Client
}

// NewProxyExchanger targets endpoint, e.g. https://host/api/oauth-token.
func NewProxyExchanger(endpoint string, httpClient *http.Client) *ProxyExchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: pkgoauth.DefaultHTTPTimeout}
	}
	return &ProxyExchanger{endpoint: endpoint, httpClient: httpClient}
}

func (p *ProxyExchanger) Exchange(ctx context.Context, req ExchangeRequest) (pkgoauth.TokenResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return pkgoauth.TokenResponse{}, &TokenExchangeError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgoauth.TokenResponse{}, &TokenExchangeError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return pkgoauth.TokenResponse{}, &TokenExchangeError{Err: fmt.Errorf("proxy request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgoauth.TokenResponse{}, &TokenExchangeError{StatusCode: resp.StatusCode, Err: err}
	}

	var pr ProxyResponse
	decodeErr := json.Unmarshal(data, &pr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := pr.Message
		if msg == "" {
			msg = pr.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return pkgoauth.TokenResponse{}, &TokenExchangeError{StatusCode: resp.StatusCode, Code: pr.Error, Message: msg}
	}
	if decodeErr != nil {
		return pkgoauth.TokenResponse{}, &TokenExchangeError{StatusCode: resp.StatusCode, Err: fmt.Errorf("invalid proxy response: %w", decodeErr)}
	}
	if pr.Tokens == nil || pr.Tokens.AccessToken == "" {
		return pkgoauth.TokenResponse{}, &TokenExchangeError{StatusCode: resp.StatusCode, Message: "proxy response has no access_token"}
	}
	return *pr.Tokens, nil
}

// FallbackExchanger tries Primary and, if Primary could not be reached,
// Secondary. A primary that answered with a client error (the provider
// rejected the code, say) is final: the code is single-use and must not be
// submitted twice. Using a direct exchange as the secondary means the
// client secret (if any) lives on this host, so enabling it is a deployment
// decision.
type FallbackExchanger struct {
	Primary   Exchanger
	Secondary Exchanger
}

func (f *FallbackExchanger) Exchange(ctx context.Context, req ExchangeRequest) (pkgoauth.TokenResponse, error) {
	resp, err := f.Primary.Exchange(ctx, req)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil || !unavailable(err) {
		return pkgoauth.TokenResponse{}, err
	}

	logging.Warn("OAuth", "Primary token exchange unavailable, falling back to direct exchange: %v", err)
	resp, fallbackErr := f.Secondary.Exchange(ctx, req)
	if fallbackErr == nil {
		return resp, nil
	}

	var te *TokenExchangeError
	if errors.As(fallbackErr, &te) {
		return pkgoauth.TokenResponse{}, &TokenExchangeError{
			StatusCode: te.StatusCode,
			Code:       te.Code,
			Message:    te.Error(),
			Err:        errors.Join(err, fallbackErr),
		}
	}
	return pkgoauth.TokenResponse{}, &TokenExchangeError{Err: errors.Join(err, fallbackErr)}
}

// unavailable reports whether a failed exchange never got an answer about
// the code: a transport failure, a missing endpoint or a server error.
func unavailable(err error) bool {
	var te *TokenExchangeError
	if !errors.As(err, &te) {
		return true
	}
	switch {
	case te.StatusCode == 0:
		return te.Code == ""
	case te.StatusCode == http.StatusNotFound:
		return true
	case te.StatusCode >= 500:
		return true
	default:
		return false
	}
}
