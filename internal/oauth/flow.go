package oauth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"

	"scoreboard/pkg/logging"
	pkgoauth "scoreboard/pkg/oauth"
)

// DefaultRedirectTo is where the user lands after login when no target
// was given.
const DefaultRedirectTo = "/"

// FlowConfig describes the registered OAuth application.
type FlowConfig struct {
	ClientID    string
	RedirectURI string
	Scope       string
	Provider    pkgoauth.Provider
}

// OAuth2Config converts the flow settings into an oauth2.Config. The
// client secret is only set for trusted exchanges.
func (c FlowConfig) OAuth2Config(clientSecret string) *oauth2.Config {
	scope := c.Scope
	if scope == "" {
		scope = pkgoauth.DefaultScope
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: clientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       strings.Fields(scope),
		Endpoint:     c.Provider.Endpoint(),
	}
}

// CallbackParams are the query parameters of the authorization callback.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Result is the outcome of HandleCallback.
type Result struct {
	Success    bool
	RedirectTo string
	Err        error
}

// LoginObserver is told the outcome of every callback.
type LoginObserver interface {
	IncrementLogins(outcome string)
}

// Flow runs the authorization-code grant with PKCE.
type Flow struct {
	cfg       FlowConfig
	oauthCfg  *oauth2.Config
	tokens    *TokenStore
	states    *StateStore
	exchanger Exchanger
	navigator Navigator
	observer  LoginObserver
}

// FlowOption configures a Flow.
type FlowOption func(*Flow)

// WithStateStore sets where login attempts live. Default: process memory.
func WithStateStore(s *StateStore) FlowOption {
	return func(f *Flow) { f.states = s }
}

// WithExchanger sets how codes are redeemed. Default: DirectExchanger
// without a client secret.
func WithExchanger(e Exchanger) FlowOption {
	return func(f *Flow) { f.exchanger = e }
}

// WithNavigator sets how the user is sent to the provider. Without one,
// InitiateLogin only returns the URL.
func WithNavigator(n Navigator) FlowOption {
	return func(f *Flow) { f.navigator = n }
}

// WithLoginObserver reports callback outcomes.
func WithLoginObserver(o LoginObserver) FlowOption {
	return func(f *Flow) { f.observer = o }
}

// NewFlow creates a flow that stores credentials in tokens.
func NewFlow(cfg FlowConfig, tokens *TokenStore, opts ...FlowOption) *Flow {
	f := &Flow{
		cfg:      cfg,
		oauthCfg: cfg.OAuth2Config(""),
		tokens:   tokens,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.states == nil {
		f.states = NewStateStore(nil)
	}
	if f.exchanger == nil {
		f.exchanger = NewDirectExchanger(f.oauthCfg, nil)
	}
	return f
}

// With returns a shallow copy of f with opts applied. The dashboard server
// uses it to bind a cookie-backed state store to each request.
func (f *Flow) With(opts ...FlowOption) *Flow {
	c := *f
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Tokens returns the store the flow writes to.
func (f *Flow) Tokens() *TokenStore {
	return f.tokens
}

// InitiateLogin records a new attempt, builds the authorization URL and
// hands it to the navigator. The URL is returned even if navigation fails
// so it can be shown to the user.
func (f *Flow) InitiateLogin(ctx context.Context, redirectTo string) (string, error) {
	if f.cfg.ClientID == "" {
		return "", &ConfigurationError{Field: "oauth.clientId", Message: "client id is not configured"}
	}
	if f.cfg.RedirectURI == "" {
		return "", &ConfigurationError{Field: "oauth.redirectUri", Message: "redirect URI is not configured"}
	}
	if redirectTo == "" {
		redirectTo = DefaultRedirectTo
	}

	attempt, err := f.states.Create(ctx, redirectTo)
	if err != nil {
		return "", err
	}

	authURL := f.oauthCfg.AuthCodeURL(attempt.State, oauth2.S256ChallengeOption(attempt.CodeVerifier))
	logging.Info("OAuth", "Starting login, state=%s", logging.Truncate(attempt.State))

	if f.navigator != nil {
		if err := f.navigator.Navigate(ctx, authURL); err != nil {
			return authURL, err
		}
	}
	return authURL, nil
}

// HandleCallback completes a login. A provider error skips state
// validation. State is validated before any exchange, and the exchange is
// never retried.
func (f *Flow) HandleCallback(ctx context.Context, p CallbackParams) Result {
	if p.Error != "" {
		if err := f.states.Clear(ctx); err != nil {
			logging.Warn("OAuth", "Failed to clear login attempt: %v", err)
		}
		logging.Warn("OAuth", "Provider returned error on callback: %s", p.Error)
		return f.fail("denied", &AuthorizationDeniedError{Code: p.Error, Description: p.ErrorDescription})
	}

	if p.Code == "" || p.State == "" {
		if err := f.states.Clear(ctx); err != nil {
			logging.Warn("OAuth", "Failed to clear login attempt: %v", err)
		}
		return f.fail("malformed", ErrMalformedCallback)
	}

	attempt, err := f.states.Validate(ctx, p.State)
	if err != nil {
		return f.fail("csrf", err)
	}

	resp, err := f.exchanger.Exchange(ctx, ExchangeRequest{
		Code:         p.Code,
		RedirectURI:  f.cfg.RedirectURI,
		CodeVerifier: attempt.CodeVerifier,
	})
	if err != nil {
		var te *TokenExchangeError
		if !errors.As(err, &te) {
			err = &TokenExchangeError{Err: err}
		}
		logging.Error("OAuth", err, "Token exchange failed")
		return f.fail("exchange_failed", err)
	}

	if err := f.tokens.SetTokens(ctx, resp); err != nil {
		return f.fail("storage_failed", err)
	}

	redirectTo := attempt.RedirectTo
	if redirectTo == "" {
		redirectTo = DefaultRedirectTo
	}
	logging.Info("OAuth", "Login completed")
	f.observe("success")
	return Result{Success: true, RedirectTo: redirectTo}
}

func (f *Flow) fail(outcome string, err error) Result {
	f.observe(outcome)
	return Result{Err: err}
}

func (f *Flow) observe(outcome string) {
	if f.observer != nil {
		f.observer.IncrementLogins(outcome)
	}
}

// Logout revokes and clears the credential and drops any pending attempt.
// A provider-side revocation failure is logged, not returned.
func (f *Flow) Logout(ctx context.Context) error {
	if err := f.tokens.Revoke(ctx); err != nil {
		var re *RevocationError
		if !errors.As(err, &re) {
			return err
		}
		logging.Warn("OAuth", "Logout: %v", err)
	}
	if err := f.states.Clear(ctx); err != nil {
		logging.Warn("OAuth", "Failed to clear login attempt: %v", err)
	}
	return nil
}

// IsAuthenticated reports whether a non-expired credential is stored.
func (f *Flow) IsAuthenticated(ctx context.Context) bool {
	return f.tokens.IsAuthenticated(ctx)
}
