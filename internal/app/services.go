package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"scoreboard/internal/config"
	"scoreboard/internal/intra"
	"scoreboard/internal/metrics"
	"scoreboard/internal/oauth"
	"scoreboard/internal/ratelimit"
	"scoreboard/internal/server"
	"scoreboard/pkg/logging"
	pkgoauth "scoreboard/pkg/oauth"
)

// Services holds every component built from the configuration. It is
// created once per process and passed to whatever needs it; nothing here
// is a package-level singleton.
//
// Dependencies are built leaf first:
//  1. Metrics and the rate limiter
//  2. Credential storage and the TokenStore (with refresher and revoker)
//  3. The authorization Flow (with its exchanger)
//  4. The intranet API client
type Services struct {
	Config config.Config

	Metrics *metrics.Metrics
	Limiter *ratelimit.Limiter
	Tokens  *oauth.TokenStore
	Flow    *oauth.Flow
	API     *intra.Client

	flowConfig oauth.FlowConfig
	closers    []io.Closer
}

// InitializeServices builds Services from a validated configuration.
func InitializeServices(cfg config.Config) (*Services, error) {
	s := &Services{Config: cfg}

	s.Metrics = metrics.New()
	s.Limiter = ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		RequestsPerHour:   cfg.RateLimit.RequestsPerHour,
		BurstLimit:        cfg.RateLimit.BurstLimit,
		BurstWindow:       cfg.RateLimit.BurstWindow,
	}, ratelimit.WithObserver(s.Metrics))

	storage, err := s.newStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential storage: %w", err)
	}

	s.flowConfig = oauth.FlowConfig{
		ClientID:    cfg.OAuth.ClientID,
		RedirectURI: cfg.OAuth.RedirectURI,
		Scope:       cfg.OAuth.Scope,
		Provider:    pkgoauth.IntraProvider(cfg.OAuth.BaseURL),
	}

	s.Tokens = oauth.NewTokenStore(storage,
		oauth.WithRefresher(s.newRefresher()),
		oauth.WithRevoker(oauth.NewHTTPRevoker(pkgoauth.NewClient(), s.flowConfig.Provider.RevokeURL, cfg.OAuth.ClientID, cfg.OAuth.ClientSecret)),
		oauth.WithRefreshObserver(s.Metrics),
	)

	s.Flow = oauth.NewFlow(s.flowConfig, s.Tokens,
		oauth.WithExchanger(s.newExchanger()),
		oauth.WithLoginObserver(s.Metrics),
	)

	opts := []intra.Option{
		intra.WithLimiter(s.Limiter),
		intra.WithObserver(s.Metrics),
		intra.WithRequestTimeout(cfg.API.RequestTimeout),
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, intra.WithUserAgent(cfg.API.UserAgent))
	}
	s.API, err = intra.NewClient(cfg.API.BaseURL, s.Tokens, opts...)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	logging.Debug("Services", "Initialized services (storage=%s, refresh=%t)", cfg.Storage.Backend, cfg.OAuth.Refresh)
	return s, nil
}

func (s *Services) newStorage() (oauth.CredentialStorage, error) {
	switch s.Config.Storage.Backend {
	case config.StorageMemory:
		return oauth.NewMemoryStorage(), nil
	case config.StorageSQLite:
		db, err := oauth.OpenSQLiteStorage(s.Config.Storage.Path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db)
		return db, nil
	case config.StorageFile, "":
		return oauth.NewFileStorage(s.Config.Storage.Dir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Config.Storage.Backend)
	}
}

func (s *Services) newRefresher() oauth.Refresher {
	if !s.Config.OAuth.Refresh {
		return oauth.DisabledRefresher{}
	}
	return oauth.NewGrantRefresher(s.flowConfig.OAuth2Config(s.Config.OAuth.ClientSecret), nil)
}

// newExchanger picks how codes are redeemed: through the trusted proxy when
// one is configured (optionally falling back to a direct exchange), else
// directly, with the client secret only if this host has one.
func (s *Services) newExchanger() oauth.Exchanger {
	direct := oauth.NewDirectExchanger(s.flowConfig.OAuth2Config(s.Config.OAuth.ClientSecret), nil)
	if s.Config.OAuth.ProxyURL == "" {
		return direct
	}

	proxy := oauth.NewProxyExchanger(s.Config.OAuth.ProxyURL, nil)
	if !s.Config.OAuth.DirectFallback {
		return proxy
	}
	logging.Audit(logging.AuditEvent{
		Action:  "exchange_fallback_enabled",
		Outcome: "configured",
		Detail:  "proxy exchange falls back to a direct exchange from this host",
	})
	return &oauth.FallbackExchanger{Primary: proxy, Secondary: direct}
}

// CookieStore returns the store for pending dashboard logins. Without
// configured keys, random ones are generated for this process.
func (s *Services) CookieStore() (sessions.Store, error) {
	hashKey, blockKey, err := s.Config.Server.CookieKeys()
	if err != nil {
		return nil, err
	}
	if hashKey == nil {
		logging.Info("Services", "No cookie keys configured, generating ephemeral keys")
		hashKey = securecookie.GenerateRandomKey(64)
		blockKey = securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, errors.New("failed to generate cookie keys")
		}
	}
	return oauth.NewAttemptCookieStore(hashKey, blockKey, s.Config.Server.CookieSecure), nil
}

// NewServer wires the dashboard server. The trusted exchange route is only
// enabled when this host holds the client secret.
func (s *Services) NewServer() (*server.Server, error) {
	cookies, err := s.CookieStore()
	if err != nil {
		return nil, err
	}

	var trusted oauth.Exchanger
	if s.Config.OAuth.ClientSecret != "" {
		trusted = oauth.NewDirectExchanger(s.flowConfig.OAuth2Config(s.Config.OAuth.ClientSecret), nil)
	}

	return server.New(server.Options{
		Flow:             s.Flow,
		API:              s.API,
		Limiter:          s.Limiter,
		Metrics:          s.Metrics,
		Cookies:          cookies,
		RedirectURI:      s.Config.OAuth.RedirectURI,
		TrustedExchanger: trusted,
		APIBaseURL:       s.Config.API.BaseURL,
		Config: server.ConfigStatus{
			ClientID:     s.Config.OAuth.ClientID != "",
			RedirectURI:  s.Config.OAuth.RedirectURI != "",
			ClientSecret: s.Config.OAuth.ClientSecret != "",
			Refresh:      s.Config.OAuth.Refresh,
		},
	})
}

// LoginWithBrowser runs the interactive CLI login on a loopback callback
// server. onURL receives the authorization URL before the browser opens.
func (s *Services) LoginWithBrowser(ctx context.Context, openBrowser bool, onURL func(string)) oauth.Result {
	if err := s.Config.RequireOAuth(); err != nil {
		return oauth.Result{Err: err}
	}
	srv, err := oauth.NewCallbackServer(s.Config.OAuth.RedirectURI)
	if err != nil {
		return oauth.Result{Err: err}
	}

	flow := s.Flow
	if openBrowser {
		flow = flow.With(oauth.WithNavigator(oauth.BrowserNavigator{}))
	}
	return flow.LoginWithCallbackServer(ctx, srv, s.Config.OAuth.CallbackTimeout, onURL)
}

// Close releases storage handles.
func (s *Services) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
