package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"scoreboard/internal/intra"
	"scoreboard/internal/metrics"
	"scoreboard/internal/oauth"
	"scoreboard/internal/ratelimit"
	"scoreboard/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout outlasts the API client's request deadline.
	DefaultWriteTimeout = 150 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultCallbackPath is used when the redirect URI has no path.
	DefaultCallbackPath = "/oauth/callback"
)

// ConfigStatus reports which settings are present, never their values.
type ConfigStatus struct {
	ClientID     bool `json:"hasClientId"`
	RedirectURI  bool `json:"hasRedirectUri"`
	ClientSecret bool `json:"hasClientSecret"`
	Refresh      bool `json:"refreshEnabled"`
}

// Options are the server's dependencies.
type Options struct {
	Flow    *oauth.Flow
	API     *intra.Client
	Limiter *ratelimit.Limiter
	Metrics *metrics.Metrics

	// Cookies holds pending login attempts.
	Cookies sessions.Store

	// RedirectURI is the registered callback; its path is routed to the
	// callback handler.
	RedirectURI string

	// TrustedExchanger serves POST /api/oauth-token. Nil disables the
	// route; it must only be set when a client secret is configured.
	TrustedExchanger oauth.Exchanger
	// APIBaseURL is used to look up the user for a trusted exchange.
	APIBaseURL string

	Config ConfigStatus
}

// Server is the dashboard HTTP server.
type Server struct {
	flow      *oauth.Flow
	api       *intra.Client
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	cookies   sessions.Store
	exchanger oauth.Exchanger
	apiBase   string
	config    ConfigStatus

	callbackPath string
	httpServer   *http.Server
}

// New validates opts and builds a Server.
func New(opts Options) (*Server, error) {
	switch {
	case opts.Flow == nil:
		return nil, errors.New("server: flow is required")
	case opts.API == nil:
		return nil, errors.New("server: API client is required")
	case opts.Limiter == nil:
		return nil, errors.New("server: rate limiter is required")
	case opts.Metrics == nil:
		return nil, errors.New("server: metrics are required")
	case opts.Cookies == nil:
		return nil, errors.New("server: cookie store is required")
	}

	callbackPath := DefaultCallbackPath
	if opts.RedirectURI != "" {
		if err := validateHTTPSRequirement(opts.RedirectURI); err != nil {
			return nil, err
		}
		u, _ := url.Parse(opts.RedirectURI)
		if u.Path != "" && u.Path != "/" {
			callbackPath = u.Path
		}
	}

	if opts.TrustedExchanger != nil {
		logging.Warn("Server", "Trusted token exchange enabled at /api/oauth-token; the client secret is held by this process")
	}

	return &Server{
		flow:         opts.Flow,
		api:          opts.API,
		limiter:      opts.Limiter,
		metrics:      opts.Metrics,
		cookies:      opts.Cookies,
		exchanger:    opts.TrustedExchanger,
		apiBase:      opts.APIBaseURL,
		config:       opts.Config,
		callbackPath: callbackPath,
	}, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(logRequests)
	r.Use(securityHeaders)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(noStore)
		r.Get("/login", s.handleLogin)
		r.Get(s.callbackPath, s.handleCallback)
		r.With(sameOrigin).Post("/logout", s.handleLogout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(noStore)
		r.Get("/me", s.handleMe)
		r.Get("/students", s.handleStudents)
		r.Get("/poolers", s.handlePoolers)
		r.Get("/summary", s.handleSummary)
		r.Get("/status", s.handleStatus)
		if s.exchanger != nil {
			r.Post("/oauth-token", s.handleOAuthToken)
		}
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Server", "Listening on http://%s", ln.Addr())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	logging.Info("Server", "Shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// requestFlow binds the login attempt to this request's cookie.
func (s *Server) requestFlow(w http.ResponseWriter, r *http.Request) *oauth.Flow {
	states := oauth.NewStateStore(oauth.NewCookieAttemptBackend(s.cookies, w, r))
	return s.flow.With(oauth.WithStateStore(states), oauth.WithNavigator(nil))
}

// validateHTTPSRequirement allows plain HTTP only for loopback hosts.
func validateHTTPSRequirement(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid redirect URI: %w", err)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("redirect URI must use HTTPS outside localhost (got: %s)", rawURL)
		}
		return nil
	default:
		return fmt.Errorf("invalid redirect URI scheme: %q. Must be http (localhost only) or https", u.Scheme)
	}
}
