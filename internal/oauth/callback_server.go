package oauth

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"scoreboard/pkg/logging"
)

// CallbackTimeout is how long the CLI waits for the user to finish in the
// browser.
const CallbackTimeout = 10 * time.Minute

// resultWait bounds how long the callback page waits for the exchange.
const resultWait = 30 * time.Second

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTmpl = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTmpl   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// CallbackServer is a temporary loopback HTTP server that receives the
// authorization callback for the CLI. It serves exactly one callback.
type CallbackServer struct {
	addr string
	path string

	server   *http.Server
	listener net.Listener

	paramsCh chan CallbackParams
	resultCh chan Result
	errorCh  chan error
	once     sync.Once
	stopOnce sync.Once
}

// NewCallbackServer prepares a server for redirectURI, which must be an
// http URL on a loopback host, e.g. http://localhost:3000/oauth/callback.
func NewCallbackServer(redirectURI string) (*CallbackServer, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI: %w", err)
	}
	if u.Scheme != "http" {
		return nil, fmt.Errorf("redirect URI %q must use http for a local callback", redirectURI)
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		return nil, fmt.Errorf("redirect URI host %q is not a loopback address", host)
	}
	port := u.Port()
	if port == "" {
		port = "80"
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	return &CallbackServer{
		addr:     net.JoinHostPort("127.0.0.1", port),
		path:     path,
		paramsCh: make(chan CallbackParams, 1),
		resultCh: make(chan Result, 1),
		errorCh:  make(chan error, 1),
	}, nil
}

// Start begins listening. The server stops when ctx is cancelled.
func (s *CallbackServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start callback server on %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errorCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	logging.Debug("OAuth", "Callback server listening on %s%s", s.addr, s.path)
	return nil
}

// Addr returns the listening address once Start has succeeded.
func (s *CallbackServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// WaitForCallback blocks until the browser hits the callback path.
func (s *CallbackServer) WaitForCallback(ctx context.Context) (CallbackParams, error) {
	select {
	case p := <-s.paramsCh:
		return p, nil
	case err := <-s.errorCh:
		return CallbackParams{}, err
	case <-ctx.Done():
		return CallbackParams{}, ctx.Err()
	}
}

// Complete renders the outcome to the waiting browser.
func (s *CallbackServer) Complete(r Result) {
	select {
	case s.resultCh <- r:
	default:
	}
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	handled := false
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})
	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.paramsCh <- CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	var result Result
	select {
	case result = <-s.resultCh:
	case <-time.After(resultWait):
		result = Result{Err: errors.New("timed out waiting for the token exchange")}
	case <-r.Context().Done():
		return
	}

	WriteResultPage(w, result)

	go func() {
		time.Sleep(time.Second)
		s.Stop()
	}()
}

// WriteResultPage renders the minimal HTML page shown in the browser
// after a callback. Failures are written with status 400.
func WriteResultPage(w http.ResponseWriter, result Result) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Type", "text/html; charset=utf-8")

	if result.Success {
		_ = successTmpl.Execute(w, nil)
		return
	}
	w.WriteHeader(http.StatusBadRequest)
	_ = errorTmpl.Execute(w, errorPageData(result.Err))
}

func errorPageData(err error) map[string]string {
	data := map[string]string{"Message": "The login could not be completed."}
	var denied *AuthorizationDeniedError
	var csrf *CSRFError
	var exch *TokenExchangeError
	switch {
	case errors.As(err, &denied):
		data["Message"] = "Access was not granted."
		data["Code"] = denied.Code
	case errors.As(err, &csrf):
		data["Message"] = "This login link is no longer valid (" + string(csrf.Reason) + ")."
	case errors.As(err, &exch):
		data["Message"] = "The authorization code could not be exchanged."
		data["Code"] = exch.Code
	}
	return data
}

// Stop shuts the server down. It is safe to call more than once.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

// LoginWithCallbackServer runs a complete interactive login: it starts
// srv, initiates the flow, waits for the callback and completes it.
// onURL, if set, receives the authorization URL (for printing).
func (f *Flow) LoginWithCallbackServer(ctx context.Context, srv *CallbackServer, timeout time.Duration, onURL func(string)) Result {
	if timeout <= 0 {
		timeout = CallbackTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		return Result{Err: err}
	}
	defer srv.Stop()

	authURL, err := f.InitiateLogin(ctx, DefaultRedirectTo)
	if authURL == "" {
		return Result{Err: err}
	}
	if onURL != nil {
		onURL(authURL)
	}
	if err != nil {
		logging.Warn("OAuth", "Could not open browser: %v", err)
	}

	params, err := srv.WaitForCallback(ctx)
	if err != nil {
		_ = f.states.Clear(context.WithoutCancel(ctx))
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Err: fmt.Errorf("timed out waiting for authorization callback: %w", err)}
		}
		return Result{Err: err}
	}

	res := f.HandleCallback(ctx, params)
	// The deferred Stop waits for the handler to finish writing the page.
	srv.Complete(res)
	return res
}
