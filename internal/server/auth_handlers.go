package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"scoreboard/internal/intra"
	"scoreboard/internal/oauth"
	"scoreboard/internal/ratelimit"
	"scoreboard/pkg/logging"
)

const maxBodyBytes = 64 << 10

// safeRedirect keeps post-login redirects on this site.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return oauth.DefaultRedirectTo
	}
	return target
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	flow := s.requestFlow(w, r)
	authURL, err := flow.InitiateLogin(r.Context(), safeRedirect(r.URL.Query().Get("redirect")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result := s.requestFlow(w, r).HandleCallback(r.Context(), oauth.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})

	if !result.Success {
		logging.Audit(logging.AuditEvent{Action: "login", Outcome: "failure", Detail: "dashboard", Err: result.Err})
		oauth.WriteResultPage(w, result)
		return
	}
	logging.Audit(logging.AuditEvent{Action: "login", Outcome: "success", Detail: "dashboard"})
	http.Redirect(w, r, safeRedirect(result.RedirectTo), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.requestFlow(w, r).Logout(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	logging.Audit(logging.AuditEvent{Action: "logout", Outcome: "success", Detail: "dashboard"})
	w.WriteHeader(http.StatusNoContent)
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Authenticated bool             `json:"isAuthenticated"`
	Token         *oauth.TokenInfo `json:"token,omitempty"`
	RateLimit     ratelimit.Status `json:"rateLimit"`
	Config        ConfigStatus     `json:"config"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tokens := s.flow.Tokens()
	writeJSON(w, http.StatusOK, StatusResponse{
		Authenticated: tokens.IsAuthenticated(r.Context()),
		Token:         tokens.TokenInfo(r.Context()),
		RateLimit:     s.limiter.Status(),
		Config:        s.config,
	})
}

// handleOAuthToken is the trusted exchange endpoint used by
// oauth.ProxyExchanger. It redeems the code with the client secret and
// returns the tokens with the user's profile. Nothing is stored here.
func (s *Server) handleOAuthToken(w http.ResponseWriter, r *http.Request) {
	var req oauth.ExchangeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeProxyError(w, r, badRequest("invalid JSON body"))
		return
	}
	if req.Code == "" {
		writeProxyError(w, r, badRequest("code is required"))
		return
	}
	if req.RedirectURI == "" {
		writeProxyError(w, r, badRequest("redirect_uri is required"))
		return
	}

	tokens, err := s.exchanger.Exchange(r.Context(), req)
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "token_exchange", Outcome: "failure", Detail: "proxy", Err: err})
		writeProxyError(w, r, err)
		return
	}
	logging.Audit(logging.AuditEvent{Action: "token_exchange", Outcome: "success", Detail: "proxy"})

	resp := oauth.ProxyResponse{Success: true, Tokens: &tokens}
	if user, err := s.lookupUser(r, tokens.AccessToken); err != nil {
		logging.Warn("Server", "Exchange succeeded but user lookup failed: %v", err)
	} else {
		resp.User = user
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) lookupUser(r *http.Request, token string) (json.RawMessage, error) {
	client, err := intra.NewClient(s.apiBase, intra.StaticToken(token),
		intra.WithLimiter(s.limiter),
		intra.WithObserver(s.metrics),
	)
	if err != nil {
		return nil, err
	}
	return intra.GetJSON[json.RawMessage](r.Context(), client, "/v2/me")
}

func writeProxyError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	var exch *oauth.TokenExchangeError
	if errors.As(err, &exch) && exch.Message != "" {
		msg = exch.Message
	}
	writeJSON(w, status, oauth.ProxyResponse{Error: code, Message: msg})
}
