package oauth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/sessions"
)

// MemoryAttemptBackend keeps the attempt in process memory. It suits the
// CLI, where one process runs one login.
type MemoryAttemptBackend struct {
	mu      sync.Mutex
	attempt *Attempt
}

func NewMemoryAttemptBackend() *MemoryAttemptBackend {
	return &MemoryAttemptBackend{}
}

func (m *MemoryAttemptBackend) Load(_ context.Context) (*Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attempt == nil {
		return nil, nil
	}
	a := *m.attempt
	return &a, nil
}

func (m *MemoryAttemptBackend) Save(_ context.Context, a *Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *a
	m.attempt = &c
	return nil
}

func (m *MemoryAttemptBackend) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempt = nil
	return nil
}

// AttemptSessionName is the cookie that carries the login attempt.
const AttemptSessionName = "scoreboard_oauth"

const (
	keyState      = "state"
	keyVerifier   = "code_verifier"
	keyChallenge  = "code_challenge"
	keyCreatedAt  = "created_at"
	keyRedirectTo = "redirect_to"
)

// CookieAttemptBackend stores the attempt in a signed and encrypted browser
// session cookie. It is bound to one request/response pair.
type CookieAttemptBackend struct {
	store sessions.Store
	w     http.ResponseWriter
	r     *http.Request
}

// NewCookieAttemptBackend binds store to the current request.
func NewCookieAttemptBackend(store sessions.Store, w http.ResponseWriter, r *http.Request) *CookieAttemptBackend {
	return &CookieAttemptBackend{store: store, w: w, r: r}
}

// NewAttemptCookieStore creates the cookie store used for attempts. The
// cookie has no Max-Age, so it ends with the browser session.
func NewAttemptCookieStore(hashKey, blockKey []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (c *CookieAttemptBackend) session() (*sessions.Session, error) {
	session, err := c.store.Get(c.r, AttemptSessionName)
	if err != nil && session == nil {
		return nil, fmt.Errorf("failed to read attempt cookie: %w", err)
	}
	// A cookie that fails to decode yields a fresh session, which is
	// treated as "no attempt".
	return session, nil
}

func (c *CookieAttemptBackend) Load(_ context.Context) (*Attempt, error) {
	session, err := c.session()
	if err != nil {
		return nil, err
	}
	state, _ := session.Values[keyState].(string)
	if state == "" {
		return nil, nil
	}
	verifier, _ := session.Values[keyVerifier].(string)
	challenge, _ := session.Values[keyChallenge].(string)
	createdAt, _ := session.Values[keyCreatedAt].(int64)
	redirectTo, _ := session.Values[keyRedirectTo].(string)

	return &Attempt{
		State:         state,
		CodeVerifier:  verifier,
		CodeChallenge: challenge,
		CreatedAt:     time.UnixMilli(createdAt),
		RedirectTo:    redirectTo,
	}, nil
}

func (c *CookieAttemptBackend) Save(_ context.Context, a *Attempt) error {
	session, err := c.session()
	if err != nil {
		return err
	}
	session.Values[keyState] = a.State
	session.Values[keyVerifier] = a.CodeVerifier
	session.Values[keyChallenge] = a.CodeChallenge
	session.Values[keyCreatedAt] = a.CreatedAt.UnixMilli()
	session.Values[keyRedirectTo] = a.RedirectTo
	if err := session.Save(c.r, c.w); err != nil {
		return fmt.Errorf("failed to write attempt cookie: %w", err)
	}
	return nil
}

func (c *CookieAttemptBackend) Delete(_ context.Context) error {
	session, err := c.session()
	if err != nil {
		return err
	}
	for _, k := range []string{keyState, keyVerifier, keyChallenge, keyCreatedAt, keyRedirectTo} {
		delete(session.Values, k)
	}
	session.Options = &sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true}
	if err := session.Save(c.r, c.w); err != nil {
		return fmt.Errorf("failed to clear attempt cookie: %w", err)
	}
	return nil
}
