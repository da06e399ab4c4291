package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"scoreboard/pkg/logging"
	pkgoauth "scoreboard/pkg/oauth"
)

// DefaultAttemptTTL is how long a login attempt stays valid.
const DefaultAttemptTTL = 600 * time.Second

// Attempt is one in-progress authorization request.
type Attempt struct {
	State         string
	CodeVerifier  string
	CodeChallenge string
	CreatedAt     time.Time
	RedirectTo    string
}

// AttemptBackend holds the single active attempt. Saving replaces any
// previous attempt.
type AttemptBackend interface {
	Load(ctx context.Context) (*Attempt, error)
	Save(ctx context.Context, a *Attempt) error
	Delete(ctx context.Context) error
}

// StateStore creates and validates login attempts for CSRF protection.
// Validation is one-shot: the attempt is removed whether or not it matches.
type StateStore struct {
	backend AttemptBackend
	ttl     time.Duration
	now     func() time.Time
}

// StateStoreOption configures a StateStore.
type StateStoreOption func(*StateStore)

// WithAttemptTTL overrides DefaultAttemptTTL.
func WithAttemptTTL(ttl time.Duration) StateStoreOption {
	return func(s *StateStore) { s.ttl = ttl }
}

// WithStateClock replaces time.Now.
func WithStateClock(now func() time.Time) StateStoreOption {
	return func(s *StateStore) { s.now = now }
}

// NewStateStore creates a state store over backend. A nil backend keeps
// the attempt in process memory.
func NewStateStore(backend AttemptBackend, opts ...StateStoreOption) *StateStore {
	if backend == nil {
		backend = NewMemoryAttemptBackend()
	}
	s := &StateStore{
		backend: backend,
		ttl:     DefaultAttemptTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new attempt, replacing any previous one.
func (s *StateStore) Create(ctx context.Context, redirectTo string) (*Attempt, error) {
	state, err := pkgoauth.GenerateState()
	if err != nil {
		return nil, err
	}
	pkce, err := pkgoauth.GeneratePKCE()
	if err != nil {
		return nil, err
	}

	a := &Attempt{
		State:         state,
		CodeVerifier:  pkce.CodeVerifier,
		CodeChallenge: pkce.CodeChallenge,
		CreatedAt:     s.now(),
		RedirectTo:    redirectTo,
	}
	if err := s.backend.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to store login attempt: %w", err)
	}

	logging.Debug("OAuth", "Created login attempt state=%s", logging.Truncate(state))
	return a, nil
}

// Validate checks state against the stored attempt and consumes it.
func (s *StateStore) Validate(ctx context.Context, state string) (*Attempt, error) {
	a, err := s.backend.Load(ctx)
	if err != nil {
		logging.Warn("OAuth", "Failed to load login attempt: %v", err)
		a = nil
	}
	if delErr := s.backend.Delete(ctx); delErr != nil {
		logging.Warn("OAuth", "Failed to clear login attempt: %v", delErr)
	}

	if a == nil || a.State == "" {
		logging.Warn("OAuth", "Callback without a stored login attempt")
		return nil, &CSRFError{Reason: CSRFMissingAttempt}
	}
	if state == "" || subtle.ConstantTimeCompare([]byte(a.State), []byte(state)) != 1 {
		logging.Warn("OAuth", "State mismatch for attempt state=%s", logging.Truncate(a.State))
		return nil, &CSRFError{Reason: CSRFStateMismatch}
	}
	if age := s.now().Sub(a.CreatedAt); age > s.ttl {
		logging.Warn("OAuth", "Login attempt expired: age=%v", age)
		return nil, &CSRFError{Reason: CSRFExpired}
	}
	return a, nil
}

// Clear drops the active attempt.
func (s *StateStore) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx)
}
