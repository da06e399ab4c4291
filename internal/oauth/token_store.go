package oauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"scoreboard/pkg/logging"
	pkgoauth "scoreboard/pkg/oauth"
)

// RefreshObserver is told the outcome of every refresh attempt.
type RefreshObserver interface {
	IncrementTokenRefreshes(outcome string)
}

// TokenInfo describes the stored credential's lifetime.
type TokenInfo struct {
	ExpiresAt time.Time `json:"expiresAt"`
	// ExpiresIn is whole seconds until expiry, never negative.
	ExpiresIn int64 `json:"expiresIn"`
	Valid     bool  `json:"isValid"`
	// Refreshable is true when a refresh token is stored.
	Refreshable bool `json:"refreshable"`
}

// TokenStore owns the user's credential. Reads are served from an
// in-memory cache backed by durable storage; concurrent refreshes collapse
// into a single request to the provider.
//
// SECURITY: token values are never logged.
type TokenStore struct {
	mu    sync.RWMutex
	cache *Credential

	storage   CredentialStorage
	refresher Refresher
	revoker   Revoker
	observer  RefreshObserver
	now       func() time.Time

	group singleflight.Group
}

// TokenStoreOption configures a TokenStore.
type TokenStoreOption func(*TokenStore)

// WithRefresher sets the refresh strategy. The default is DisabledRefresher.
func WithRefresher(r Refresher) TokenStoreOption {
	return func(s *TokenStore) { s.refresher = r }
}

// WithRevoker enables provider-side revocation on Revoke.
func WithRevoker(r Revoker) TokenStoreOption {
	return func(s *TokenStore) { s.revoker = r }
}

// WithRefreshObserver reports refresh outcomes, typically to metrics.
func WithRefreshObserver(o RefreshObserver) TokenStoreOption {
	return func(s *TokenStore) { s.observer = o }
}

// WithTokenClock replaces time.Now.
func WithTokenClock(now func() time.Time) TokenStoreOption {
	return func(s *TokenStore) { s.now = now }
}

// NewTokenStore creates a store over storage. A nil storage keeps
// credentials in memory only.
func NewTokenStore(storage CredentialStorage, opts ...TokenStoreOption) *TokenStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &TokenStore{
		storage:   storage,
		refresher: DisabledRefresher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetTokens stores a fresh token response. ExpiresAt is computed from the
// local receipt time.
func (s *TokenStore) SetTokens(ctx context.Context, resp pkgoauth.TokenResponse) error {
	if resp.AccessToken == "" {
		return fmt.Errorf("token response has no access token")
	}
	cred := NewCredential(resp, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistLocked(ctx, cred); err != nil {
		logging.Audit(logging.AuditEvent{Action: "token_store", Outcome: "failure", Err: err})
		return err
	}

	logging.Audit(logging.AuditEvent{
		Action:  "token_store",
		Outcome: "success",
		Detail:  fmt.Sprintf("expires_at=%s refreshable=%t", cred.ExpiresAt.Format(time.RFC3339), cred.RefreshToken != ""),
	})
	return nil
}

func (s *TokenStore) persistLocked(ctx context.Context, cred *Credential) error {
	blob, err := Obfuscate(cred)
	if err != nil {
		return err
	}
	if err := s.storage.Save(ctx, blob); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}
	s.cache = cred
	return nil
}

// current returns the cached credential while it is usable. Otherwise the
// cache is dropped and the credential is reloaded from storage, which
// another process may have replaced since. It returns nil when nothing is
// stored.
func (s *TokenStore) current(ctx context.Context) (*Credential, error) {
	s.mu.RLock()
	cred := s.cache
	s.mu.RUnlock()
	if cred.Usable(s.now()) {
		return cred, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Usable(s.now()) {
		return s.cache, nil
	}
	return s.loadLocked(ctx)
}

// reload always reads storage, replacing the cache.
func (s *TokenStore) reload(ctx context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *TokenStore) loadLocked(ctx context.Context) (*Credential, error) {
	blob, err := s.storage.Load(ctx)
	if errors.Is(err, ErrNoCredential) {
		s.cache = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cred, err := Deobfuscate(blob)
	if err != nil {
		logging.Warn("TokenStore", "Discarding unreadable stored credential: %v", err)
		s.cache = nil
		_ = s.storage.Delete(ctx)
		return nil, nil
	}
	s.cache = cred
	return cred, nil
}

// AccessToken returns a token that is valid for at least ExpirySkew. A
// credential inside the skew window is refreshed first.
func (s *TokenStore) AccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.cache.Usable(s.now()) {
		token := s.cache.AccessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	cred, err := s.current(ctx)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", ErrNotAuthenticated
	}
	if cred.Usable(s.now()) {
		return cred.AccessToken, nil
	}

	logging.Debug("TokenStore", "Access token expires at %s, refreshing", cred.ExpiresAt.Format(time.RFC3339))
	fresh, err := s.refresh(ctx, cred.AccessToken, false)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// Refresh unconditionally exchanges the stored refresh token for a new
// credential.
func (s *TokenStore) Refresh(ctx context.Context) error {
	_, err := s.refresh(ctx, "", true)
	return err
}

// RefreshRejected refreshes after the API rejected token. If another caller
// already replaced that token, no new request is made.
func (s *TokenStore) RefreshRejected(ctx context.Context, token string) (string, error) {
	cred, err := s.refresh(ctx, token, false)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// refresh runs at most one refresh at a time. Callers that arrive while a
// refresh is in flight share its result. stale is the access token the
// caller found unusable; when the stored token already differs and is
// usable, it is returned without contacting the provider.
func (s *TokenStore) refresh(ctx context.Context, stale string, force bool) (*Credential, error) {
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		// Detached so one caller's cancellation does not fail the others.
		return s.doRefresh(context.WithoutCancel(ctx), stale, force)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Credential), nil
	}
}

func (s *TokenStore) doRefresh(ctx context.Context, stale string, force bool) (*Credential, error) {
	cred, err := s.reload(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotAuthenticated
	}
	if !force && cred.AccessToken != stale && cred.Usable(s.now()) {
		return cred, nil
	}
	if cred.RefreshToken == "" {
		s.observe("unavailable")
		return nil, fmt.Errorf("%w: no refresh token stored", ErrReauthRequired)
	}

	resp, err := s.refresher.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		outcome := "failure"
		if errors.Is(err, ErrRefreshUnsupported) {
			outcome = "unsupported"
		}
		s.observe(outcome)
		logging.Audit(logging.AuditEvent{Action: "token_refresh", Outcome: outcome, Err: err})
		return nil, fmt.Errorf("%w: %w", ErrReauthRequired, err)
	}
	if resp.AccessToken == "" {
		s.observe("failure")
		return nil, fmt.Errorf("%w: refresh response has no access token", ErrReauthRequired)
	}
	if resp.RefreshToken == "" {
		resp.RefreshToken = cred.RefreshToken
	}

	fresh := NewCredential(resp, s.now())
	s.mu.Lock()
	err = s.persistLocked(ctx, fresh)
	s.mu.Unlock()
	if err != nil {
		s.observe("failure")
		return nil, err
	}

	s.observe("success")
	logging.Audit(logging.AuditEvent{
		Action:  "token_refresh",
		Outcome: "success",
		Detail:  "expires_at=" + fresh.ExpiresAt.Format(time.RFC3339),
	})
	return fresh, nil
}

func (s *TokenStore) observe(outcome string) {
	if s.observer != nil {
		s.observer.IncrementTokenRefreshes(outcome)
	}
}

// IsAuthenticated reports whether a stored credential has not expired.
// Unlike AccessToken it applies no skew.
func (s *TokenStore) IsAuthenticated(ctx context.Context) bool {
	cred, err := s.current(ctx)
	if err != nil {
		logging.Warn("TokenStore", "Failed to read credential: %v", err)
		return false
	}
	return cred.Live(s.now())
}

// TokenInfo returns lifetime information, or nil when nothing is stored.
func (s *TokenStore) TokenInfo(ctx context.Context) *TokenInfo {
	cred, err := s.current(ctx)
	if err != nil || cred == nil {
		return nil
	}
	now := s.now()
	expiresIn := int64(cred.ExpiresAt.Sub(now) / time.Second)
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &TokenInfo{
		ExpiresAt:   cred.ExpiresAt,
		ExpiresIn:   expiresIn,
		Valid:       cred.Live(now),
		Refreshable: cred.RefreshToken != "",
	}
}

// Clear removes the credential from memory and storage.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = nil
	if err := s.storage.Delete(ctx); err != nil {
		logging.Audit(logging.AuditEvent{Action: "token_clear", Outcome: "failure", Err: err})
		return err
	}
	logging.Audit(logging.AuditEvent{Action: "token_clear", Outcome: "success"})
	return nil
}

// Revoke asks the provider to invalidate the credential, then clears it
// locally whatever the provider answered. A provider failure is returned
// after local state is gone.
func (s *TokenStore) Revoke(ctx context.Context) error {
	cred, loadErr := s.current(ctx)

	var revokeErr error
	if cred != nil && s.revoker != nil {
		revokeErr = s.revoker.Revoke(ctx, cred)
		outcome := "success"
		if revokeErr != nil {
			outcome = "failure"
		}
		logging.Audit(logging.AuditEvent{Action: "token_revoke", Outcome: outcome, Err: revokeErr})
	}

	if err := s.Clear(ctx); err != nil {
		return err
	}
	if revokeErr != nil {
		return &RevocationError{Err: revokeErr}
	}
	return loadErr
}
