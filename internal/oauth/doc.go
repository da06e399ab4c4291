// Package oauth signs the user in to the 42 intranet with the OAuth2
// authorization-code grant and PKCE, and owns the resulting credential.
//
// # Components
//
//   - Flow: InitiateLogin, HandleCallback, Logout, IsAuthenticated
//   - StateStore: one in-flight login attempt (state, PKCE verifier,
//     redirect target) with a 600s TTL, over an AttemptBackend
//   - TokenStore: the credential, cached in memory and persisted through a
//     CredentialStorage (file, SQLite or memory)
//   - Exchanger: how codes are redeemed (direct, trusted proxy, or proxy
//     with direct fallback)
//   - CallbackServer: loopback listener for CLI logins
//
// # Security
//
// State is compared in constant time and an attempt is consumed by its
// first callback, matching or not. A callback that fails validation never
// reaches the token endpoint.
//
// Stored credentials are base64-encoded JSON. That only keeps them out of
// casual view; file permissions (0700 directory, 0600 file) are what
// protect them.
//
// Token values are never logged. Lifecycle events are recorded through
// logging.Audit.
//
// # Refresh
//
// Access tokens are handed out only while they have more than ExpirySkew
// left. Past that point the TokenStore refreshes through its Refresher;
// concurrent callers share a single refresh. With DisabledRefresher (or
// without a refresh token) the caller gets ErrReauthRequired.
package oauth
