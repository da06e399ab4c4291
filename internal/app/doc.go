// Package app provides application bootstrap and dependency wiring for
// scoreboard.
//
// # Core Components
//
//   - Bootstrap (bootstrap.go): loads configuration, initializes logging
//     and builds Services. CLI commands create one Application per run.
//   - Configuration (config.go): runtime flags such as --debug and
//     --config-path.
//   - Services (services.go): every long-lived component, built leaf
//     first from config.Config.
//   - Modes (modes.go): Serve runs the dashboard server with signal
//     handling.
//
// Services are wired as follows:
//
//	metrics ─┬─> ratelimit.Limiter ──────────────┐
//	         ├─> oauth.TokenStore (storage,      │
//	         │     refresher, revoker) ──────────┼─> intra.Client
//	         └─> oauth.Flow (exchanger) ─────────┘
//
// # Strategy selection
//
// Credential storage follows storage.backend (file, sqlite or memory).
// Refresh is disabled unless oauth.refresh is set, in which case the
// refresh_token grant is used. Codes are redeemed through oauth.proxyUrl
// when set, falling back to a direct exchange only with
// oauth.directFallback and only when the proxy cannot be reached;
// otherwise they are redeemed directly, sending the client secret only if
// one is configured.
package app
