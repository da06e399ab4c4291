// Package server is the HTTP surface of `scoreboard serve`: a small JSON
// dashboard backend for a single signed-in user.
//
// # Routes
//
//	GET  /login?redirect=/path   start a login (302 to the intranet)
//	GET  /oauth/callback         finish a login
//	POST /logout                 revoke and forget the credential
//	GET  /api/me                 the signed-in user's profile
//	GET  /api/students           main-cursus listing (search, year, sort, order, page, pageSize)
//	GET  /api/poolers            piscine listing (same filters)
//	GET  /api/summary            profile plus listing stats
//	GET  /api/status             token lifetime, rate limiter and config presence
//	POST /api/oauth-token        trusted code exchange, only with a client secret
//	GET  /metrics                Prometheus metrics
//	GET  /healthz                liveness
//
// # Login state
//
// The pending login attempt (state and PKCE verifier) travels in a signed
// and encrypted cookie, so each browser has its own attempt and the server
// keeps no session table. The credential itself is the process-wide
// TokenStore.
//
// # Errors
//
// API failures are mapped to HTTP statuses: an expired or missing
// credential is 401, upstream rate limiting is 429 with Retry-After,
// upstream 5xx and network failures are 502, request deadlines are 504.
// Bodies are JSON: {"error": CODE, "message": text, "requestId": id}.
package server
