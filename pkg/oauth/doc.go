// Package oauth holds the protocol pieces of the OAuth2 authorization-code
// grant that do not depend on where credentials are stored: PKCE and state
// generation, the provider's endpoints, its token response and error bodies,
// and token revocation.
//
// The stateful parts (login flow, token lifecycle, CSRF attempt storage)
// live in internal/oauth and build on this package and golang.org/x/oauth2.
//
//	pkce, err := oauth.GeneratePKCE()
//	state, err := oauth.GenerateState()
//	provider := oauth.IntraProvider("")
//	cfg := &oauth2.Config{ClientID: id, Endpoint: provider.Endpoint()}
//	url := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(pkce.CodeVerifier))
package oauth
