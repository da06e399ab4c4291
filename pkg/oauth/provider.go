package oauth

import (
	"strings"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the 42 intranet API host.
	DefaultBaseURL = "https://api.intra.42.fr"

	// DefaultScope is the only scope the dashboard needs.
	DefaultScope = "public"
)

// Provider holds the endpoints of an OAuth2 authorization server.
type Provider struct {
	AuthorizeURL string
	TokenURL     string
	RevokeURL    string
}

// IntraProvider returns the 42 intranet endpoints rooted at baseURL.
// An empty baseURL selects DefaultBaseURL.
func IntraProvider(baseURL string) Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	return Provider{
		AuthorizeURL: baseURL + "/oauth/authorize",
		TokenURL:     baseURL + "/oauth/token",
		RevokeURL:    baseURL + "/oauth/revoke",
	}
}

// Endpoint converts the provider to an oauth2.Endpoint. Client credentials
// are always sent in the form body.
func (p Provider) Endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   p.AuthorizeURL,
		TokenURL:  p.TokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
}
