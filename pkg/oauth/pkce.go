package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	// stateBytes is the number of random bytes for the OAuth state parameter.
	// 32 bytes encodes to 43 base64url characters.
	stateBytes = 32

	// ChallengeMethodS256 is the only PKCE method this client sends.
	ChallengeMethodS256 = "S256"
)

// PKCEChallenge is a code verifier with its derived S256 challenge.
type PKCEChallenge struct {
	// CodeVerifier stays on the client until the token exchange.
	CodeVerifier string

	// CodeChallenge is base64url(SHA256(CodeVerifier)) without padding.
	CodeChallenge string

	CodeChallengeMethod string
}

// GeneratePKCE generates a new code verifier (32 random bytes, base64url)
// and its S256 challenge.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifier, challenge := GeneratePKCERaw()
	if verifier == "" {
		return nil, fmt.Errorf("failed to generate PKCE verifier")
	}
	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       challenge,
		CodeChallengeMethod: ChallengeMethodS256,
	}, nil
}

// GeneratePKCERaw returns a verifier and its S256 challenge as plain strings.
func GeneratePKCERaw() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, oauth2.S256ChallengeFromVerifier(verifier)
}

// VerifyChallenge reports whether challenge is the S256 transform of verifier.
func VerifyChallenge(verifier, challenge string) bool {
	expected := oauth2.S256ChallengeFromVerifier(verifier)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}

// GenerateState generates a random state parameter used to bind the
// authorization response to the request that started it.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
