package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// PKCE code challenge methods.
const (
	CodeChallengeMethodS256  = "S256"
	CodeChallengeMethodPlain = "plain"
)

// VerifyCodeVerifier checks a client-supplied PKCE code verifier against a
// stored challenge. Pure function, no state.
//
// The method string is matched exactly: an absent method is rejected rather
// than falling back to plain, and "s256" is not accepted for "S256"
// (RFC 7636 defines the method values as case-sensitive).
func VerifyCodeVerifier(verifier, challenge, method string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	switch method {
	case CodeChallengeMethodS256:
		hash := sha256.Sum256([]byte(verifier))
		computed := base64.RawURLEncoding.EncodeToString(hash[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	case CodeChallengeMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	}
	return false
}

// S256Challenge derives the code challenge for a verifier, used by tests and
// by clients of this package that build authorization requests.
func S256Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
