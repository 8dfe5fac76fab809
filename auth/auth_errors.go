package auth

import (
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/sessions"
)

// Error taxonomy for token issuance and protected-resource authorization.
// All are terminal, user-visible failures - none are retried internally.
// Persistence-layer transient failures are surfaced as wrapped infrastructure
// errors, never masked as one of these.
var (
	// ErrInvalidCredential covers unknown user and wrong password alike -
	// the two are deliberately indistinguishable in responses.
	ErrInvalidCredential = sessions.ErrInvalidCredential
	ErrSessionRevoked    = sessions.ErrSessionRevoked
	ErrSessionExpired    = sessions.ErrSessionExpired

	ErrInvalidSession       = errors.New("invalid session")
	ErrInsufficientRole     = errors.New("insufficient role")
	ErrInvalidClient        = errors.New("invalid client")
	ErrInvalidRedirectURI   = errors.New("invalid redirect uri")
	ErrMissingParameter     = errors.New("missing parameter")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired authorization code")
	ErrCodeBindingMismatch  = errors.New("authorization code binding mismatch")
	ErrInvalidCodeVerifier  = errors.New("invalid code verifier")
	ErrUnsupportedGrant     = errors.New("unsupported grant type")
)
