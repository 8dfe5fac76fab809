package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

const rawRefreshTokenLength = 32 // 32 bytes = 256 bits of entropy

// Session pairs a refresh token with the access tokens issued against it
// and tracks its trust state. The struct deliberately has no field for the
// raw refresh token - only its hash is ever persisted, so the raw secret
// cannot leak through logging or storage of a Session value.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	AccessTokenID    string    `json:"access_token_id"`    // jti of the most recently minted access token
	RefreshTokenHash string    `json:"refresh_token_hash"` // hex SHA-256 of the current raw refresh token
	IsActive         bool      `json:"is_active"`
	Revoked          bool      `json:"revoked"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// UsableForRefresh reports whether the session can still be rotated.
func (s *Session) UsableForRefresh(now time.Time) bool {
	return s.IsActive && !s.Revoked && now.Before(s.ExpiresAt)
}

// NewRawRefreshToken mints a high-entropy, URL-safe raw refresh token. The
// returned value is handed to the client exactly once and never persisted.
func NewRawRefreshToken() (string, error) {
	bytes := make([]byte, rawRefreshTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", errors.Wrap(err, "[NewRawRefreshToken] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashRefreshToken returns the hex SHA-256 of a raw refresh token, the only
// form in which refresh tokens are stored or looked up.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
