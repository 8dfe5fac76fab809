package sessions

import (
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by repos when no session matches the lookup key.
var ErrNotFound = errors.New("session not found")

// Repo is the persistence contract for sessions. Implementations must make
// RotateRefreshHash a single conditional write so that two concurrent
// rotation attempts with the same raw token cannot both succeed.
type Repo interface {
	Insert(session *Session) error
	GetByID(id string) (*Session, error)
	GetByRefreshHash(hash string) (*Session, error)
	GetByAccessTokenID(tokenID string) (*Session, error)

	// RotateRefreshHash replaces the stored refresh-token hash, access-token
	// id and expiry on the session row, but only if oldHash is still the
	// current hash. Returns false when the conditional update matched no
	// row, i.e. the token was already rotated or the session is gone.
	RotateRefreshHash(id, oldHash, newHash, accessTokenID string, expiresAt time.Time) (bool, error)

	// MarkRevoked sets revoked=true, is_active=false. Idempotent.
	MarkRevoked(id string) error

	// RevokeAllForUser bulk-revokes every active session of a user.
	RevokeAllForUser(userID string) error
}
