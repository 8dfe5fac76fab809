package sqlite

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/sessions"
)

// SessionStore adapts the Store to the sessions.Repo contract. Rotation is a
// single conditional UPDATE keyed on the current refresh-token hash, so two
// concurrent rotations of the same raw token cannot both succeed.
type SessionStore struct {
	store *Store
}

var _ sessions.Repo = (*SessionStore)(nil)

func (s *Store) Sessions() *SessionStore {
	return &SessionStore{store: s}
}

func (ss *SessionStore) Insert(session *sessions.Session) error {
	_, err := ss.store.sqlDB.Exec(`
INSERT INTO sessions (id, user_id, access_token_id, refresh_token_hash, is_active, revoked, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		session.AccessTokenID,
		session.RefreshTokenHash,
		session.IsActive,
		session.Revoked,
		toMillis(session.CreatedAt),
		toMillis(session.ExpiresAt),
	)
	return errors.Wrap(err, "insert session")
}

func (ss *SessionStore) GetByID(id string) (*sessions.Session, error) {
	return ss.getSession(`
SELECT id, user_id, access_token_id, refresh_token_hash, is_active, revoked, created_at, expires_at
FROM sessions WHERE id = ?`, id)
}

func (ss *SessionStore) GetByRefreshHash(hash string) (*sessions.Session, error) {
	return ss.getSession(`
SELECT id, user_id, access_token_id, refresh_token_hash, is_active, revoked, created_at, expires_at
FROM sessions WHERE refresh_token_hash = ?`, hash)
}

func (ss *SessionStore) GetByAccessTokenID(tokenID string) (*sessions.Session, error) {
	return ss.getSession(`
SELECT id, user_id, access_token_id, refresh_token_hash, is_active, revoked, created_at, expires_at
FROM sessions WHERE access_token_id = ?`, tokenID)
}

func (ss *SessionStore) getSession(query string, arg any) (*sessions.Session, error) {
	row := ss.store.sqlDB.QueryRow(query, arg)

	var (
		session   sessions.Session
		createdAt int64
		expiresAt int64
	)
	err := row.Scan(&session.ID, &session.UserID, &session.AccessTokenID,
		&session.RefreshTokenHash, &session.IsActive, &session.Revoked,
		&createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sessions.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan session")
	}
	session.CreatedAt = fromMillis(createdAt)
	session.ExpiresAt = fromMillis(expiresAt)
	return &session, nil
}

func (ss *SessionStore) RotateRefreshHash(id, oldHash, newHash, accessTokenID string, expiresAt time.Time) (bool, error) {
	result, err := ss.store.sqlDB.Exec(`
UPDATE sessions
SET refresh_token_hash = ?, access_token_id = ?, expires_at = ?
WHERE id = ? AND refresh_token_hash = ? AND is_active = 1 AND revoked = 0`,
		newHash, accessTokenID, toMillis(expiresAt), id, oldHash)
	if err != nil {
		return false, errors.Wrap(err, "rotate refresh hash")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rotate refresh hash rows affected")
	}
	return affected == 1, nil
}

func (ss *SessionStore) MarkRevoked(id string) error {
	_, err := ss.store.sqlDB.Exec(`UPDATE sessions SET revoked = 1, is_active = 0 WHERE id = ?`, id)
	return errors.Wrap(err, "mark session revoked")
}

func (ss *SessionStore) RevokeAllForUser(userID string) error {
	_, err := ss.store.sqlDB.Exec(`UPDATE sessions SET revoked = 1, is_active = 0 WHERE user_id = ?`, userID)
	return errors.Wrap(err, "revoke all sessions for user")
}
