package sqlite

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-identity-server/authcodes"
)

// CodeStore adapts the Store to the authcodes.Repo contract. Consumption is
// a conditional UPDATE followed by a read of the already-claimed row, so no
// code can be observed unused by two concurrent consumers.
type CodeStore struct {
	store *Store
}

var _ authcodes.Repo = (*CodeStore)(nil)

func (s *Store) Codes() *CodeStore {
	return &CodeStore{store: s}
}

func (cs *CodeStore) Insert(code *authcodes.Code) error {
	_, err := cs.store.sqlDB.Exec(`
INSERT INTO authorization_codes (code, user_id, client_id, redirect_uri, code_challenge, code_challenge_method, scope, used, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		code.Code,
		code.UserID,
		code.ClientID,
		code.RedirectURI,
		code.CodeChallenge,
		code.CodeChallengeMethod,
		code.Scope,
		code.Used,
		toMillis(code.CreatedAt),
		toMillis(code.ExpiresAt),
	)
	return errors.Wrap(err, "insert authorization code")
}

func (cs *CodeStore) ConsumeUnused(codeString string, now time.Time) (*authcodes.Code, error) {
	result, err := cs.store.sqlDB.Exec(`
UPDATE authorization_codes SET used = 1
WHERE code = ? AND used = 0 AND expires_at > ?`,
		codeString, toMillis(now))
	if err != nil {
		return nil, errors.Wrap(err, "consume authorization code")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "consume authorization code rows affected")
	}
	if affected == 0 {
		return nil, authcodes.ErrNotConsumable
	}

	row := cs.store.sqlDB.QueryRow(`
SELECT code, user_id, client_id, redirect_uri, code_challenge, code_challenge_method, scope, used, created_at, expires_at
FROM authorization_codes WHERE code = ?`, codeString)

	var (
		code      authcodes.Code
		createdAt int64
		expiresAt int64
	)
	err = row.Scan(&code.Code, &code.UserID, &code.ClientID, &code.RedirectURI,
		&code.CodeChallenge, &code.CodeChallengeMethod, &code.Scope, &code.Used,
		&createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authcodes.ErrNotConsumable
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan authorization code")
	}
	code.CreatedAt = fromMillis(createdAt)
	code.ExpiresAt = fromMillis(expiresAt)
	return &code, nil
}
